package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const startTimeLayout = "20060102T150405"

// ProductName is the parsed form of a SAFE basename. See the package
// documentation for the naming convention.
type ProductName struct {
	Mission      string // "ASA"
	Sensor       string // "WVI"
	Family       string // "XSP" or "WAV"
	Class        string // e.g. "1SVV"
	Start        time.Time
	Stop         time.Time
	Cycle        int
	RelativePass int
	ProcessingID string
}

// ParseProductName parses an input product basename (directory and extension
// stripped first).
func ParseProductName(path string) (ProductName, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".nc")
	fields := strings.Split(base, "_")
	// The family token is followed by a double underscore, which splits into
	// an empty field.
	if len(fields) != 10 || fields[3] != "" {
		return ProductName{}, fmt.Errorf("product name %q: expected 9 underscore-delimited fields", filepath.Base(path))
	}

	start, err := time.Parse(startTimeLayout, fields[5])
	if err != nil {
		return ProductName{}, fmt.Errorf("product name %q: start time: %w", filepath.Base(path), err)
	}
	stop, err := time.Parse(startTimeLayout, fields[6])
	if err != nil {
		return ProductName{}, fmt.Errorf("product name %q: stop time: %w", filepath.Base(path), err)
	}
	cycle, err := strconv.Atoi(fields[7])
	if err != nil {
		return ProductName{}, fmt.Errorf("product name %q: cycle %q: %w", filepath.Base(path), fields[7], err)
	}
	pass, err := strconv.Atoi(fields[8])
	if err != nil {
		return ProductName{}, fmt.Errorf("product name %q: relative pass %q: %w", filepath.Base(path), fields[8], err)
	}

	return ProductName{
		Mission:      fields[0],
		Sensor:       fields[1],
		Family:       fields[2],
		Class:        fields[4],
		Start:        start.UTC(),
		Stop:         stop.UTC(),
		Cycle:        cycle,
		RelativePass: pass,
		ProcessingID: fields[9],
	}, nil
}

// String reassembles the SAFE basename without extension.
func (p ProductName) String() string {
	return fmt.Sprintf("%s_%s_%s__%s_%s_%s_%03d_%05d_%s",
		p.Mission, p.Sensor, p.Family, p.Class,
		p.Start.Format(startTimeLayout), p.Stop.Format(startTimeLayout),
		p.Cycle, p.RelativePass, p.ProcessingID)
}

// OutputPath derives where the Level-2P product for an input belongs: the
// input basename with the family swapped XSP -> WAV and the processing ID
// replaced by productID, placed under saveDir. When dateDirs is set a
// <year>/<day-of-year> hierarchy keyed on the acquisition start date is
// inserted between saveDir and the filename.
func OutputPath(saveDir, inputPath, productID string, dateDirs bool) (string, error) {
	name, err := ParseProductName(inputPath)
	if err != nil {
		return "", err
	}
	name.Family = "WAV"
	name.ProcessingID = strings.ToUpper(productID)

	dir := saveDir
	if dateDirs {
		dir = filepath.Join(saveDir,
			strconv.Itoa(name.Start.Year()),
			fmt.Sprintf("%03d", name.Start.YearDay()))
	}
	return filepath.Join(dir, name.String()+".nc"), nil
}
