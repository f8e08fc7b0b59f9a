package domain

import (
	"strings"
	"time"
)

// L2TimeUnits is the time encoding of output products.
const L2TimeUnits = "microseconds since 1990-01-01 00:00:00"

// L2TimeEpoch is the reference instant of L2TimeUnits.
var L2TimeEpoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

var timeUnitScales = map[string]time.Duration{
	"days":         24 * time.Hour,
	"hours":        time.Hour,
	"minutes":      time.Minute,
	"seconds":      time.Second,
	"milliseconds": time.Millisecond,
	"microseconds": time.Microsecond,
}

var timeEpochLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimeUnits parses a CF "unit since epoch" time units string. ok is
// false when the string is not a recognized time encoding.
func ParseTimeUnits(units string) (scale time.Duration, epoch time.Time, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, false
	}
	scale, ok = timeUnitScales[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, time.Time{}, false
	}
	stamp := strings.TrimSpace(parts[1])
	for _, layout := range timeEpochLayouts {
		if t, err := time.Parse(layout, stamp); err == nil {
			return scale, t.UTC(), true
		}
	}
	return 0, time.Time{}, false
}

// ConvertTimes re-encodes raw time values from one CF units string to
// another. ok is false when either units string is unparseable.
func ConvertTimes(values []float64, fromUnits, toUnits string) ([]float64, bool) {
	fromScale, fromEpoch, ok := ParseTimeUnits(fromUnits)
	if !ok {
		return nil, false
	}
	toScale, toEpoch, ok := ParseTimeUnits(toUnits)
	if !ok {
		return nil, false
	}
	offset := fromEpoch.Sub(toEpoch)
	out := make([]float64, len(values))
	for i, v := range values {
		d := time.Duration(v*float64(fromScale)) + offset
		out[i] = float64(d) / float64(toScale)
	}
	return out, true
}
