package netcdf

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/google/renameio/v2"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// FillValue marks masked float samples in output products.
const FillValue = float32(1e20)

// Writer persists Level-2P products. It implements pipeline.DatasetWriter.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write serializes a dataset to path. The parent directory is created if
// missing and the file appears atomically: a reader never observes a partial
// product. Time is re-encoded to the project epoch and float NaNs become the
// fill value.
func (w *Writer) Write(path string, ds *domain.Dataset) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending output file: %w", err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil && err == nil {
			w.logger.Debug("cleanup pending output file", "error", cerr)
		}
	}()

	// The netCDF writer needs a path of its own, so it targets the pending
	// file's temporary name; the rename below publishes it.
	if err := writeTo(pending.Name(), ds); err != nil {
		return err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace output file: %w", err)
	}
	return nil
}

func writeTo(path string, ds *domain.Dataset) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("open netcdf writer: %w", err)
	}

	globals, err := orderedAttrs(ds.Attrs)
	if err != nil {
		return fmt.Errorf("encode global attributes: %w", err)
	}
	if err := cw.AddAttributes(globals); err != nil {
		return fmt.Errorf("write global attributes: %w", err)
	}

	for _, name := range ds.VarNames() {
		v := ds.Var(name)
		av, err := encodeVariable(name, v, ds.Shape(v))
		if err != nil {
			return fmt.Errorf("encode variable %s: %w", name, err)
		}
		if err := cw.AddVar(name, av); err != nil {
			return fmt.Errorf("write variable %s: %w", name, err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("close netcdf writer: %w", err)
	}
	return nil
}

// encodeVariable converts a domain variable into the typed nested
// representation the netCDF writer expects, applying the output time
// encoding and fill values on the way.
func encodeVariable(name string, v *domain.Variable, shape []int) (api.Variable, error) {
	attrs := make(map[string]any, len(v.Attrs)+1)
	for k, a := range v.Attrs {
		attrs[k] = a
	}

	values := v.Values
	dtype := v.DType

	if name == "time" {
		units, _ := attrs["units"].(string)
		if units == "" {
			units = domain.L2TimeUnits
		}
		converted, ok := domain.ConvertTimes(values, units, domain.L2TimeUnits)
		if !ok {
			return api.Variable{}, fmt.Errorf("unparseable time units %q", units)
		}
		values = converted
		dtype = "int64"
		attrs["units"] = domain.L2TimeUnits
	}

	if dtype == "" {
		dtype = "float64"
	}
	if dtype == "float32" || dtype == "float64" {
		if hasNaN(values) {
			values = slices.Clone(values)
			for i, val := range values {
				if math.IsNaN(val) {
					values[i] = float64(FillValue)
				}
			}
			attrs["_FillValue"] = fillFor(dtype)
		}
	}

	var payload any
	var err error
	if v.Strings != nil {
		payload, err = nestStrings(v.Strings, shape)
	} else {
		payload, err = nestNumeric(values, shape, dtype)
	}
	if err != nil {
		return api.Variable{}, err
	}

	am, err := orderedAttrs(attrs)
	if err != nil {
		return api.Variable{}, err
	}
	return api.Variable{
		Values:     payload,
		Dimensions: slices.Clone(v.Dims),
		Attributes: am,
	}, nil
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func fillFor(dtype string) any {
	if dtype == "float64" {
		return float64(FillValue)
	}
	return FillValue
}

// nestNumeric reshapes a flat row-major payload into nested typed slices.
// Products are rank 3 at most (time x k_gp x phi_hf).
func nestNumeric(values []float64, shape []int, dtype string) (any, error) {
	switch len(shape) {
	case 0:
		if len(values) != 1 {
			return nil, fmt.Errorf("scalar with %d values", len(values))
		}
		return castScalar(values[0], dtype), nil
	case 1:
		return cast1D(values, dtype), nil
	case 2:
		return nest2D(values, shape, dtype)
	case 3:
		// Spectral blocks are stored single-precision regardless of dtype.
		return nest3D(values, shape)
	default:
		return nil, fmt.Errorf("unsupported rank %d", len(shape))
	}
}

func nest2D(values []float64, shape []int, dtype string) (any, error) {
	if len(values) != shape[0]*shape[1] {
		return nil, fmt.Errorf("shape %v implies %d values, have %d", shape, shape[0]*shape[1], len(values))
	}
	switch dtype {
	case "float64":
		out := make([][]float64, shape[0])
		for i := range out {
			out[i] = values[i*shape[1] : (i+1)*shape[1]]
		}
		return out, nil
	default:
		out := make([][]float32, shape[0])
		for i := range out {
			row := make([]float32, shape[1])
			for j := range row {
				row[j] = float32(values[i*shape[1]+j])
			}
			out[i] = row
		}
		return out, nil
	}
}

func nest3D(values []float64, shape []int) (any, error) {
	n := shape[0] * shape[1] * shape[2]
	if len(values) != n {
		return nil, fmt.Errorf("shape %v implies %d values, have %d", shape, n, len(values))
	}
	inner := shape[1] * shape[2]
	out := make([][][]float32, shape[0])
	for i := range out {
		plane := make([][]float32, shape[1])
		for j := range plane {
			row := make([]float32, shape[2])
			for k := range row {
				row[k] = float32(values[i*inner+j*shape[2]+k])
			}
			plane[j] = row
		}
		out[i] = plane
	}
	return out, nil
}

func cast1D(values []float64, dtype string) any {
	switch dtype {
	case "float64":
		return slices.Clone(values)
	case "int8":
		out := make([]int8, len(values))
		for i, v := range values {
			out[i] = int8(v)
		}
		return out
	case "int32":
		out := make([]int32, len(values))
		for i, v := range values {
			out[i] = int32(v)
		}
		return out
	case "int64":
		out := make([]int64, len(values))
		for i, v := range values {
			out[i] = int64(v)
		}
		return out
	default:
		out := make([]float32, len(values))
		for i, v := range values {
			out[i] = float32(v)
		}
		return out
	}
}

func castScalar(v float64, dtype string) any {
	switch dtype {
	case "float64":
		return v
	case "int8":
		return int8(v)
	case "int32":
		return int32(v)
	case "int64":
		return int64(v)
	default:
		return float32(v)
	}
}

func nestStrings(values []string, shape []int) (any, error) {
	switch len(shape) {
	case 0:
		if len(values) != 1 {
			return nil, fmt.Errorf("scalar string variable with %d values", len(values))
		}
		return values[0], nil
	case 1:
		return slices.Clone(values), nil
	default:
		return nil, fmt.Errorf("unsupported string rank %d", len(shape))
	}
}

// orderedAttrs builds the writer's attribute map with deterministic key
// order so repeated runs produce byte-identical headers.
func orderedAttrs(attrs map[string]any) (api.AttributeMap, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]any, len(attrs))
	for k, v := range attrs {
		values[k] = normalizeAttr(v)
	}
	om, err := util.NewOrderedMap(keys, values)
	if err != nil {
		return nil, fmt.Errorf("order attributes: %w", err)
	}
	return om, nil
}

// normalizeAttr maps attribute values onto types the classic writer accepts.
func normalizeAttr(v any) any {
	switch t := v.(type) {
	case int:
		return int32(t)
	case int64:
		return t
	case bool:
		if t {
			return int8(1)
		}
		return int8(0)
	case []any:
		out := make([]float64, 0, len(t))
		for _, e := range t {
			if f, ok := e.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	default:
		return v
	}
}
