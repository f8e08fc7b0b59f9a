// Package netcdf adapts between on-disk netCDF files and the in-memory
// dataset model. Reading understands both classic and netCDF4/HDF5 Level-1
// files; writing always produces classic-format Level-2P products with the
// project's fill value and time encoding.
package netcdf

import (
	"fmt"
	"math"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/umr-lops/asar-seastate-processor/internal/domain"
)

// Reader loads Level-1 products. It implements pipeline.DatasetReader.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads every variable and attribute of the file's root group into a
// dataset.
func (r *Reader) Read(path string) (*domain.Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer g.Close()

	ds := domain.NewDataset()
	ds.Attrs = attributesToMap(g.Attributes())

	for _, name := range g.ListVariables() {
		v, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: variable %s: %w", path, name, err)
		}
		dv, err := toDomainVariable(v)
		if err != nil {
			return nil, fmt.Errorf("read %s: variable %s: %w", path, name, err)
		}
		if err := registerDims(ds, dv, v.Dimensions); err != nil {
			return nil, fmt.Errorf("read %s: variable %s: %w", path, name, err)
		}
		if err := ds.AddVar(name, dv); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return ds, nil
}

// registerDims records dimension sizes from a variable's flattened shape.
func registerDims(ds *domain.Dataset, dv *domain.Variable, dims []string) error {
	shape := dv.Attrs["__shape"].([]int)
	delete(dv.Attrs, "__shape")
	if len(shape) != len(dims) {
		return fmt.Errorf("rank %d payload with %d dimensions", len(shape), len(dims))
	}
	for i, d := range dims {
		if have, ok := ds.Dims[d]; ok {
			if have != shape[i] {
				return fmt.Errorf("dimension %q is %d here but %d elsewhere", d, shape[i], have)
			}
			continue
		}
		ds.Dims[d] = shape[i]
	}
	dv.Dims = dims
	return nil
}

// toDomainVariable flattens a possibly nested typed payload into the flat
// float64 (or string) representation the domain model uses. The original
// shape travels in a temporary attribute consumed by registerDims.
func toDomainVariable(v *api.Variable) (*domain.Variable, error) {
	attrs := attributesToMap(v.Attributes)

	dv := &domain.Variable{Attrs: attrs}
	shape, err := flattenInto(reflect.ValueOf(v.Values), dv)
	if err != nil {
		return nil, err
	}
	decodeFill(dv)
	dv.Attrs["__shape"] = shape
	return dv, nil
}

// decodeFill turns fill-valued samples back into NaN. The writer re-encodes
// them on output, so the attribute itself is dropped.
func decodeFill(dv *domain.Variable) {
	raw, ok := dv.Attrs["_FillValue"]
	if !ok || dv.Strings != nil {
		return
	}
	rv := reflect.ValueOf(raw)
	fill, ok := numericValue(rv)
	if !ok && rv.Kind() == reflect.Slice && rv.Len() == 1 {
		fill, ok = numericValue(rv.Index(0))
	}
	if !ok {
		return
	}
	for i, v := range dv.Values {
		if v == fill {
			dv.Values[i] = math.NaN()
		}
	}
	delete(dv.Attrs, "_FillValue")
}

// flattenInto walks nested slices depth-first, filling either Values or
// Strings, and returns the nested shape.
func flattenInto(rv reflect.Value, dv *domain.Variable) ([]int, error) {
	// Scalars read back as rank-0: treat as length-1 payloads.
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.String {
		f, ok := numericValue(rv)
		if !ok {
			return nil, fmt.Errorf("unsupported scalar type %s", rv.Kind())
		}
		dv.Values = []float64{f}
		dv.DType = dtypeFor(rv.Kind())
		return []int{}, nil
	}
	if rv.Kind() == reflect.String {
		dv.Strings = []string{rv.String()}
		dv.DType = "string"
		return []int{}, nil
	}

	var shape []int
	cur := rv
	for cur.Kind() == reflect.Slice {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}

	var walk func(v reflect.Value) error
	walk = func(v reflect.Value) error {
		if v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				if err := walk(v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		if v.Kind() == reflect.String {
			dv.Strings = append(dv.Strings, v.String())
			dv.DType = "string"
			return nil
		}
		f, ok := numericValue(v)
		if !ok {
			return fmt.Errorf("unsupported element type %s", v.Kind())
		}
		dv.Values = append(dv.Values, f)
		if dv.DType == "" {
			dv.DType = dtypeFor(v.Kind())
		}
		return nil
	}
	if err := walk(rv); err != nil {
		return nil, err
	}
	return shape, nil
}

func numericValue(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(v.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	}
	return 0, false
}

func dtypeFor(k reflect.Kind) string {
	switch k {
	case reflect.Float32:
		return "float32"
	case reflect.Float64:
		return "float64"
	case reflect.Int8, reflect.Uint8:
		return "int8"
	case reflect.Int16:
		return "int32"
	case reflect.Int32:
		return "int32"
	case reflect.Int64, reflect.Int:
		return "int64"
	}
	return "float64"
}

func attributesToMap(am api.AttributeMap) map[string]any {
	out := make(map[string]any)
	if am == nil {
		return out
	}
	for _, k := range am.Keys() {
		if v, ok := am.Get(k); ok {
			out[k] = v
		}
	}
	return out
}
