package domain

import (
	"fmt"
	"math"
	"slices"
)

// Variable is a named array with dimensions and attributes. Numeric payloads
// live in Values regardless of on-disk type; label coordinates (such as the
// polarization axis) live in Strings. DType records the type the variable
// should be written back as.
type Variable struct {
	Dims    []string
	Values  []float64
	Strings []string
	DType   string // "float32", "float64", "int8", "int32", "int64", "string"
	Attrs   map[string]any
}

// Len returns the number of elements in the variable's payload.
func (v *Variable) Len() int {
	if v.Strings != nil {
		return len(v.Strings)
	}
	return len(v.Values)
}

// Dataset is an ordered collection of variables sharing named dimensions,
// with dataset-level attributes. It is the in-memory analogue of a netCDF
// group: adapters fill it from disk and the retrieval operates on it.
type Dataset struct {
	names []string
	vars  map[string]*Variable

	Dims  map[string]int
	Attrs map[string]any
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		vars:  make(map[string]*Variable),
		Dims:  make(map[string]int),
		Attrs: make(map[string]any),
	}
}

// AddVar adds or replaces a variable, preserving insertion order and
// registering any new dimensions from the variable's shape.
func (ds *Dataset) AddVar(name string, v *Variable) error {
	n := 1
	for _, d := range v.Dims {
		size, ok := ds.Dims[d]
		if !ok {
			return fmt.Errorf("variable %q references unknown dimension %q", name, d)
		}
		n *= size
	}
	if v.Len() != n {
		return fmt.Errorf("variable %q has %d values, dimensions %v imply %d", name, v.Len(), v.Dims, n)
	}
	if _, exists := ds.vars[name]; !exists {
		ds.names = append(ds.names, name)
	}
	ds.vars[name] = v
	return nil
}

// Var returns the named variable, or nil if absent.
func (ds *Dataset) Var(name string) *Variable {
	return ds.vars[name]
}

// Has reports whether the dataset contains the named variable.
func (ds *Dataset) Has(name string) bool {
	_, ok := ds.vars[name]
	return ok
}

// VarNames returns variable names in insertion order.
func (ds *Dataset) VarNames() []string {
	return slices.Clone(ds.names)
}

// DropVar removes a variable if present.
func (ds *Dataset) DropVar(name string) {
	if _, ok := ds.vars[name]; !ok {
		return
	}
	delete(ds.vars, name)
	ds.names = slices.DeleteFunc(ds.names, func(s string) bool { return s == name })
}

// Shape returns the per-dimension sizes of a variable.
func (ds *Dataset) Shape(v *Variable) []int {
	shape := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		shape[i] = ds.Dims[d]
	}
	return shape
}

// Clone deep-copies the dataset. Retrieval stages clone before mutating so
// the caller's input survives untouched.
func (ds *Dataset) Clone() *Dataset {
	out := NewDataset()
	for d, n := range ds.Dims {
		out.Dims[d] = n
	}
	for k, v := range ds.Attrs {
		out.Attrs[k] = v
	}
	for _, name := range ds.names {
		v := ds.vars[name]
		out.names = append(out.names, name)
		out.vars[name] = cloneVariable(v)
	}
	return out
}

func cloneVariable(v *Variable) *Variable {
	nv := &Variable{
		Dims:    slices.Clone(v.Dims),
		Values:  slices.Clone(v.Values),
		Strings: slices.Clone(v.Strings),
		DType:   v.DType,
	}
	if v.Attrs != nil {
		nv.Attrs = make(map[string]any, len(v.Attrs))
		for k, a := range v.Attrs {
			nv.Attrs[k] = a
		}
	}
	return nv
}

// Rename renames a variable and, when it names a dimension, the dimension
// with it (a coordinate rename such as longitude -> lon).
func (ds *Dataset) Rename(oldName, newName string) {
	v, ok := ds.vars[oldName]
	if !ok {
		return
	}
	delete(ds.vars, oldName)
	ds.vars[newName] = v
	for i, n := range ds.names {
		if n == oldName {
			ds.names[i] = newName
		}
	}
	if size, ok := ds.Dims[oldName]; ok {
		delete(ds.Dims, oldName)
		ds.Dims[newName] = size
		for _, vv := range ds.vars {
			for i, d := range vv.Dims {
				if d == oldName {
					vv.Dims[i] = newName
				}
			}
		}
	}
}

// SelectLabel subsets the dataset along a label dimension, keeping the single
// entry matching label. The dimension is dropped from subset variables and
// the label coordinate collapses to a dimensionless single-entry variable,
// so the selection survives into the output product.
func SelectLabel(ds *Dataset, dim, label string) (*Dataset, error) {
	coord := ds.Var(dim)
	if coord == nil || coord.Strings == nil {
		return nil, fmt.Errorf("no label coordinate %q", dim)
	}
	idx := slices.Index(coord.Strings, label)
	if idx < 0 {
		return nil, fmt.Errorf("label %q not found in coordinate %q (have %v)", label, dim, coord.Strings)
	}

	out := NewDataset()
	for d, n := range ds.Dims {
		if d != dim {
			out.Dims[d] = n
		}
	}
	for k, v := range ds.Attrs {
		out.Attrs[k] = v
	}
	for _, name := range ds.names {
		v := ds.vars[name]
		if name == dim {
			nv := cloneVariable(v)
			nv.Dims = nil
			nv.Strings = []string{label}
			out.names = append(out.names, name)
			out.vars[name] = nv
			continue
		}
		axis := slices.Index(v.Dims, dim)
		if axis < 0 {
			out.names = append(out.names, name)
			out.vars[name] = cloneVariable(v)
			continue
		}
		nv := cloneVariable(v)
		nv.Dims = slices.Delete(nv.Dims, axis, axis+1)
		if v.Strings != nil {
			sel, err := takeStringsAlongAxis(v.Strings, ds.Shape(v), axis, idx)
			if err != nil {
				return nil, fmt.Errorf("select %s[%s=%s]: %w", name, dim, label, err)
			}
			nv.Strings = sel
		} else {
			sel, err := takeAlongAxis(v.Values, ds.Shape(v), axis, idx)
			if err != nil {
				return nil, fmt.Errorf("select %s[%s=%s]: %w", name, dim, label, err)
			}
			nv.Values = sel
		}
		out.names = append(out.names, name)
		out.vars[name] = nv
	}
	return out, nil
}

// DropLabels removes entries of a label dimension, the inverse of
// [SelectLabel] for preprocessing directives such as dropping the HH
// polarization before retrieval.
func DropLabels(ds *Dataset, dim string, labels []string) (*Dataset, error) {
	coord := ds.Var(dim)
	if coord == nil || coord.Strings == nil {
		return nil, fmt.Errorf("no label coordinate %q", dim)
	}
	kept := make([]string, 0, len(coord.Strings))
	for _, l := range coord.Strings {
		if !slices.Contains(labels, l) {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(coord.Strings) {
		return ds.Clone(), nil
	}
	if len(kept) == 1 {
		return SelectLabel(ds, dim, kept[0])
	}
	return nil, fmt.Errorf("dropping %v from %q leaves %d labels, expected 1", labels, dim, len(kept))
}

// IselTime subsets the dataset to a single index along the time dimension,
// keeping time as a size-1 dimension. Used to build reference templates.
func IselTime(ds *Dataset, index int) (*Dataset, error) {
	n, ok := ds.Dims["time"]
	if !ok {
		return nil, fmt.Errorf("dataset has no time dimension")
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("time index %d out of range [0,%d)", index, n)
	}
	out := ds.Clone()
	out.Dims["time"] = 1
	for _, name := range out.names {
		v := out.vars[name]
		axis := slices.Index(v.Dims, "time")
		if axis < 0 {
			continue
		}
		if v.Strings != nil {
			sel, err := takeStringsAlongAxis(v.Strings, ds.Shape(ds.vars[name]), axis, index)
			if err != nil {
				return nil, err
			}
			v.Strings = sel
		} else {
			sel, err := takeAlongAxis(v.Values, ds.Shape(ds.vars[name]), axis, index)
			if err != nil {
				return nil, err
			}
			v.Values = sel
		}
		// time stays a dimension of size 1; payload length already matches.
	}
	return out, nil
}

// Blank replaces every float payload with NaN in place. Reference templates
// are blanked products.
func (ds *Dataset) Blank() {
	for _, name := range ds.names {
		v := ds.vars[name]
		if v.DType == "float32" || v.DType == "float64" || v.DType == "" {
			for i := range v.Values {
				v.Values[i] = math.NaN()
			}
		}
	}
}

// takeAlongAxis extracts the slice at a fixed index along one axis of a
// row-major array, returning the array with that axis removed.
func takeAlongAxis(values []float64, shape []int, axis, index int) ([]float64, error) {
	outer, inner, err := axisStrides(len(values), shape, axis, index)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values)/shape[axis])
	for o := 0; o < outer; o++ {
		base := o*shape[axis]*inner + index*inner
		out = append(out, values[base:base+inner]...)
	}
	return out, nil
}

func takeStringsAlongAxis(values []string, shape []int, axis, index int) ([]string, error) {
	outer, inner, err := axisStrides(len(values), shape, axis, index)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values)/shape[axis])
	for o := 0; o < outer; o++ {
		base := o*shape[axis]*inner + index*inner
		out = append(out, values[base:base+inner]...)
	}
	return out, nil
}

func axisStrides(n int, shape []int, axis, index int) (outer, inner int, err error) {
	if axis < 0 || axis >= len(shape) {
		return 0, 0, fmt.Errorf("axis %d out of range for shape %v", axis, shape)
	}
	if index < 0 || index >= shape[axis] {
		return 0, 0, fmt.Errorf("index %d out of range for axis size %d", index, shape[axis])
	}
	total := 1
	for _, s := range shape {
		total *= s
	}
	if total != n {
		return 0, 0, fmt.Errorf("shape %v implies %d values, have %d", shape, total, n)
	}
	outer, inner = 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, inner, nil
}
