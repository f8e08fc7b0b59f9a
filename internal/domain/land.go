package domain

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// IsLandOnly reports whether every acquisition of a Level-1 dataset was made
// over land. Datasets without a land flag are treated as ocean.
func IsLandOnly(ds *Dataset) bool {
	lf := ds.Var("land_flag")
	if lf == nil || len(lf.Values) == 0 {
		return false
	}
	for _, v := range lf.Values {
		if v == 0 {
			return false
		}
	}
	return true
}

// BuildLandProduct assembles a Level-2 product for a land-only acquisition
// from a reference template: kept variables present in the Level-1 dataset
// are copied through, variables known only to the template are NaN-filled at
// the template's per-acquisition shape, and template coordinates not covered
// by the Level-1 dataset carry over. Global attributes come from the Level-1
// dataset.
func BuildLandProduct(land, ref *Dataset, kept []string) (*Dataset, error) {
	if ref == nil {
		return nil, fmt.Errorf("land-only acquisition but no reference product configured")
	}
	n, ok := land.Dims["time"]
	if !ok {
		return nil, fmt.Errorf("land dataset has no time dimension")
	}

	out := NewDataset()
	out.Dims["time"] = n

	for _, name := range kept {
		switch {
		case land.Has(name):
			v := cloneVariable(land.Var(name))
			for _, d := range v.Dims {
				if _, ok := out.Dims[d]; !ok {
					out.Dims[d] = land.Dims[d]
				}
			}
			if err := out.AddVar(name, v); err != nil {
				return nil, err
			}
		case ref.Has(name):
			if err := nanFillFromRef(out, ref, name, n); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("kept variable %q present in neither land dataset nor reference", name)
		}
	}

	// The rest of the template layout carries over: coordinates unchanged,
	// retrieved variables and quality flags NaN-filled at the acquisition
	// count.
	for _, name := range ref.VarNames() {
		rv := ref.Var(name)
		if out.Has(name) {
			continue
		}
		isCoord := !slices.Contains(rv.Dims, "time") &&
			(len(rv.Dims) == 0 || (len(rv.Dims) == 1 && rv.Dims[0] == name))
		if isCoord {
			if len(rv.Dims) == 1 {
				if _, ok := out.Dims[name]; !ok {
					out.Dims[name] = ref.Dims[name]
				}
			}
			if err := out.AddVar(name, cloneVariable(rv)); err != nil {
				return nil, err
			}
			continue
		}
		if err := nanFillFromRef(out, ref, name, n); err != nil {
			return nil, err
		}
	}

	for k, v := range land.Attrs {
		out.Attrs[k] = v
	}
	return out, nil
}

// nanFillFromRef adds a NaN-filled variable to out with the reference
// variable's shape, time expanded to n acquisitions.
func nanFillFromRef(out, ref *Dataset, name string, n int) error {
	rv := ref.Var(name)
	if rv.Strings != nil {
		return fmt.Errorf("cannot blank string variable %q", name)
	}
	dims := make([]string, 0, len(rv.Dims)+1)
	size := 1
	if !slices.Contains(rv.Dims, "time") {
		dims = append(dims, "time")
	}
	for _, d := range rv.Dims {
		dims = append(dims, d)
		if d == "time" {
			continue
		}
		if _, ok := out.Dims[d]; !ok {
			out.Dims[d] = ref.Dims[d]
		}
		size *= ref.Dims[d]
	}
	dtype := rv.DType
	if dtype == "" {
		dtype = "float32"
	}
	// Integer variables are quality flags; 0 means not assessed.
	fill := math.NaN()
	if dtype == "int8" || dtype == "int32" || dtype == "int64" {
		fill = 0
	}
	values := make([]float64, n*size)
	for i := range values {
		values[i] = fill
	}
	attrs := make(map[string]any, len(rv.Attrs))
	for k, a := range rv.Attrs {
		attrs[k] = a
	}
	return out.AddVar(name, &Variable{Dims: dims, Values: values, DType: dtype, Attrs: attrs})
}

// BuildReferenceTemplate turns a retrieved Level-2 product into the blanked
// single-acquisition template used for land-only products: first acquisition
// only, all float payloads NaN, epoch time, zeroed position, no global
// attributes. The template must be regenerated whenever the product layout
// changes.
func BuildReferenceTemplate(l2 *Dataset) (*Dataset, error) {
	ref, err := IselTime(l2, 0)
	if err != nil {
		return nil, err
	}
	ref.Blank()

	if tv := ref.Var("time"); tv != nil {
		epoch := time.Unix(0, 0).UTC()
		for i := range tv.Values {
			tv.Values[i] = 0
		}
		if tv.Attrs == nil {
			tv.Attrs = map[string]any{}
		}
		tv.Attrs["units"] = "seconds since " + epoch.Format("2006-01-02 15:04:05")
	}
	for _, coord := range []string{"lon", "lat", "longitude", "latitude"} {
		if v := ref.Var(coord); v != nil {
			for i := range v.Values {
				v.Values[i] = 0
			}
		}
	}
	ref.Attrs = map[string]any{}
	return ref, nil
}
