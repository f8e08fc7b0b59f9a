package domain

import (
	"fmt"
	"math"
	"slices"
)

// RangeFilter bounds a Level-1 variable; acquisitions outside [Min, Max] are
// masked out of the Level-2 product.
type RangeFilter struct {
	Min float64
	Max float64
}

// ApplyRangeFilters masks Level-2 float variables to NaN for every
// acquisition where any filtered Level-1 variable falls outside its range.
// Only variables whose leading dimension is time are touched.
func ApplyRangeFilters(l1, l2 *Dataset, filters map[string]RangeFilter) error {
	if len(filters) == 0 {
		return nil
	}
	n, ok := l1.Dims["time"]
	if !ok {
		return fmt.Errorf("level-1 dataset has no time dimension")
	}
	if n == 0 {
		return nil
	}

	mask := make([]bool, n) // true = keep
	for i := range mask {
		mask[i] = true
	}
	for name, f := range filters {
		v := l1.Var(name)
		if v == nil {
			return fmt.Errorf("range filter on missing variable %q", name)
		}
		if len(v.Dims) != 1 || v.Dims[0] != "time" {
			return fmt.Errorf("range filter variable %q must be per-acquisition, has dims %v", name, v.Dims)
		}
		for i, val := range v.Values {
			if !(val >= f.Min && val <= f.Max) {
				mask[i] = false
			}
		}
	}

	if nt := l2.Dims["time"]; nt != n {
		return fmt.Errorf("level-2 time length %d does not match level-1 %d", nt, n)
	}

	for _, name := range l2.VarNames() {
		v := l2.Var(name)
		if v.Strings != nil || len(v.Dims) == 0 || v.Dims[0] != "time" || name == "time" {
			continue
		}
		if v.DType != "" && v.DType != "float32" && v.DType != "float64" {
			continue
		}
		inner := len(v.Values) / n
		for i := 0; i < n; i++ {
			if mask[i] {
				continue
			}
			for j := 0; j < inner; j++ {
				v.Values[i*inner+j] = math.NaN()
			}
		}
	}
	return nil
}

// QualityVariable turns a model confidence variable into a 3-level quality
// flag. Thresholds are [t1, t2): below t1 is good (1), below t2 acceptable
// (2), at or above t2 poor (3). NaN confidence maps to 0 (not assessed).
type QualityVariable struct {
	Input      string
	Thresholds [2]float64
	Attrs      map[string]any
}

// AddQualityFlags derives quality flag variables from configured confidence
// variables. When dropConfidence is set the raw confidence variables are
// removed after flag derivation.
func AddQualityFlags(ds *Dataset, vars map[string]QualityVariable, dropConfidence bool) error {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		qv := vars[name]
		conf := ds.Var(qv.Input)
		if conf == nil {
			return fmt.Errorf("quality flag %q: missing confidence variable %q", name, qv.Input)
		}
		t1, t2 := qv.Thresholds[0], qv.Thresholds[1]
		flags := make([]float64, len(conf.Values))
		for i, c := range conf.Values {
			switch {
			case math.IsNaN(c):
				flags[i] = 0
			case c < t1:
				flags[i] = 1
			case c < t2:
				flags[i] = 2
			default:
				flags[i] = 3
			}
		}
		attrs := make(map[string]any, len(qv.Attrs))
		for k, a := range qv.Attrs {
			attrs[k] = a
		}
		if err := ds.AddVar(name, &Variable{
			Dims:   slices.Clone(conf.Dims),
			Values: flags,
			DType:  "int8",
			Attrs:  attrs,
		}); err != nil {
			return fmt.Errorf("quality flag %q: %w", name, err)
		}
		if dropConfidence {
			ds.DropVar(qv.Input)
		}
	}
	return nil
}
