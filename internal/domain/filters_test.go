package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilterDatasets(t *testing.T) (l1, l2 *Dataset) {
	t.Helper()
	l1 = NewDataset()
	l1.Dims["time"] = 4
	require.NoError(t, l1.AddVar("sigma0", &Variable{
		Dims: []string{"time"}, Values: []float64{0.5, 5.0, 1.0, 2.0},
	}))

	l2 = NewDataset()
	l2.Dims["time"] = 4
	l2.Dims["k_gp"] = 2
	require.NoError(t, l2.AddVar("time", &Variable{
		Dims: []string{"time"}, Values: []float64{1, 2, 3, 4},
	}))
	require.NoError(t, l2.AddVar("swh", &Variable{
		Dims: []string{"time"}, Values: []float64{2.1, 2.2, 2.3, 2.4}, DType: "float32",
	}))
	require.NoError(t, l2.AddVar("spectra", &Variable{
		Dims: []string{"time", "k_gp"}, Values: []float64{1, 2, 3, 4, 5, 6, 7, 8}, DType: "float32",
	}))
	require.NoError(t, l2.AddVar("flag", &Variable{
		Dims: []string{"time"}, Values: []float64{1, 1, 1, 1}, DType: "int8",
	}))
	return l1, l2
}

func TestApplyRangeFilters(t *testing.T) {
	t.Run("masks acquisitions outside range", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		err := ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"sigma0": {Min: 0.8, Max: 3.0},
		})
		require.NoError(t, err)

		swh := l2.Var("swh").Values
		assert.True(t, math.IsNaN(swh[0]))
		assert.True(t, math.IsNaN(swh[1]))
		assert.Equal(t, 2.3, swh[2])
		assert.Equal(t, 2.4, swh[3])

		// Multi-dimensional variables mask whole acquisitions.
		spectra := l2.Var("spectra").Values
		assert.True(t, math.IsNaN(spectra[0]))
		assert.True(t, math.IsNaN(spectra[1]))
		assert.Equal(t, 5.0, spectra[4])
	})

	t.Run("leaves time and integer variables alone", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		err := ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"sigma0": {Min: 0.8, Max: 3.0},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4}, l2.Var("time").Values)
		assert.Equal(t, []float64{1, 1, 1, 1}, l2.Var("flag").Values)
	})

	t.Run("NaN in the filtered variable masks", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		l1.Var("sigma0").Values[2] = math.NaN()
		err := ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"sigma0": {Min: 0, Max: 10},
		})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(l2.Var("swh").Values[2]))
		assert.Equal(t, 2.4, l2.Var("swh").Values[3])
	})

	t.Run("no filters is a no-op", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		require.NoError(t, ApplyRangeFilters(l1, l2, nil))
		assert.Equal(t, 2.1, l2.Var("swh").Values[0])
	})

	t.Run("empty time dimension is a no-op", func(t *testing.T) {
		l1 := NewDataset()
		l1.Dims["time"] = 0
		require.NoError(t, l1.AddVar("sigma0", &Variable{
			Dims: []string{"time"}, Values: []float64{},
		}))
		l2 := NewDataset()
		l2.Dims["time"] = 0
		require.NoError(t, l2.AddVar("swh", &Variable{
			Dims: []string{"time"}, Values: []float64{}, DType: "float32",
		}))

		require.NoError(t, ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"sigma0": {Min: 0, Max: 1},
		}))
	})

	t.Run("time length mismatch", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		l2.Dims["time"] = 3
		err := ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"sigma0": {Min: 0, Max: 1},
		})
		assert.ErrorContains(t, err, "does not match")
	})

	t.Run("missing variable", func(t *testing.T) {
		l1, l2 := newFilterDatasets(t)
		err := ApplyRangeFilters(l1, l2, map[string]RangeFilter{
			"nope": {Min: 0, Max: 1},
		})
		assert.ErrorContains(t, err, "missing variable")
	})
}

func TestAddQualityFlags(t *testing.T) {
	newDS := func(t *testing.T) *Dataset {
		ds := NewDataset()
		ds.Dims["time"] = 4
		require.NoError(t, ds.AddVar("swh_confidence", &Variable{
			Dims:   []string{"time"},
			Values: []float64{0.1, 0.5, 2.0, math.NaN()},
			DType:  "float32",
		}))
		return ds
	}
	vars := map[string]QualityVariable{
		"swh_quality": {
			Input:      "swh_confidence",
			Thresholds: [2]float64{0.3, 1.0},
			Attrs:      map[string]any{"long_name": "significant wave height quality flag"},
		},
	}

	t.Run("derives three-level flags with NaN as not assessed", func(t *testing.T) {
		ds := newDS(t)
		require.NoError(t, AddQualityFlags(ds, vars, false))

		q := ds.Var("swh_quality")
		require.NotNil(t, q)
		assert.Equal(t, []float64{1, 2, 3, 0}, q.Values)
		assert.Equal(t, "int8", q.DType)
		assert.Equal(t, "significant wave height quality flag", q.Attrs["long_name"])
		assert.True(t, ds.Has("swh_confidence"))
	})

	t.Run("drop confidence removes the input", func(t *testing.T) {
		ds := newDS(t)
		require.NoError(t, AddQualityFlags(ds, vars, true))
		assert.False(t, ds.Has("swh_confidence"))
		assert.True(t, ds.Has("swh_quality"))
	})

	t.Run("missing confidence variable", func(t *testing.T) {
		ds := newDS(t)
		err := AddQualityFlags(ds, map[string]QualityVariable{
			"q": {Input: "nope", Thresholds: [2]float64{0, 1}},
		}, false)
		assert.ErrorContains(t, err, "missing confidence variable")
	})
}
