package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newL2Dataset(t *testing.T) *Dataset {
	t.Helper()
	ds := NewDataset()
	ds.Dims["time"] = 2
	require.NoError(t, ds.AddVar("time", &Variable{
		Dims: []string{"time"}, Values: []float64{100, 200},
	}))
	require.NoError(t, ds.AddVar("longitude", &Variable{
		Dims: []string{"time"}, Values: []float64{-4.5, -4.6},
	}))
	require.NoError(t, ds.AddVar("latitude", &Variable{
		Dims: []string{"time"}, Values: []float64{48.1, 48.2},
	}))
	require.NoError(t, ds.AddVar("swh", &Variable{
		Dims: []string{"time"}, Values: []float64{2.0, 2.5}, DType: "float32",
	}))
	ds.Attrs["time_coverage_start"] = "2010-01-17T09:30:29Z"
	ds.Attrs["time_coverage_end"] = "2010-01-17T09:31:35Z"
	return ds
}

func testProductName(t *testing.T) ProductName {
	t.Helper()
	name, err := ParseProductName("ASA_WVI_XSP__1SVV_20100117T093029_20100117T093135_086_00045_E3A.nc")
	require.NoError(t, err)
	return name
}

func TestFormatL2(t *testing.T) {
	frozen := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	t.Run("renames coordinates and applies attributes", func(t *testing.T) {
		ds := newL2Dataset(t)
		trackID, err := FormatL2(ds, testProductName(t), map[string]map[string]any{
			"swh": {"long_name": "significant wave height", "units": "m"},
		})
		require.NoError(t, err)

		assert.True(t, ds.Has("lon"))
		assert.True(t, ds.Has("lat"))
		assert.False(t, ds.Has("longitude"))
		assert.Equal(t, "degrees_east", ds.Var("lon").Attrs["units"])
		assert.Equal(t, "m", ds.Var("swh").Attrs["units"])

		_, err = uuid.Parse(trackID)
		assert.NoError(t, err)
		assert.Equal(t, trackID, ds.Attrs["track_id"])
	})

	t.Run("assembles global attributes", func(t *testing.T) {
		ds := newL2Dataset(t)
		_, err := FormatL2(ds, testProductName(t), nil)
		require.NoError(t, err)

		assert.Equal(t, "Envisat", ds.Attrs["platform"])
		assert.Equal(t, "ASAR", ds.Attrs["instrument"])
		assert.Equal(t, "L2P", ds.Attrs["processing_level"])
		assert.Equal(t, "?", ds.Attrs["references"])
		assert.Equal(t, int32(86), ds.Attrs["cycle"])
		assert.Equal(t, int32(45), ds.Attrs["relative_pass_number"])
		assert.Equal(t, "2024-04-26T12:00:00.000000", ds.Attrs["creation_date"])
		assert.Equal(t, "2024-04-26T12:00:00.000000 - Creation", ds.Attrs["history"])
		assert.Equal(t, "2010-01-17T09:30:29Z", ds.Attrs["time_coverage_start"])
		assert.Equal(t, "2010-01-17T09:31:35Z", ds.Attrs["time_coverage_end"])
	})

	t.Run("attributes for a missing variable fail", func(t *testing.T) {
		ds := newL2Dataset(t)
		_, err := FormatL2(ds, testProductName(t), map[string]map[string]any{
			"tm0": {"units": "s"},
		})
		assert.ErrorContains(t, err, "missing variable")
	})
}
