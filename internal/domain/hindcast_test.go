package domain

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	swh  float64
	err  error
	seen int
}

func (s *stubProvider) Collocate(_ context.Context, _, _ float64, _ time.Time) (HindcastResult, error) {
	s.seen++
	if s.err != nil {
		return HindcastResult{}, s.err
	}
	return HindcastResult{SWH: s.swh}, nil
}

func newHindcastDataset(t *testing.T) *Dataset {
	t.Helper()
	ds := NewDataset()
	ds.Dims["time"] = 2
	require.NoError(t, ds.AddVar("time", &Variable{
		Dims: []string{"time"}, Values: []float64{0, 60},
		Attrs: map[string]any{"units": "seconds since 2010-01-17 09:30:29"},
	}))
	require.NoError(t, ds.AddVar("lat", &Variable{
		Dims: []string{"time"}, Values: []float64{48.1, 48.2},
	}))
	require.NoError(t, ds.AddVar("lon", &Variable{
		Dims: []string{"time"}, Values: []float64{-4.5, -4.6},
	}))
	require.NoError(t, ds.AddVar("swh", &Variable{
		Dims: []string{"time"}, Values: []float64{2.0, math.NaN()}, DType: "float32",
	}))
	return ds
}

func TestApplyHindcastCorrection(t *testing.T) {
	logger := slog.Default()

	t.Run("relaxes toward the hindcast", func(t *testing.T) {
		ds := newHindcastDataset(t)
		p := &stubProvider{swh: 3.0}
		source := ApplyHindcastCorrection(context.Background(), ds, p, 0.2, logger)

		assert.Equal(t, "ww3", source)
		assert.InDelta(t, 0.8*2.0+0.2*3.0, ds.Var("swh").Values[0], 1e-9)
		// NaN retrievals are never collocated.
		assert.True(t, math.IsNaN(ds.Var("swh").Values[1]))
		assert.Equal(t, 1, p.seen)
	})

	t.Run("nil provider leaves values alone", func(t *testing.T) {
		ds := newHindcastDataset(t)
		source := ApplyHindcastCorrection(context.Background(), ds, nil, 0.2, logger)
		assert.Equal(t, "none", source)
		assert.Equal(t, 2.0, ds.Var("swh").Values[0])
	})

	t.Run("collocation errors leave values alone", func(t *testing.T) {
		ds := newHindcastDataset(t)
		p := &stubProvider{err: errors.New("boom")}
		source := ApplyHindcastCorrection(context.Background(), ds, p, 0.2, logger)
		assert.Equal(t, "none", source)
		assert.Equal(t, 2.0, ds.Var("swh").Values[0])
	})

	t.Run("undecodable time units disable correction", func(t *testing.T) {
		ds := newHindcastDataset(t)
		ds.Var("time").Attrs["units"] = "bogus"
		p := &stubProvider{swh: 3.0}
		source := ApplyHindcastCorrection(context.Background(), ds, p, 0.2, logger)
		assert.Equal(t, "none", source)
		assert.Equal(t, 0, p.seen)
	})
}
