package domain

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// HindcastResult is a WAVEWATCH-III collocation: the hindcast significant
// wave height at the model node nearest an acquisition.
type HindcastResult struct {
	SWH        float64
	DistanceKM float64 // acquisition to model node
	AgeHours   float64 // acquisition time to model time step
}

// HindcastProvider collocates acquisitions against a wave hindcast.
type HindcastProvider interface {
	Collocate(ctx context.Context, lat, lon float64, t time.Time) (HindcastResult, error)
}

// ApplyHindcastCorrection relaxes retrieved swh values toward collocated
// hindcast estimates: swh' = (1-w)*swh + w*hindcast. A nil provider, a failed
// collocation, or a NaN on either side leaves the acquisition uncorrected.
// The returned attribute value records whether any correction was applied.
func ApplyHindcastCorrection(ctx context.Context, ds *Dataset, provider HindcastProvider, weight float64, logger *slog.Logger) string {
	if provider == nil || weight <= 0 {
		return "none"
	}
	swh := ds.Var("swh")
	lat := coordVar(ds, "lat", "latitude")
	lon := coordVar(ds, "lon", "longitude")
	tv := ds.Var("time")
	if swh == nil || lat == nil || lon == nil || tv == nil {
		return "none"
	}

	times, ok := decodeTimes(tv)
	if !ok || len(times) != len(swh.Values) {
		return "none"
	}

	corrected := 0
	for i := range swh.Values {
		if math.IsNaN(swh.Values[i]) {
			continue
		}
		res, err := provider.Collocate(ctx, lat.Values[i], lon.Values[i], times[i])
		if err != nil {
			logger.Warn("hindcast collocation failed",
				"lat", lat.Values[i], "lon", lon.Values[i], "error", err)
			continue
		}
		if math.IsNaN(res.SWH) {
			continue
		}
		swh.Values[i] = (1-weight)*swh.Values[i] + weight*res.SWH
		corrected++
	}
	if corrected == 0 {
		return "none"
	}
	return "ww3"
}

func coordVar(ds *Dataset, names ...string) *Variable {
	for _, n := range names {
		if v := ds.Var(n); v != nil {
			return v
		}
	}
	return nil
}

// decodeTimes interprets a time variable via its CF units attribute,
// supporting the epochs and resolutions Level-1 products actually use.
func decodeTimes(tv *Variable) ([]time.Time, bool) {
	units, _ := tv.Attrs["units"].(string)
	scale, epoch, ok := ParseTimeUnits(units)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, len(tv.Values))
	for i, v := range tv.Values {
		out[i] = epoch.Add(time.Duration(v * float64(scale)))
	}
	return out, true
}
