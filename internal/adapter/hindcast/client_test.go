package hindcast

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umr-lops/asar-seastate-processor/internal/observability"
)

func TestClient_Collocate(t *testing.T) {
	when := time.Date(2010, 1, 17, 9, 30, 29, 0, time.UTC)

	t.Run("successful collocation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/collocate", r.URL.Path)
			assert.Equal(t, "48.100000", r.URL.Query().Get("lat"))
			assert.Equal(t, "-4.500000", r.URL.Query().Get("lon"))
			assert.Equal(t, "2010-01-17T09:30:29Z", r.URL.Query().Get("time"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"swh": 2.75, "distance_km": 12.3, "age_hours": 1.5}`))
		}))
		defer srv.Close()

		m := observability.NewMetricsForTesting()
		c := NewClient(srv.URL, time.Second, slog.Default(), m)
		res, err := c.Collocate(context.Background(), 48.1, -4.5, when)
		require.NoError(t, err)

		assert.Equal(t, 2.75, res.SWH)
		assert.Equal(t, 12.3, res.DistanceKM)
		assert.Equal(t, 1.5, res.AgeHours)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.HindcastRequests.WithLabelValues("success")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.HindcastDuration))
	})

	t.Run("no collocated node", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "no node in range", http.StatusNotFound)
		}))
		defer srv.Close()

		m := observability.NewMetricsForTesting()
		c := NewClient(srv.URL, time.Second, slog.Default(), m)
		_, err := c.Collocate(context.Background(), 48.1, -4.5, when)
		assert.ErrorIs(t, err, ErrNoCollocation)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.HindcastRequests.WithLabelValues("empty")))
	})

	t.Run("service error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "node out of domain", http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		m := observability.NewMetricsForTesting()
		c := NewClient(srv.URL, time.Second, slog.Default(), m)
		_, err := c.Collocate(context.Background(), 48.1, -4.5, when)
		assert.ErrorContains(t, err, "status 422")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.HindcastRequests.WithLabelValues("error")))
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, time.Second, slog.Default(), observability.NewMetricsForTesting())
		_, err := c.Collocate(context.Background(), 48.1, -4.5, when)
		assert.ErrorContains(t, err, "decode response")
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"swh": 1}`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, 20*time.Millisecond, slog.Default(), observability.NewMetricsForTesting())
		_, err := c.Collocate(context.Background(), 48.1, -4.5, when)
		assert.Error(t, err)
	})
}
