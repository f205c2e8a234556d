package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_scheduler_job_runs_total",
	}, []string{"job"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "pulse_scheduler_job_duration_seconds",
	})
	registry.MustRegister(runs, duration)
	runs.WithLabelValues("daily_snapshot").Add(2)
	duration.Observe(0.4)
	return registry
}

func TestRemoteWritePushesCountersAndGauges(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	pusher := NewRemoteWritePusher(srv.URL, " secret ")
	pusher.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Len(t, got.Timeseries, 1)

	series := got.Timeseries[0]
	require.Len(t, series.Labels, 2)
	assert.Equal(t, "__name__", series.Labels[0].Name)
	assert.Equal(t, "pulse_scheduler_job_runs_total", series.Labels[0].Value)
	assert.Equal(t, "job", series.Labels[1].Name)
	require.Len(t, series.Samples, 1)
	assert.Equal(t, 2.0, series.Samples[0].Value)
	assert.Equal(t, int64(1700000000000), series.Samples[0].Timestamp)
}

func TestRemoteWriteReportsRejectedPush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPushgatewayReplacesJobGroup(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	registry := testRegistry(t)
	pusher := NewPushgatewayPusher(srv.URL, "pulse-scheduler", map[string]string{"environment": "test", "": "x"})
	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/pulse-scheduler"), path)
	assert.Contains(t, path, "/environment/test")
	assert.Contains(t, body, "scheduler_job")

	// collectors keep their original label
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				assert.NotEqual(t, "scheduler_job", label.GetName())
			}
		}
	}
}

func TestNewPusherFromConfig(t *testing.T) {
	log := zap.NewNop()
	base := config.Config{AppName: "pulse", Environment: "test"}

	assert.Nil(t, NewPusher(base, log))

	cfg := base
	cfg.MetricsPush = config.MetricsPushConfig{Enabled: true}
	assert.Nil(t, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Enabled: true, Exporter: "statsd", Endpoint: "http://x"}
	assert.Nil(t, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Enabled: true, Exporter: ExporterPrometheusRemoteWrite, Endpoint: "http://collector/api/v1/write"}
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, log))

	cfg.MetricsPush = config.MetricsPushConfig{Enabled: true, Exporter: ExporterPrometheusPushgateway, Endpoint: "http://gateway:9091"}
	pg, ok := NewPusher(cfg, log).(*PushgatewayPusher)
	require.True(t, ok)
	assert.Equal(t, "pulse-scheduler", pg.job)
}
