package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs, "go runtime metrics should be registered")
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{400, "4xx"},
		{413, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/results", tt.status, 0.01)

			mf := findFamily(t, reg, "http_requests_total")
			require.NotNil(t, mf)
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, tt.expected, labelValue(mf.GetMetric()[0], "status"))
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mf := findFamily(t, reg, "http_requests_in_flight")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest("success", 1.5)
	reg.RecordBacktest("failure", 0.2)
	reg.RecordBacktest("success", 2.5)

	mf := findFamily(t, reg, "quantview_backtests_total")
	require.NotNil(t, mf)
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "status")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts["success"])
	assert.Equal(t, 1.0, counts["failure"])

	hist := findFamily(t, reg, "quantview_backtest_duration_seconds")
	require.NotNil(t, hist)
	h := hist.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(3), h.GetSampleCount())
	assert.InDelta(t, 4.2, h.GetSampleSum(), 1e-9)
}

func TestRegistry_BusinessCounters(t *testing.T) {
	reg := NewRegistry()

	reg.RecordStrategyFallback()
	reg.RecordUpload("accepted")
	reg.RecordUpload("rejected")
	reg.RecordExport("skipped")
	reg.RecordStaleResult()
	reg.SetSessionsActive(3)

	mf := findFamily(t, reg, "quantview_strategy_fallbacks_total")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())

	mf = findFamily(t, reg, "quantview_uploads_total")
	require.NotNil(t, mf)
	assert.Len(t, mf.GetMetric(), 2)

	mf = findFamily(t, reg, "quantview_exports_total")
	require.NotNil(t, mf)
	assert.Equal(t, "skipped", labelValue(mf.GetMetric()[0], "result"))

	mf = findFamily(t, reg, "quantview_stale_results_dropped_total")
	require.NotNil(t, mf)
	assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())

	mf = findFamily(t, reg, "quantview_sessions_active")
	require.NotNil(t, mf)
	assert.Equal(t, 3.0, mf.GetMetric()[0].GetGauge().GetValue())
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
