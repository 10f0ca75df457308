package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RequestCreated()
	m.RequestCreated()
	m.RequestConfirmed("worker")
	m.Submission("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmed.WithLabelValues("worker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RequestCreated()
		m.RequestConfirmed("api")
		m.Submission("ok")
		m.HTTPRequest("/health", "200")
	})
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}
