package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordClaim("ok", 3)
	m.RecordClaim("no_match", 0)
	m.RecordAbandon(2)
	m.RecordReconcile(4, 1)
	m.RecordHTTPRequest(http.MethodGet, "/api/v1/check-tasks/user", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.claimsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.claimsTotal.WithLabelValues("no_match")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.claimedImages))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.abandonedTasks))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.releasedImages))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.reconciledTasks))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/check-tasks/user", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordClaim("ok", 1)
		m.RecordAbandon(1)
		m.RecordReconcile(1, 1)
		m.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)
	_, err = New(registry)
	assert.Error(t, err)
}
