package metrics_test

import (
	"testing"

	"usersvc/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { metrics.Register(reg) })

	// Registering twice on the same registry is a programming error.
	assert.Panics(t, func() { metrics.Register(reg) })
}

func TestAuthOperationsLabels(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuthOperations.WithLabelValues("login", "not_found"))
	metrics.AuthOperations.WithLabelValues("login", "not_found").Inc()
	after := testutil.ToFloat64(metrics.AuthOperations.WithLabelValues("login", "not_found"))

	assert.Equal(t, before+1, after)
}
