package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOperationCounters(t *testing.T) {
	r := prometheus.NewRegistry()
	m, err := New(r)
	require.NoError(t, err)

	m.Operation("swap", nil)
	m.Operation("swap", nil)
	m.Operation("swap", errors.New("boom"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("swap", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("swap", "error")))

	m.Swap("0xpool", 250)
	m.Ltwap("0xpool", 2_000_000_000)
	require.Equal(t, 1.0, testutil.ToFloat64(m.swaps))
	require.Equal(t, 250.0, testutil.ToFloat64(m.swapVolume.WithLabelValues("0xpool")))
	require.Equal(t, 2e9, testutil.ToFloat64(m.ltwap.WithLabelValues("0xpool")))

	_, err = New(r)
	require.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Operation("swap", nil)
	m.Swap("p", 1)
	m.Proposal("passed")
	m.Ltwap("p", 1)
}
