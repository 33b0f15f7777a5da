package telemetry_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fixedStats sql.DBStats

func (s fixedStats) Stats() sql.DBStats { return sql.DBStats(s) }

func TestDBPoolMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)

	m, err := telemetry.NewDBPoolMetrics(provider.Meter("test"), fixedStats{
		MaxOpenConnections: 25,
		InUse:              3,
		Idle:               7,
		WaitCount:          4,
		WaitDuration:       1500 * time.Millisecond,
	})
	require.NoError(t, err)

	metrics := collect(t, reader)

	gauge, ok := metrics["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	byState := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(telemetry.AttrPoolState)
		byState[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"in_use": 3, "idle": 7}, byState)

	maxOpen, ok := metrics["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(25), maxOpen.DataPoints[0].Value)

	waits, ok := metrics["db_pool_wait_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(4), waits.DataPoints[0].Value)

	waitDuration, ok := metrics["db_pool_wait_duration_seconds"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.InDelta(t, 1.5, waitDuration.DataPoints[0].Value, 1e-9)

	assert.NoError(t, m.Stop())
}
