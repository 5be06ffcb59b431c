package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestMetrics_Totals(t *testing.T) {
	m, err := NewMetrics("pinstate-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	counter, err := m.Meter("test").Int64Counter("test.clicks")
	require.NoError(t, err)
	counter.Add(context.Background(), 2, metric.WithAttributes(attribute.String("kind", "a")))
	counter.Add(context.Background(), 3, metric.WithAttributes(attribute.String("kind", "b")))

	gauge, err := m.Meter("test").Int64ObservableGauge("test.active")
	require.NoError(t, err)
	_, err = m.Meter("test").RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, 7)
		return nil
	}, gauge)
	require.NoError(t, err)

	totals, err := m.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), totals["test.clicks"])
	assert.Equal(t, int64(7), totals["test.active"])
}

func TestMetrics_InstalledGlobally(t *testing.T) {
	m, err := NewMetrics("pinstate-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	counter, err := otel.Meter("global").Int64Counter("test.global")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	totals, err := m.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals["test.global"])
}
