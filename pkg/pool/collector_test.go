package pool

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCollectorTestPool(t *testing.T) *Pool[*conn] {
	t.Helper()
	cfg := &Config[*conn]{
		Settings: testSettings(),
		Name:     "db",
		Factory:  func(ctx context.Context) (*conn, error) { return &conn{}, nil },
		Logger:   zaptest.NewLogger(t),
	}
	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return p
}

func TestCollectorDescribesAllMetrics(t *testing.T) {
	c := NewCollector(newCollectorTestPool(t))

	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var n int
	for range ch {
		n++
	}
	// Four gauges plus fourteen counters.
	assert.Equal(t, 18, n)
}

func TestCollectorRegisters(t *testing.T) {
	c := NewCollector(newCollectorTestPool(t))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 18)
}

func TestCollectorReportsPoolState(t *testing.T) {
	p := newCollectorTestPool(t)
	ctx := context.Background()
	require.NoError(t, p.Put(ctx, &conn{id: 1}))
	require.NoError(t, p.Put(ctx, &conn{id: 2}))

	c := NewCollector(p)

	expected := `
# HELP reservoir_pool_resources Resources currently buffered.
# TYPE reservoir_pool_resources gauge
reservoir_pool_resources{pool="db"} 2
# HELP reservoir_pool_waiting Get callers currently blocked on an empty buffer.
# TYPE reservoir_pool_waiting gauge
reservoir_pool_waiting{pool="db"} 0
# HELP reservoir_pool_puts_total Put calls.
# TYPE reservoir_pool_puts_total counter
reservoir_pool_puts_total{pool="db"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"reservoir_pool_resources",
		"reservoir_pool_waiting",
		"reservoir_pool_puts_total",
	))
}

func TestCollectorTracksDrain(t *testing.T) {
	p := newCollectorTestPool(t)
	ctx := context.Background()
	require.NoError(t, p.Put(ctx, &conn{id: 1}))
	require.NoError(t, p.Drain(ctx))

	c := NewCollector(p)

	expected := `
# HELP reservoir_pool_resources Resources currently buffered.
# TYPE reservoir_pool_resources gauge
reservoir_pool_resources{pool="db"} 0
# HELP reservoir_pool_destroyed_total Resources handed to the destructor.
# TYPE reservoir_pool_destroyed_total counter
reservoir_pool_destroyed_total{pool="db"} 1
# HELP reservoir_pool_drain_cycles_total Drain cycles run.
# TYPE reservoir_pool_drain_cycles_total counter
reservoir_pool_drain_cycles_total{pool="db"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"reservoir_pool_resources",
		"reservoir_pool_destroyed_total",
		"reservoir_pool_drain_cycles_total",
	))
}
