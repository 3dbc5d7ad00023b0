// Package reservoir provides a generic, bounded pool for expensive-to-create
// resources such as database connections, protocol clients and message
// producers.
//
// A pool hands resources out with Get, takes them back with Put and keeps
// itself topped up in the background: factory calls run concurrently, failed
// calls are retried with capped equal-jitter exponential backoff, and
// concurrent fill or drain requests coalesce into a single cycle.
//
// # Quick Start
//
// Pool a resource type by supplying a factory and, optionally, a destructor
// and health checks:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/reservoir/pkg/pool"
//	)
//
//	cfg := pool.DefaultConfig[*pgx.Conn]("postgres")
//	cfg.Factory = func(ctx context.Context) (*pgx.Conn, error) {
//	    return pgx.Connect(ctx, dsn)
//	}
//	cfg.Destructor = func(ctx context.Context, conn *pgx.Conn) error {
//	    return conn.Close(ctx)
//	}
//	cfg.IsOK = func(ctx context.Context, conn *pgx.Conn) bool {
//	    return conn.Ping(ctx) == nil
//	}
//
//	p, err := pool.New(context.Background(), cfg)
//	if err != nil {
//	    return err
//	}
//	defer p.Drain(context.Background())
//
//	err = p.Use(ctx, func(ctx context.Context, conn *pgx.Conn) error {
//	    return conn.QueryRow(ctx, "select 1").Scan(&n)
//	})
//
// # Key Packages
//
//	pkg/pool     - The generic resource pool: Get/Put/Use, background fills,
//	               coalesced drains, health checks, prometheus collector
//	pkg/backoff  - Capped equal-jitter exponential backoff sequences
//
// # Behavior
//
// The buffer is strictly FIFO: Put appends at the tail and Get serves the
// oldest resource first, so resources age evenly instead of the hottest one
// being reused forever. Callers blocked on an empty buffer are served in
// arrival order.
//
// A Get that leaves the buffer at or below Min triggers a background refill
// to Max. A Get that finds the buffer empty blocks and triggers a small lazy
// fill on the spot. Fill cycles never run concurrently with each other or
// with a drain, and a drain cancels the backoff waits of any fill already in
// flight.
//
// # Configuration
//
// Pool parameters live in a Settings struct that can be loaded from YAML:
//
//	max: 10
//	min: 3
//	max_retries: 3
//	retry_delay: 1s
//	retry_delay_cap: 30s
//	buffer_on_start: true
//
// Environment variables are supported with ${VAR_NAME} syntax.
//
// # Observability
//
// Pools log through zap, emit fill/drain/use spans through OpenTelemetry
// when a TracerProvider is configured, and export their counters to
// prometheus via pool.NewCollector. See examples/observability.
package reservoir
