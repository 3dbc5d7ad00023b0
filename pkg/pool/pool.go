// Package pool implements a generic, bounded pool of expensive-to-create
// resources such as network connections or protocol clients.
//
// Resources are produced by a caller-supplied factory, handed out by Get,
// recycled by Put and disposed by a caller-supplied destructor. The buffer
// is strictly FIFO (Put appends at the tail, Get serves the oldest resource
// first) and callers blocked on an empty buffer are served strictly in
// arrival order.
//
// The pool keeps itself topped up: a Get that leaves the buffer at or below
// the configured Min triggers a background fill back to Max, and a Get that
// finds the buffer empty triggers a small lazy fill while the caller waits.
// Fill cycles invoke the factory concurrently (one goroutine per missing
// resource), retry failed invocations with capped equal-jitter exponential
// backoff, and coalesce: no matter how many callers ask at once, at most one
// fill cycle runs at a time. Drain empties the buffer through the destructor
// with the same coalescing guarantee and cancels the backoff waits of any
// in-flight fill.
//
// Put guards the buffer: returns are rejected to the destructor when the
// pool is full or draining or when a health check fails, and a Put of a
// resource that is already buffered is a programmer error reported as a
// DuplicateValue error. Apart from that case and context cancellation, pool
// operations absorb and log internal failures instead of surfacing them,
// trading strict error propagation for liveness.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const tracerName = "github.com/ajitpratap0/reservoir/pkg/pool"

// Pool is a bounded FIFO pool of resources of type T. All methods are safe
// for concurrent use. T must be comparable because the pool tracks resource
// identity; pointer-like types are the expected shape.
type Pool[T comparable] struct {
	cfg    Config[T]
	logger *zap.Logger
	tracer trace.Tracer

	mu         sync.RWMutex
	buffer     []T
	waiters    []chan T
	filling    bool
	draining   bool
	fillDone   chan struct{}
	fillCancel context.CancelFunc
	drainDone  chan struct{}

	// Lifetime counters, updated atomically
	gets               int64
	hits               int64
	waits              int64
	puts               int64
	created            int64
	destroyed          int64
	rejected           int64
	duplicates         int64
	factoryFailures    int64
	retriesExhausted   int64
	destructorFailures int64
	callbackFailures   int64
	fillCycles         int64
	drainCycles        int64
}

// New validates cfg and constructs a pool. When BufferOnStart is set the
// initial fill to Max runs before New returns; its factory failures are
// logged, not returned, so a partially filled pool is still constructed.
func New[T comparable](ctx context.Context, cfg *Config[T]) (*Pool[T], error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	c := *cfg
	if c.Name == "" {
		c.Name = "pool"
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tp := c.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	p := &Pool[T]{
		cfg:    c,
		logger: logger.With(zap.String("component", "pool"), zap.String("pool", c.Name)),
		tracer: tp.Tracer(tracerName),
		buffer: make([]T, 0, c.Max),
	}

	if c.BufferOnStart {
		if err := p.fill(ctx, c.Max); err != nil {
			p.logger.Warn("initial fill incomplete", zap.Error(err))
		}
	}

	return p, nil
}

// Get returns the oldest buffered resource. When the buffer is empty it
// registers the caller as a waiter, kicks a lazy background fill and blocks
// until a resource is delivered or ctx is done. The returned error is ctx's
// only; internal pool failures never surface through Get.
func (p *Pool[T]) Get(ctx context.Context) (T, error) {
	atomic.AddInt64(&p.gets, 1)

	p.mu.Lock()
	if len(p.buffer) > 0 {
		x := p.popFrontLocked()
		p.mu.Unlock()
		atomic.AddInt64(&p.hits, 1)
		return x, nil
	}

	w := make(chan T, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	atomic.AddInt64(&p.waits, 1)

	// Lazy refill, fire-and-forget: the waiter is registered either way and
	// is served by whichever Put arrives first.
	target := p.cfg.Min
	if target < 1 {
		target = 1
	}
	go p.backgroundFill(target)

	select {
	case x := <-w:
		return x, nil
	case <-ctx.Done():
		var zero T
		p.mu.Lock()
		for i, q := range p.waiters {
			if q == w {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				p.mu.Unlock()
				return zero, ctx.Err()
			}
		}
		p.mu.Unlock()

		// Already dequeued: delivery happens under the pool lock, so the
		// resource is in the slot by now. Rebuffer it instead of leaking it.
		select {
		case x := <-w:
			go func() {
				if err := p.Put(context.Background(), x); err != nil {
					p.logger.Error("failed to rebuffer abandoned resource", zap.Error(err))
				}
			}()
		default:
		}
		return zero, ctx.Err()
	}
}

// Put returns a resource to the buffer. The resource is routed to the
// destructor instead, with a nil return, when the buffer is full, when the
// pool is draining, or when a health check reports it unhealthy (sync check
// first, then async, short-circuiting). Putting a resource that is already
// buffered returns a DuplicateValue error regardless of pool state.
func (p *Pool[T]) Put(ctx context.Context, x T) error {
	atomic.AddInt64(&p.puts, 1)

	p.mu.Lock()
	if p.bufferedLocked(x) {
		p.mu.Unlock()
		atomic.AddInt64(&p.duplicates, 1)
		return newError(KindDuplicateValue, p.cfg.Name, "resource is already buffered", nil)
	}
	if full, draining := len(p.buffer) >= p.cfg.Max, p.draining; full || draining {
		p.mu.Unlock()
		p.reject(ctx, x, rejectReason(full, draining))
		return nil
	}
	if p.cfg.IsOKSync == nil && p.cfg.IsOK == nil {
		p.buffer = append(p.buffer, x)
		p.flushWaitersLocked()
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Health gates run outside the lock, in fixed order.
	if p.cfg.IsOKSync != nil && !p.cfg.IsOKSync(x) {
		p.reject(ctx, x, "sync health check")
		return nil
	}
	if p.cfg.IsOK != nil && !p.cfg.IsOK(ctx, x) {
		p.reject(ctx, x, "health check")
		return nil
	}

	// The gates suspended us; the pool may have moved on. Re-verify.
	p.mu.Lock()
	if p.bufferedLocked(x) {
		p.mu.Unlock()
		atomic.AddInt64(&p.duplicates, 1)
		return newError(KindDuplicateValue, p.cfg.Name, "resource is already buffered", nil)
	}
	if full, draining := len(p.buffer) >= p.cfg.Max, p.draining; full || draining {
		p.mu.Unlock()
		p.reject(ctx, x, rejectReason(full, draining))
		return nil
	}
	p.buffer = append(p.buffer, x)
	p.flushWaitersLocked()
	p.mu.Unlock()
	return nil
}

// Use runs fn with a pooled resource. On success the resource goes back
// through Put; on failure (or panic) it goes straight to the destructor,
// bypassing the health checks, and the callback's error is handed to the
// optional onError handler, or logged when none is given. Use never returns
// callback errors; its only error is Get's context error.
func (p *Pool[T]) Use(ctx context.Context, fn func(ctx context.Context, resource T) error, onError ...func(error)) error {
	x, err := p.Get(ctx)
	if err != nil {
		return err
	}

	uctx, span := p.tracer.Start(ctx, "pool.use",
		trace.WithAttributes(attribute.String("pool.name", p.cfg.Name)))
	defer span.End()

	completed := false
	defer func() {
		// Reached only when fn panicked; dispose before unwinding further.
		if !completed {
			span.SetStatus(codes.Error, "callback panicked")
			p.destroy(context.Background(), x)
		}
	}()

	cerr := fn(uctx, x)
	completed = true

	if cerr != nil {
		atomic.AddInt64(&p.callbackFailures, 1)
		span.SetStatus(codes.Error, cerr.Error())
		p.destroy(uctx, x)
		if len(onError) > 0 && onError[0] != nil {
			onError[0](cerr)
		} else {
			p.logger.Error("use callback failed",
				zap.Error(newError(KindCallback, p.cfg.Name, "callback failed", cerr)))
		}
		return nil
	}

	span.SetStatus(codes.Ok, "")
	if perr := p.Put(uctx, x); perr != nil {
		p.logger.Error("failed to return resource after use", zap.Error(perr))
	}
	return nil
}

// Size reports how many resources are immediately available.
func (p *Pool[T]) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.buffer)
}

// Name returns the pool's configured name.
func (p *Pool[T]) Name() string {
	return p.cfg.Name
}

// Stats returns a point-in-time snapshot of pool state and counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.RLock()
	size := len(p.buffer)
	waiting := len(p.waiters)
	filling := p.filling
	draining := p.draining
	p.mu.RUnlock()

	return Stats{
		Name:     p.cfg.Name,
		Size:     size,
		Waiting:  waiting,
		Filling:  filling,
		Draining: draining,

		Gets:               atomic.LoadInt64(&p.gets),
		Hits:               atomic.LoadInt64(&p.hits),
		Waits:              atomic.LoadInt64(&p.waits),
		Puts:               atomic.LoadInt64(&p.puts),
		Created:            atomic.LoadInt64(&p.created),
		Destroyed:          atomic.LoadInt64(&p.destroyed),
		Rejected:           atomic.LoadInt64(&p.rejected),
		Duplicates:         atomic.LoadInt64(&p.duplicates),
		FactoryFailures:    atomic.LoadInt64(&p.factoryFailures),
		RetriesExhausted:   atomic.LoadInt64(&p.retriesExhausted),
		DestructorFailures: atomic.LoadInt64(&p.destructorFailures),
		CallbackFailures:   atomic.LoadInt64(&p.callbackFailures),
		FillCycles:         atomic.LoadInt64(&p.fillCycles),
		DrainCycles:        atomic.LoadInt64(&p.drainCycles),
	}
}

// popFrontLocked removes and returns the oldest buffered resource and
// re-evaluates the refill trigger. Caller holds mu.
func (p *Pool[T]) popFrontLocked() T {
	x := p.buffer[0]
	var zero T
	p.buffer[0] = zero
	p.buffer = p.buffer[1:]

	if len(p.buffer) <= p.cfg.Min && !p.draining {
		go p.backgroundFill(p.cfg.Max)
	}
	return x
}

// flushWaitersLocked resolves pending waiters FIFO with buffered resources,
// oldest resource first, until one side runs out. Caller holds mu; delivery
// under the lock is what keeps waiter resolution single-shot.
func (p *Pool[T]) flushWaitersLocked() {
	for len(p.waiters) > 0 && len(p.buffer) > 0 {
		w := p.waiters[0]
		p.waiters[0] = nil
		p.waiters = p.waiters[1:]
		w <- p.popFrontLocked()
	}
}

// bufferedLocked reports whether x is already buffered, by identity. Caller
// holds mu.
func (p *Pool[T]) bufferedLocked(x T) bool {
	for _, b := range p.buffer {
		if b == x {
			return true
		}
	}
	return false
}

// reject routes a resource that cannot be buffered to the destructor.
func (p *Pool[T]) reject(ctx context.Context, x T, reason string) {
	atomic.AddInt64(&p.rejected, 1)
	p.logger.Debug("resource rejected", zap.String("reason", reason))
	p.destroy(ctx, x)
}

func rejectReason(full, draining bool) string {
	if draining {
		return "draining"
	}
	if full {
		return "at capacity"
	}
	return "unknown"
}
