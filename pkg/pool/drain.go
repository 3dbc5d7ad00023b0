package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Drain empties the buffer, invoking the destructor once per resource, and
// waits for every destruction to finish. Calls that find a drain cycle
// already in flight coalesce onto it. Pending backoff waits of an in-flight
// fill are cancelled so the fill stops producing; resources held by Use
// callers or already delivered to waiters are unaffected, and Puts arriving
// mid-drain route straight to the destructor. Destructor failures are logged
// and swallowed; the returned error is ctx's only.
func (p *Pool[T]) Drain(ctx context.Context) error {
	p.mu.Lock()
	if p.draining {
		done := p.drainDone
		p.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	p.draining = true
	p.drainDone = done

	// Abort the in-flight fill's backoff waits. Factory calls already
	// running complete normally; their Puts land in the destructor because
	// the draining flag is up.
	if p.fillCancel != nil {
		p.fillCancel()
	}

	victims := p.buffer
	p.buffer = make([]T, 0, p.cfg.Max)
	p.mu.Unlock()

	atomic.AddInt64(&p.drainCycles, 1)

	dctx, span := p.tracer.Start(ctx, "pool.drain", trace.WithAttributes(
		attribute.String("pool.name", p.cfg.Name),
		attribute.Int("drain.resources", len(victims))))
	defer span.End()

	p.logger.Info("drain cycle starting", zap.Int("resources", len(victims)))

	var wg sync.WaitGroup
	for _, x := range victims {
		wg.Add(1)
		go func(r T) {
			defer wg.Done()
			p.destroy(dctx, r)
		}(x)
	}
	wg.Wait()

	span.SetStatus(codes.Ok, "")
	p.logger.Info("drain cycle complete", zap.Int("destroyed", len(victims)))

	p.mu.Lock()
	p.draining = false
	p.mu.Unlock()
	close(done)
	return nil
}

// destroy hands a resource to the destructor, absorbing any failure. Every
// resource leaving the pool passes through here, whether from a drain, a
// rejected Put or a failed Use callback.
func (p *Pool[T]) destroy(ctx context.Context, x T) {
	atomic.AddInt64(&p.destroyed, 1)
	if p.cfg.Destructor == nil {
		return
	}
	if err := p.cfg.Destructor(ctx, x); err != nil {
		atomic.AddInt64(&p.destructorFailures, 1)
		p.logger.Error("destructor failed",
			zap.Error(newError(KindDestructor, p.cfg.Name, "destructor failed", err)))
	}
}
