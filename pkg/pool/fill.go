package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/pkg/backoff"
)

// Buffer fills the buffer up to Max using one concurrent factory call per
// missing resource. Calls that find a fill cycle already in flight coalesce
// onto it: they wait for its completion and return nil. Only the call that
// started the cycle reports its outcome; after every slot settles it returns
// the first retry-exhaustion error among failed slots, or nil.
func (p *Pool[T]) Buffer(ctx context.Context) error {
	return p.fill(ctx, p.cfg.Max)
}

// backgroundFill runs a fire-and-forget fill cycle toward target.
func (p *Pool[T]) backgroundFill(target int) {
	if err := p.fill(context.Background(), target); err != nil {
		p.logger.Error("background fill failed", zap.Error(err))
	}
}

// fill starts a fill cycle toward target, or joins the cycle already in
// flight. An in-flight drain cycle runs to completion first; fills never
// create resources into a draining pool.
func (p *Pool[T]) fill(ctx context.Context, target int) error {
	for {
		p.mu.Lock()

		if p.draining {
			done := p.drainDone
			p.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if p.filling {
			done := p.fillDone
			p.mu.Unlock()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		deficit := target - len(p.buffer)
		if deficit < 1 {
			p.mu.Unlock()
			return nil
		}

		// Own the cycle. The cycle context lets Drain abort pending backoff
		// waits without touching factory calls already in flight.
		fctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		p.filling = true
		p.fillDone = done
		p.fillCancel = cancel
		p.mu.Unlock()

		err := p.runFillCycle(fctx, deficit)

		p.mu.Lock()
		p.filling = false
		p.fillCancel = nil
		p.mu.Unlock()
		cancel()
		close(done)
		return err
	}
}

// runFillCycle launches deficit concurrent fill slots, each constructing one
// resource and feeding it to Put, and waits for all of them. A slot failing
// permanently does not abort its siblings.
func (p *Pool[T]) runFillCycle(ctx context.Context, deficit int) error {
	atomic.AddInt64(&p.fillCycles, 1)

	cctx, span := p.tracer.Start(ctx, "pool.fill", trace.WithAttributes(
		attribute.String("pool.name", p.cfg.Name),
		attribute.Int("fill.deficit", deficit)))
	defer span.End()

	p.logger.Debug("fill cycle starting", zap.Int("deficit", deficit))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		created  int
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil || (IsRetryLimitExceeded(err) && !IsRetryLimitExceeded(firstErr)) {
			firstErr = err
		}
	}

	for i := 0; i < deficit; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			x, err := p.construct(cctx, slot)
			if err != nil {
				record(err)
				return
			}
			if perr := p.Put(cctx, x); perr != nil {
				// Only duplicates surface here; a factory handing out the
				// same value twice is a programmer error worth a loud log.
				p.logger.Error("fill slot could not buffer resource", zap.Error(perr))
				return
			}
			mu.Lock()
			created++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	mu.Lock()
	err := firstErr
	n := created
	mu.Unlock()

	span.SetAttributes(attribute.Int("fill.created", n))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	p.logger.Debug("fill cycle complete",
		zap.Int("deficit", deficit),
		zap.Int("created", n))
	return err
}

// construct runs one retrying factory attempt: an initial call plus up to
// MaxRetries backoff-spaced retries. The backoff waits abort when ctx is
// cancelled (the pool started draining, or the cycle owner gave up).
func (p *Pool[T]) construct(ctx context.Context, slot int) (T, error) {
	var zero T
	seq := backoff.NewSequence(p.cfg.RetryDelay, p.cfg.RetryDelayCap, p.cfg.MaxRetries)

	for attempt := 0; ; attempt++ {
		x, err := p.cfg.Factory(ctx)
		if err == nil {
			atomic.AddInt64(&p.created, 1)
			return x, nil
		}

		atomic.AddInt64(&p.factoryFailures, 1)
		ferr := newError(KindFactory, p.cfg.Name,
			fmt.Sprintf("factory attempt %d failed", attempt), err)

		delay, ok := seq.Next()
		if !ok {
			atomic.AddInt64(&p.retriesExhausted, 1)
			rerr := newError(KindRetryLimitExceeded, p.cfg.Name,
				fmt.Sprintf("factory gave up after %d attempts", attempt+1), ferr)
			p.logger.Error("fill slot exhausted retries",
				zap.Int("slot", slot),
				zap.Error(rerr))
			return zero, rerr
		}

		p.logger.Warn("factory attempt failed, backing off",
			zap.Int("slot", slot),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		if serr := backoff.Sleep(ctx, delay); serr != nil {
			p.logger.Debug("fill slot cancelled during backoff", zap.Int("slot", slot))
			return zero, serr
		}
	}
}
