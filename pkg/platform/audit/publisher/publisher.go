// Package publisher fans audit events out to a configured store, either
// synchronously or through a buffered background worker.
package publisher

import (
	"context"
	"sync"

	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit/worker"
)

// Publisher delivers events to its store. In sync mode Emit appends
// inline; with an async buffer Emit enqueues and a worker goroutine drains.
// Audit failures must never fail the business operation, so async Emit
// drops on a full buffer rather than blocking the request path.
type Publisher struct {
	store audit.Store

	inbox  chan audit.Event
	cancel context.CancelFunc
	done   sync.WaitGroup

	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*options)

type options struct {
	asyncBuffer int
}

// WithAsyncBuffer switches the publisher to async mode with the given
// channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(o *options) {
		o.asyncBuffer = size
	}
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	p := &Publisher{store: store}
	if cfg.asyncBuffer > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		p.inbox = make(chan audit.Event, cfg.asyncBuffer)
		p.cancel = cancel
		p.done.Add(1)
		w := worker.NewWorker(store, p.inbox)
		go func() {
			defer p.done.Done()
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit records one event. Never returns an error in async mode.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full; dropping beats stalling a subscription mutation.
	}
	return nil
}

// List returns events for a rider when the underlying store retains them.
func (p *Publisher) List(ctx context.Context, riderID id.RiderID) ([]audit.Event, error) {
	reader, ok := p.store.(audit.Reader)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidState, "audit store does not support reads")
	}
	return reader.ListByRider(ctx, riderID)
}

// Close stops the background worker, draining nothing further.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			p.done.Wait()
		}
	})
}
