// Package publisher is the audit pipeline entry point. Services call Emit;
// depending on configuration the event is persisted inline or buffered onto a
// channel drained by a background goroutine. A full buffer drops the event
// rather than stalling the request path.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "goodcompany/pkg/domain"
	audit "goodcompany/pkg/platform/audit"
)

// Sink is an optional secondary destination, typically a Kafka topic consumed
// by moderation tooling. Sink failures are logged, never surfaced to callers.
type Sink interface {
	Publish(ctx context.Context, event audit.Event) error
}

type Publisher struct {
	store   audit.Store
	sink    Sink
	logger  *slog.Logger
	sampler *Sampler
	breaker *CircuitBreaker
	metrics *Metrics

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

type Option func(*Publisher)

// WithAsyncBuffer switches Emit to buffered async mode with the given
// capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithSink adds a secondary event destination.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSampler samples down operations-category events. Trust and moderation
// events are never sampled.
func WithSampler(sampler *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = sampler
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = metrics
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  slog.Default(),
		breaker: NewCircuitBreaker(0, 0),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. Missing timestamps and categories are filled in
// here so call sites stay terse.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.sampler != nil && event.Category == audit.CategoryOperations &&
		!p.sampler.ShouldSample(event.Action) {
		if p.metrics != nil {
			p.metrics.Sampled.Inc()
		}
		return nil
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		// Buffer full. Audit must not stall requests.
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		return nil
	}
}

// List returns events for a user, reading through to the store.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the drain goroutine after flushing buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.inbox:
			p.persistBuffered(event)
		case <-p.done:
			for {
				select {
				case event := <-p.inbox:
					p.persistBuffered(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) persistBuffered(event audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.persist(ctx, event); err != nil {
		p.logger.Warn("failed to persist audit event", "action", event.Action, "error", err)
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		return nil
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.breaker.RecordFailure()
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
			p.metrics.BreakerState.Set(p.breaker.StateGauge())
		}
		return err
	}
	p.breaker.RecordSuccess()
	if p.metrics != nil {
		p.metrics.Tracked.Inc()
		p.metrics.BreakerState.Set(p.breaker.StateGauge())
	}

	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.Warn("audit sink publish failed", "action", event.Action, "error", err)
		}
	}
	return nil
}
