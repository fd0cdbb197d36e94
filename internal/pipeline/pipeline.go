package pipeline

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

var errNotReady = errors.New("pipeline has not published any route events yet")

// BatchExtractor reads up to batchSize raw route requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw route request into a serialized route event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple route events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes route requests, computes routes, and publishes route events.
type Pipeline struct {
	source    BatchExtractor
	routes    Transformer
	sink      BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	batchSize int
	published atomic.Bool
}

// New creates a Pipeline reading batches of batchSize requests.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		source:    e,
		routes:    t,
		sink:      l,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has published at least one
// route event.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.published.Load() {
		return nil
	}
	return errNotReady
}

// Run loops over batches until ctx is cancelled. Cancellation is a clean stop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := newRetryDelay(p.clock)
	for ctx.Err() == nil {
		if err := p.runOnce(ctx, delay); err != nil {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// runOnce handles one batch. A non-nil error means the pipeline must stop.
func (p *Pipeline) runOnce(ctx context.Context, delay *retryDelay) error {
	start := p.clock.Now()

	requests, err := p.source.ExtractBatch(ctx, p.batchSize)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		p.logger.Error("extract batch failed", "error", err)
		return delay.wait(ctx)
	case len(requests) == 0:
		return nil
	}
	delay.reset()

	p.metrics.MessagesConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))

	b := p.route(ctx, requests)
	if len(b.events) == 0 {
		p.commitInOrder(ctx, b.rejected)
		return nil
	}
	if err := p.publish(ctx, b.events, delay); err != nil {
		return err
	}
	p.commitInOrder(ctx, b.settled())

	p.metrics.MessagesProduced.Add(float64(len(b.events)))
	p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
	p.published.Store(true)
	return nil
}

// batch pairs each serialized route event with the request it came from and
// holds the rejected requests, which are committed with the rest.
type batch struct {
	events   []domain.OutputEvent
	routed   []domain.RawEvent
	rejected []domain.RawEvent
}

func (b batch) settled() []domain.RawEvent {
	return slices.Concat(b.routed, b.rejected)
}

// route transforms every request. Nothing is committed here: a rejected
// request may sit above a routed one on the same partition, and committing it
// early would skip the routed one if the load never succeeds.
func (p *Pipeline) route(ctx context.Context, requests []domain.RawEvent) batch {
	b := batch{
		events: make([]domain.OutputEvent, 0, len(requests)),
		routed: make([]domain.RawEvent, 0, len(requests)),
	}
	for _, raw := range requests {
		out, err := p.routes.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("route request rejected, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			b.rejected = append(b.rejected, raw)
			continue
		}
		b.events = append(b.events, out)
		b.routed = append(b.routed, raw)
	}
	return b
}

// publish retries the load until it succeeds or ctx ends. Offsets of the
// batch stay uncommitted until then.
func (p *Pipeline) publish(ctx context.Context, events []domain.OutputEvent, delay *retryDelay) error {
	for attempt := 1; ; attempt++ {
		err := p.sink.LoadBatch(ctx, events)
		if err == nil {
			delay.reset()
			return nil
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(events), "attempt", attempt)
		if err := delay.wait(ctx); err != nil {
			return err
		}
	}
}

// commitInOrder commits offsets per partition in ascending order.
func (p *Pipeline) commitInOrder(ctx context.Context, raws []domain.RawEvent) {
	slices.SortStableFunc(raws, func(a, b domain.RawEvent) int {
		return cmp.Or(
			strings.Compare(a.Topic, b.Topic),
			cmp.Compare(a.Partition, b.Partition),
			cmp.Compare(a.Offset, b.Offset),
		)
	})
	for _, raw := range raws {
		if raw.Commit == nil {
			continue
		}
		if err := raw.Commit(ctx); err != nil {
			p.logger.Warn("commit offset failed", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		}
	}
}

// Backoff bounds for extract and load failures.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// retryDelay is an exponential backoff doubling from initialBackoff up to
// maxBackoff.
type retryDelay struct {
	clock clockwork.Clock
	next  time.Duration
}

func newRetryDelay(clock clockwork.Clock) *retryDelay {
	return &retryDelay{clock: clock, next: initialBackoff}
}

func (d *retryDelay) reset() { d.next = initialBackoff }

// wait sleeps for the current delay, then grows it. It returns ctx's error if
// ctx ends first.
func (d *retryDelay) wait(ctx context.Context) error {
	timer := d.clock.NewTimer(d.next)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		d.next = retry.NextBackoff(d.next, maxBackoff)
		return nil
	}
}
