// Package publish batches resolved locations and hands them to a sink.
package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-search/internal/domain"
	"github.com/couchcryptid/location-search/internal/observability"
)

// BatchLoader writes multiple selected locations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, locations []domain.SelectedLocation) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Publisher queues selected locations and flushes them in batches, either
// when a batch fills up or when the oldest queued record has waited for the
// flush interval.
type Publisher struct {
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	clock         clockwork.Clock
	queue         chan domain.SelectedLocation
	running       atomic.Bool
	batchSize     int
	flushInterval time.Duration
}

// New creates a Publisher. Run must be called to start flushing.
func New(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration) *Publisher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Publisher{
		loader:        l,
		logger:        logger,
		metrics:       metrics,
		clock:         domain.Clock(),
		queue:         make(chan domain.SelectedLocation, batchSize*4),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Publish queues a selected location. It blocks while the queue is full.
func (p *Publisher) Publish(ctx context.Context, loc domain.SelectedLocation) error {
	select {
	case p.queue <- loc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckReadiness returns nil while Run is active.
func (p *Publisher) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("location publisher is not running")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled, then makes one
// last attempt to write whatever is still queued.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize, "flush_interval", p.flushInterval)
	p.metrics.PublisherRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.metrics.PublisherRunning.Set(0)
	}()

	backoff := initialBackoff
	batch := make([]domain.SelectedLocation, 0, p.batchSize)
	var (
		timer clockwork.Timer
		flush <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, flush = nil, nil
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher stopping", "reason", ctx.Err())
			p.flushOnShutdown(ctx, batch)
			return nil
		case loc := <-p.queue:
			batch = append(batch, loc)
			if len(batch) == 1 {
				timer = p.clock.NewTimer(p.flushInterval)
				flush = timer.Chan()
			}
			if len(batch) < p.batchSize {
				continue
			}
		case <-flush:
		}

		stopTimer()
		if !p.load(ctx, batch, &backoff) {
			p.flushOnShutdown(ctx, batch)
			return nil
		}
		batch = make([]domain.SelectedLocation, 0, p.batchSize)
	}
}

// load writes the batch, retrying with backoff until it succeeds. Returns
// false if the context ended first.
func (p *Publisher) load(ctx context.Context, batch []domain.SelectedLocation, backoff *time.Duration) bool {
	for {
		err := p.loader.LoadBatch(ctx, batch)
		if err == nil {
			p.metrics.LocationsPublished.Add(float64(len(batch)))
			p.metrics.PublishBatchSize.Observe(float64(len(batch)))
			*backoff = initialBackoff
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("load batch failed", "error", err, "batch_size", len(batch))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
}

// flushOnShutdown drains the queue into batch and writes it once, detached
// from the cancelled run context.
func (p *Publisher) flushOnShutdown(ctx context.Context, batch []domain.SelectedLocation) {
drain:
	for {
		select {
		case loc := <-p.queue:
			batch = append(batch, loc)
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxBackoff)
	defer cancel()
	if err := p.loader.LoadBatch(flushCtx, batch); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("final flush failed, dropping locations", "error", err, "batch_size", len(batch))
		return
	}
	p.metrics.LocationsPublished.Add(float64(len(batch)))
	p.metrics.PublishBatchSize.Observe(float64(len(batch)))
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the publisher should stop.
func (p *Publisher) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}
