package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
)

const publishTimeout = 10 * time.Second

// ErrStalePass is returned by Refresh when a newer pass superseded this one
// before it could commit.
var ErrStalePass = errors.New("refresh pass superseded by a newer one")

// Source yields the raw sheet text.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// Publisher receives every committed snapshot.
type Publisher interface {
	Publish(ctx context.Context, snap *Snapshot) error
}

// Options carries the optional collaborators of a Pipeline.
type Options struct {
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Schedule drives Run. Defaults to every two minutes.
	Schedule cron.Schedule
	// Geocoder fills in missing coordinates. Nil disables enrichment.
	Geocoder domain.Geocoder
	// Publisher receives committed snapshots. Nil disables publishing.
	Publisher Publisher
}

// Pipeline fetches, decodes and categorizes the sheet, and holds the latest
// committed snapshot for readers.
type Pipeline struct {
	source      Source
	decoder     *domain.Decoder
	categorizer *domain.Categorizer
	geocoder    domain.Geocoder
	publisher   Publisher
	clock       clockwork.Clock
	schedule    cron.Schedule
	logger      *slog.Logger
	metrics     *observability.Metrics

	generation atomic.Uint64
	current    atomic.Pointer[Snapshot]

	// mu guards the in-flight cancel func.
	mu       sync.Mutex
	inflight context.CancelFunc

	// commitMu serializes commits and guards lastGood.
	commitMu sync.Mutex
	lastGood []domain.Site
}

// New creates a Pipeline reading from source.
func New(source Source, decoder *domain.Decoder, categorizer *domain.Categorizer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Schedule == nil {
		opts.Schedule = cron.Every(2 * time.Minute)
	}
	return &Pipeline{
		source:      source,
		decoder:     decoder,
		categorizer: categorizer,
		geocoder:    opts.Geocoder,
		publisher:   opts.Publisher,
		clock:       opts.Clock,
		schedule:    opts.Schedule,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a snapshot has been committed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.current.Load() == nil {
		return errors.New("no snapshot committed yet")
	}
	return nil
}

// Snapshot returns the latest committed snapshot, or nil before the first pass.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.current.Load()
}

// Run refreshes immediately and then on every schedule tick until ctx is
// cancelled. After a pass that could not use live data, the next attempt is
// brought forward with exponential backoff, never later than the schedule.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	const (
		initialBackoff = 5 * time.Second
		maxBackoff     = time.Minute
	)
	backoff := initialBackoff

	for {
		snap, err := p.Refresh(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		now := p.clock.Now()
		wait := p.schedule.Next(now).Sub(now)
		if err == nil && snap.Live() {
			backoff = initialBackoff
		} else if err == nil {
			wait = min(wait, backoff)
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-p.clock.After(wait):
		}
	}
}

// Refresh runs one pass and commits its snapshot. A pass started while
// another is in flight cancels the older one. A failed fetch or decode never
// returns an error: the snapshot falls back to the last good sites or the
// built-in dataset. Errors are returned only when ctx ends or the pass went
// stale.
func (p *Pipeline) Refresh(ctx context.Context) (*Snapshot, error) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	gen := p.generation.Add(1)
	if p.inflight != nil {
		p.inflight()
	}
	p.inflight = cancel
	p.mu.Unlock()

	log := p.logger.With("generation", gen)
	fetchedAt := p.clock.Now()
	today := domain.Today(p.clock, p.categorizer.Location())

	result, fetchErr := p.load(passCtx, log, today)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil && p.superseded(gen) {
		p.metrics.StalePasses.Inc()
		log.Debug("discarding superseded pass", "error", fetchErr)
		return nil, ErrStalePass
	}

	p.commitMu.Lock()
	committed := p.current.Load()
	if committed != nil && committed.Generation >= gen {
		p.commitMu.Unlock()
		p.metrics.StalePasses.Inc()
		log.Debug("discarding stale pass", "committed_generation", committed.Generation)
		return nil, ErrStalePass
	}

	var snap *Snapshot
	switch {
	case fetchErr == nil:
		snap = newSnapshot(gen, SourceSheet, "", fetchedAt, today, result)
		p.lastGood = snap.All()
	case len(p.lastGood) > 0:
		advisory := fmt.Sprintf("Live sheet unavailable (%v); showing last known data.", fetchErr)
		snap = newSnapshot(gen, SourceLastKnownGood, advisory, fetchedAt, today, p.categorizer.Group(p.lastGood, today))
	default:
		advisory := fmt.Sprintf("Live sheet unavailable (%v); showing sample data.", fetchErr)
		snap = newSnapshot(gen, SourceFallback, advisory, fetchedAt, today, p.categorizer.Group(domain.FallbackSites(today), today))
	}
	p.current.Store(snap)
	p.commitMu.Unlock()

	p.record(snap)
	if fetchErr != nil {
		log.Warn("refresh fell back", "source", snap.Source, "error", fetchErr)
	} else {
		log.Info("refresh committed", "sites", snap.Summary.Total, "due", snap.Summary.Due)
	}

	p.publish(passCtx, log, snap)
	return snap, nil
}

// load fetches, decodes, categorizes and enriches one pass worth of sites.
func (p *Pipeline) load(ctx context.Context, log *slog.Logger, today time.Time) (domain.CategorizedResult, error) {
	start := p.clock.Now()
	text, err := p.source.Fetch(ctx)
	p.metrics.FetchDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	rows, err := p.decoder.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode sheet: %w", err)
	}
	p.metrics.RowsDecoded.Add(float64(len(rows)))

	result := p.categorizer.Categorize(rows, today)
	if skipped := len(rows) - result.Len(); skipped > 0 {
		p.metrics.RowsSkipped.Add(float64(skipped))
		log.Debug("rows without site name dropped", "count", skipped)
	}

	if p.geocoder != nil {
		domain.EnrichAll(ctx, result, p.geocoder, log)
	}
	return result, nil
}

func (p *Pipeline) superseded(gen uint64) bool {
	return p.generation.Load() > gen
}

func (p *Pipeline) record(snap *Snapshot) {
	p.metrics.Refreshes.WithLabelValues(string(snap.Source)).Inc()
	for _, c := range domain.Categories {
		p.metrics.SitesByCategory.WithLabelValues(string(c)).Set(float64(len(snap.Result[c])))
	}
	if snap.Live() {
		p.metrics.LastSuccess.Set(float64(snap.FetchedAt.Unix()))
	}
}

// publish outlives the pass: a newer pass cancels passCtx, but a committed
// snapshot is still delivered.
func (p *Pipeline) publish(passCtx context.Context, log *slog.Logger, snap *Snapshot) {
	if p.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(passCtx), publishTimeout)
	defer cancel()
	if err := p.publisher.Publish(ctx, snap); err != nil {
		p.metrics.PublishErrors.Inc()
		log.Error("publish snapshot failed", "error", err)
		return
	}
	p.metrics.MessagesPublished.Add(float64(snap.Summary.Total))
}
