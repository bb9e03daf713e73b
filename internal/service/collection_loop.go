package service

import (
	"context"
	"errors"
	"time"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/SteelMorgan/admin-gluster/internal/dump"
	"github.com/SteelMorgan/admin-gluster/internal/measurement"
	"github.com/SteelMorgan/admin-gluster/internal/observability"
	"github.com/SteelMorgan/admin-gluster/internal/statsdir"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// LoopConfig holds the immutable settings of the collection loop
type LoopConfig struct {
	StatsDir     string
	Hostname     string
	Interval     time.Duration
	Warmup       time.Duration
	CycleTimeout time.Duration // Deadline for one cycle including delivery, 0 disables
}

// ResolverSource provides the brick name resolver for one cycle
type ResolverSource interface {
	Resolver(ctx context.Context) (domain.Resolver, error)
}

// Emitter pushes a measurement to the backend. Failures are logged by the
// emitter; the result reports whether the measurement was delivered.
type Emitter interface {
	Emit(ctx context.Context, m domain.Measurement) bool
}

// Deps are the collaborators of the collection loop
type Deps struct {
	Discovery ResolverSource
	Sink      Emitter
	Now       func() time.Time
}

// CycleReport summarizes one scan cycle
type CycleReport struct {
	ID          string
	Matched     int
	Parsed      int
	Failed      int
	Delivered   int
	Undelivered int
	Err         error
}

// CollectionLoop periodically scans the stats directory and emits brick measurements.
// Cycles run sequentially on one goroutine.
type CollectionLoop struct {
	cfg       LoopConfig
	discovery ResolverSource
	sink      Emitter
	now       func() time.Time

	// called after every cycle in Run
	cycleDone func(CycleReport)
}

// NewCollectionLoop creates a new collection loop
func NewCollectionLoop(cfg LoopConfig, deps Deps) *CollectionLoop {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CollectionLoop{
		cfg:       cfg,
		discovery: deps.Discovery,
		sink:      deps.Sink,
		now:       now,
	}
}

// Run waits for the warm-up delay, then runs a cycle every interval until ctx is done.
// The next wait starts only after the previous cycle completes.
func (l *CollectionLoop) Run(ctx context.Context) error {
	log.Info().
		Str("stats_dir", l.cfg.StatsDir).
		Str("hostname", l.cfg.Hostname).
		Dur("warmup", l.cfg.Warmup).
		Dur("interval", l.cfg.Interval).
		Msg("Starting collection loop")

	timer := time.NewTimer(l.cfg.Warmup)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Collection loop context cancelled")
			return nil
		case <-timer.C:
		}

		report := l.RunCycle(ctx)
		if l.cycleDone != nil {
			l.cycleDone(report)
		}

		timer.Reset(l.cfg.Interval)
	}
}

// RunCycle performs one scan of the stats directory.
// Cycle-level failures are recorded in the report and logged; per-file failures
// skip only the affected file.
func (l *CollectionLoop) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: uuid.NewString()}
	startTime := time.Now()
	logger := log.With().Str("cycle_id", report.ID).Logger()

	if l.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.CycleTimeout)
		defer cancel()
	}

	ctx, span := observability.StartSpan(ctx, "collection.cycle",
		attribute.String("cycle.id", report.ID),
		attribute.String("stats.dir", l.cfg.StatsDir),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("files.matched", report.Matched),
			attribute.Int("files.failed", report.Failed),
			attribute.Int("measurements.delivered", report.Delivered),
			attribute.Int("measurements.undelivered", report.Undelivered),
		)
		observability.EndSpan(span, report.Err, "collection cycle")
	}()

	resolver, err := l.discovery.Resolver(ctx)
	if err != nil {
		report.Err = err
		logger.Error().Err(err).Msg("Volume discovery failed, skipping cycle")
		return report
	}

	entries, err := statsdir.Scan(l.cfg.StatsDir, resolver)
	if err != nil {
		report.Err = err
		logger.Error().Err(err).Msg("Stats directory unavailable, skipping cycle")
		return report
	}

	ts := l.now()
	for entry := range entries {
		if ctx.Err() != nil {
			break
		}
		report.Matched++

		aggr, inter, err := dump.ParseFile(entry.Path)
		if err != nil {
			report.Failed++
			event := logger.Error().Err(err).Str("file", entry.Path)
			if errors.Is(err, domain.ErrMalformedDump) {
				event = event.Str("kind", "malformed")
			}
			event.Msg("Failed to parse dump, skipping file")
			continue
		}
		report.Parsed++

		mctx := measurement.ContextFor(l.cfg.Hostname, entry)
		for _, counters := range []domain.CounterSet{aggr, inter} {
			if counters.Len() == 0 {
				logger.Debug().Str("file", entry.Path).Msg("Empty counter set, nothing to emit")
				continue
			}
			if l.sink.Emit(ctx, measurement.Build(counters, mctx, ts)) {
				report.Delivered++
			} else {
				report.Undelivered++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		report.Err = err
		logger.Warn().
			Err(err).
			Dur("cycle_timeout", l.cfg.CycleTimeout).
			Msg("Collection cycle cut short, remaining files wait for the next cycle")
	}

	logger.Info().
		Int("matched", report.Matched).
		Int("parsed", report.Parsed).
		Int("failed", report.Failed).
		Int("delivered", report.Delivered).
		Int("undelivered", report.Undelivered).
		Dur("duration", time.Since(startTime)).
		Msg("Collection cycle completed")

	return report
}
