package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/couchcryptid/eonet-report/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw events of one category.
type Fetcher interface {
	FetchCategory(ctx context.Context, categoryID string) (domain.Response, error)
}

// RowStore persists rows for a run and reads them back in insertion order.
type RowStore interface {
	InsertRows(ctx context.Context, runID uuid.UUID, rows []domain.Row) error
	ListRows(ctx context.Context, runID uuid.UUID) ([]domain.Row, error)
}

// Publisher forwards stored rows to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, month string, rows []domain.Row) error
}

// Exporter renders rows into a report attachment.
type Exporter interface {
	Export(ctx context.Context, month string, rows []domain.Row) (domain.Attachment, error)
}

// Notifier delivers a report attachment.
type Notifier interface {
	Notify(ctx context.Context, month string, att domain.Attachment) error
}

// Stages groups the adapters a Runner drives. Publisher is optional, and
// Notifier may be nil when DryRun is set.
type Stages struct {
	Fetcher   Fetcher
	Store     RowStore
	Publisher Publisher
	Exporter  Exporter
	Notifier  Notifier
}

// Options controls a single run.
type Options struct {
	Categories  []string
	TargetMonth string
	Normalize   domain.NormalizeOptions
	DryRun      bool
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Summary describes a completed or failed run.
type Summary struct {
	RunID           uuid.UUID
	TargetMonth     string
	EventsFetched   int
	RowsRetained    int
	RecordsRejected int
	RowsStored      int
	RowsPublished   int
	Attachment      string
	Delivered       bool
	Duration        time.Duration
}

// Runner executes fetch, normalize, persist, publish, export and deliver
// once, in that order, stopping at the first failing stage.
type Runner struct {
	stages  Stages
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Runner with the given stages and observability.
func New(stages Stages, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		stages:  stages,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Run performs one report run. Any stage failure is returned as a
// *StageError; the returned Summary holds whatever was completed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.clock.Now()

	runID, err := uuid.NewV7()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	sum := Summary{RunID: runID, TargetMonth: r.opts.TargetMonth}

	logger := r.logger.With("run_id", runID.String(), "target_month", r.opts.TargetMonth)
	logger.Info("report run started",
		"categories", r.opts.Categories,
		"strategy", r.opts.Normalize.Strategy,
		"record_error_policy", r.opts.Normalize.Policy,
		"dry_run", r.opts.DryRun,
	)

	var responses []domain.Response
	if err := r.stage(StageFetch, func() error {
		var err error
		responses, err = r.fetch(ctx, logger, &sum)
		return err
	}); err != nil {
		return r.fail(logger, start, sum, err)
	}

	var rows []domain.Row
	if err := r.stage(StageNormalize, func() error {
		var err error
		rows, err = r.normalize(logger, responses, &sum)
		return err
	}); err != nil {
		return r.fail(logger, start, sum, err)
	}

	var stored []domain.Row
	if err := r.stage(StagePersist, func() error {
		var err error
		stored, err = r.persist(ctx, runID, rows)
		return err
	}); err != nil {
		return r.fail(logger, start, sum, err)
	}
	sum.RowsStored = len(stored)
	r.metrics.RowsStored.Add(float64(len(stored)))
	logger.Info("rows stored", "rows", len(stored))

	if r.stages.Publisher != nil {
		if err := r.stage(StagePublish, func() error {
			return r.stages.Publisher.Publish(ctx, runID, r.opts.TargetMonth, stored)
		}); err != nil {
			return r.fail(logger, start, sum, err)
		}
		sum.RowsPublished = len(stored)
		r.metrics.RowsPublished.Add(float64(len(stored)))
		logger.Info("rows published", "rows", len(stored))
	}

	var att domain.Attachment
	if err := r.stage(StageExport, func() error {
		var err error
		att, err = r.stages.Exporter.Export(ctx, r.opts.TargetMonth, stored)
		return err
	}); err != nil {
		return r.fail(logger, start, sum, err)
	}
	sum.Attachment = att.Filename
	logger.Info("report exported", "attachment", att.Filename, "bytes", len(att.Data))

	if r.opts.DryRun {
		logger.Info("dry run, skipping delivery", "attachment", att.Filename)
	} else {
		if err := r.stage(StageDeliver, func() error {
			return r.stages.Notifier.Notify(ctx, r.opts.TargetMonth, att)
		}); err != nil {
			return r.fail(logger, start, sum, err)
		}
		sum.Delivered = true
		r.metrics.ReportsSent.Inc()
	}

	sum.Duration = r.clock.Since(start)
	r.metrics.LastSuccess.Set(float64(r.clock.Now().Unix()))
	logger.Info("report run complete",
		"events_fetched", sum.EventsFetched,
		"rows_retained", sum.RowsRetained,
		"records_rejected", sum.RecordsRejected,
		"delivered", sum.Delivered,
		"duration", sum.Duration,
	)
	return sum, nil
}

// stage times fn, records failures, and tags any error with the stage.
func (r *Runner) stage(name Stage, fn func() error) error {
	start := r.clock.Now()
	err := fn()
	r.metrics.StageDuration.WithLabelValues(string(name)).Observe(r.clock.Since(start).Seconds())
	if err != nil {
		r.metrics.StageFailures.WithLabelValues(string(name)).Inc()
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func (r *Runner) fail(logger *slog.Logger, start time.Time, sum Summary, err error) (Summary, error) {
	sum.Duration = r.clock.Since(start)
	logger.Error("report run failed", "error", err, "duration", sum.Duration)
	return sum, err
}

func (r *Runner) fetch(ctx context.Context, logger *slog.Logger, sum *Summary) ([]domain.Response, error) {
	responses := make([]domain.Response, 0, len(r.opts.Categories))
	for _, id := range r.opts.Categories {
		resp, err := r.stages.Fetcher.FetchCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		logger.Info("category fetched", "category", id, "events", len(resp.Events))
		sum.EventsFetched += len(resp.Events)
		responses = append(responses, resp)
	}
	return responses, nil
}

// persist writes rows and returns them as read back from the store.
func (r *Runner) persist(ctx context.Context, runID uuid.UUID, rows []domain.Row) ([]domain.Row, error) {
	if err := r.stages.Store.InsertRows(ctx, runID, rows); err != nil {
		return nil, err
	}
	stored, err := r.stages.Store.ListRows(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(stored) != len(rows) {
		return nil, fmt.Errorf("read back %d rows, wrote %d", len(stored), len(rows))
	}
	return stored, nil
}
