package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/eonet-report/internal/domain"
)

// normalize flattens the fetched responses into rows for the target month.
// Under SkipOnError each rejected event is logged and counted; under
// AbortOnError the first *domain.RecordError is returned.
func (r *Runner) normalize(logger *slog.Logger, responses []domain.Response, sum *Summary) ([]domain.Row, error) {
	res, err := domain.Normalize(responses, r.opts.TargetMonth, r.opts.Normalize)
	if err != nil {
		var recErr *domain.RecordError
		if errors.As(err, &recErr) {
			r.metrics.RecordsRejected.WithLabelValues(rejectReason(recErr)).Inc()
			sum.RecordsRejected++
		}
		return nil, err
	}

	for _, rej := range res.Rejected {
		logger.Warn("record rejected, skipping event",
			"error", rej,
			"category", rej.CategoryID,
			"index", rej.Index,
			"event_id", rej.EventID,
			"field", rej.Field,
		)
		r.metrics.RecordsRejected.WithLabelValues(rejectReason(rej)).Inc()
	}
	sum.RecordsRejected += len(res.Rejected)
	sum.RowsRetained = len(res.Rows)
	r.metrics.RowsRetained.Add(float64(len(res.Rows)))

	if len(res.Rows) == 0 {
		logger.Warn("no events matched target month", "events_scanned", res.Scanned)
	} else {
		logger.Info("events normalized", "events_scanned", res.Scanned, "rows", len(res.Rows))
	}
	return res.Rows, nil
}

func rejectReason(err *domain.RecordError) string {
	if errors.Is(err, domain.ErrMissingField) {
		return "missing_field"
	}
	return "malformed_record"
}
