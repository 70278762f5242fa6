package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/eonet-report/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists normalized rows to the eonet_data table.
// It implements pipeline.RowStore.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	insertSQL = fmt.Sprintf(
		"INSERT INTO eonet_data (%s, run_id, position) VALUES (%s)",
		strings.Join(domain.Columns, ", "),
		placeholders(len(domain.Columns)+2),
	)
	listSQL = fmt.Sprintf(
		"SELECT %s FROM eonet_data WHERE run_id = $1 ORDER BY position",
		strings.Join(domain.Columns, ", "),
	)
)

// Open connects to databaseURL and verifies the connection. The caller owns
// the returned Store and must Close it.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	// One batch job, one writer.
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// InsertRows writes rows for runID in a single transaction. Each row records
// its index so ListRows returns them in the same order.
func (s *Store) InsertRows(ctx context.Context, runID uuid.UUID, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i, row := range rows {
		args := append(row.Values(), runID, i)
		batch.Queue(insertSQL, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert transaction: %w", err)
	}

	s.logger.Debug("rows inserted", "run_id", runID.String(), "rows", len(rows))
	return nil
}

// ListRows reads back the rows written for runID in insertion order.
func (s *Store) ListRows(ctx context.Context, runID uuid.UUID) ([]domain.Row, error) {
	rows, err := s.pool.Query(ctx, listSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Row, error) {
		var row domain.Row
		err := r.Scan(
			&row.EventID,
			&row.EventTitle,
			&row.EventDescription,
			&row.EventLink,
			&row.Closed,
			&row.CategoryID,
			&row.CategoryTitle,
			&row.SourceID,
			&row.SourceURL,
			&row.Date,
			&row.GeometryType,
			&row.Coordinates,
		)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ", ")
}
