package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store persists action events for auditing. It is write-mostly: the request
// path only inserts, and reads are for operators (CLI).
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// ListActionEventsParams filters and paginates ListActionEvents.
// Empty ItemID or Account means no filter on that column.
type ListActionEventsParams struct {
	ItemID  string
	Account string
	Limit   int32
	Offset  int32
}

// EnsureSchema creates the action_events table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// InsertActionEvent stores one event. Inserting the same id twice is a no-op.
func (s *Store) InsertActionEvent(ctx context.Context, event *actions.Event) (err error) {
	defer s.observe("insert", time.Now(), &err)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO action_events (id, item_id, mint, intent, account, offer_amount, outcome, failure_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		event.ID,
		event.ItemID,
		pgtextFromString(event.Mint),
		event.Intent,
		event.Account,
		pgfloatFromPtr(event.OfferAmount),
		event.Outcome,
		pgtextFromString(event.FailureKind),
		event.CreatedAt,
	)
	return err
}

// RecordAction implements actions.Recorder.
func (s *Store) RecordAction(ctx context.Context, event *actions.Event) error {
	return s.InsertActionEvent(ctx, event)
}

// ListActionEvents returns events newest first.
func (s *Store) ListActionEvents(ctx context.Context, params ListActionEventsParams) (events []*actions.Event, err error) {
	defer s.observe("list", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, item_id, mint, intent, account, offer_amount, outcome, failure_kind, created_at
		FROM action_events
		WHERE ($1 = '' OR item_id = $1)
		  AND ($2 = '' OR account = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		params.ItemID, params.Account, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanActionEvent)
}

// DeleteActionEventsOlderThan prunes events created before the cutoff and
// returns how many were removed.
func (s *Store) DeleteActionEventsOlderThan(ctx context.Context, before time.Time) (n int64, err error) {
	defer s.observe("delete", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM action_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) observe(operation string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, "action_events", time.Since(start).Seconds(), *err)
	}
}

func scanActionEvent(row pgx.CollectableRow) (*actions.Event, error) {
	var (
		e           actions.Event
		mint        pgtype.Text
		offerAmount pgtype.Float8
		failureKind pgtype.Text
	)
	if err := row.Scan(&e.ID, &e.ItemID, &mint, &e.Intent, &e.Account, &offerAmount, &e.Outcome, &failureKind, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Mint = mint.String
	e.FailureKind = failureKind.String
	if offerAmount.Valid {
		amount := offerAmount.Float64
		e.OfferAmount = &amount
	}
	return &e, nil
}

func pgtextFromString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func pgfloatFromPtr(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}
