package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var trackedEventTypes = []string{string(EventClick), string(EventMessage)}

// SQLEventStore keeps one row per event in the usage_events table.
type SQLEventStore struct {
	db *sql.DB
}

func NewSQLEventStore(db *sql.DB) *SQLEventStore {
	if db == nil {
		panic("usage: db cannot be nil")
	}
	return &SQLEventStore{db: db}
}

func (s *SQLEventStore) Record(ctx context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (business, event_type, occurred_at)
		VALUES ($1, $2, $3)`,
		e.Business, string(e.Type), e.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("usage: insert event: %w", err)
	}
	return nil
}

func (s *SQLEventStore) Daily(ctx context.Context, business string, since time.Time) ([]DailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(occurred_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       COUNT(*) FILTER (WHERE event_type = 'click') AS clicks,
		       COUNT(*) FILTER (WHERE event_type = 'message') AS messages
		FROM usage_events
		WHERE business = $1 AND occurred_at >= $2 AND event_type = ANY($3)
		GROUP BY day
		ORDER BY day ASC`,
		business, since.UTC(), pq.Array(trackedEventTypes))
	if err != nil {
		return nil, fmt.Errorf("usage: query daily stats: %w", err)
	}
	defer rows.Close()

	out := []DailyStat{}
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(&d.Date, &d.Clicks, &d.Messages); err != nil {
			return nil, fmt.Errorf("usage: scan daily stats: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("usage: iterate daily stats: %w", err)
	}
	return out, nil
}
