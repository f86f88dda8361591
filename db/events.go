package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/onnwee/onett-watch/notify"
	"github.com/onnwee/onett-watch/watch"
)

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 50

// maxRecentLimit bounds one history read.
const maxRecentLimit = 500

// EventLog appends emitted events to change_events. It is used as a notifier sink.
type EventLog struct {
	DB *sql.DB
}

// StoredEvent is one history row.
type StoredEvent struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   int64     `json:"resource_id"`
	Name         string    `json:"name,omitempty"`
	Updated      string    `json:"updated,omitempty"`
	CountToday   int       `json:"count_today,omitempty"`
	Member       int64     `json:"member,omitempty"`
	Delta        int       `json:"delta,omitempty"`
	NewCount     int       `json:"new_count,omitempty"`
	DetectedAt   time.Time `json:"detected_at"`
}

func (l *EventLog) Name() string { return "history" }

// Notify records ev. A failed insert is a DeliveryError like any other sink.
func (l *EventLog) Notify(ctx context.Context, ev watch.Event) error {
	_, err := l.DB.ExecContext(ctx,
		`INSERT INTO change_events (event_type, resource_kind, resource_id, name, updated, count_today, member_id, delta, new_count, detected_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(ev.Type), string(ev.Resource.Kind), ev.ResourceID, nullString(ev.Name), nullString(ev.Updated),
		int64(ev.CountToday), ev.Member, ev.Delta, ev.NewCount, ev.DetectedAt)
	if err != nil {
		return &notify.DeliveryError{Sink: l.Name(), Err: fmt.Errorf("insert change event: %w", err)}
	}
	return nil
}

// Recent returns the newest events first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := l.DB.QueryContext(ctx,
		`SELECT id, event_type, resource_kind, resource_id, COALESCE(name, ''), COALESCE(updated, ''),
		        COALESCE(count_today, 0), COALESCE(member_id, 0), COALESCE(delta, 0), COALESCE(new_count, 0), detected_at
		 FROM change_events ORDER BY detected_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query change events: %w", err)
	}
	defer rows.Close()
	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.ResourceKind, &e.ResourceID, &e.Name, &e.Updated,
			&e.CountToday, &e.Member, &e.Delta, &e.NewCount, &e.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan change event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
