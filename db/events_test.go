package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/notify"
	"github.com/onnwee/onett-watch/watch"
)

var detected = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)

func TestEventLogNotify(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ev := watch.Event{
		Type:       watch.EventTitleUpdated,
		Resource:   catalog.Resource{ID: 7, Kind: catalog.KindTitle},
		ResourceID: 7,
		Name:       "Bees",
		Updated:    "2024-05-01T14:59:00Z",
		CountToday: 2,
		DetectedAt: detected,
	}
	mock.ExpectExec("INSERT INTO change_events").
		WithArgs("title_updated", "title", int64(7), "Bees", "2024-05-01T14:59:00Z", int64(2), int64(0), 0, 0, detected).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &EventLog{DB: db}
	if err := log.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventLogNotifyFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO change_events").WillReturnError(errors.New("connection reset"))
	err = (&EventLog{DB: db}).Notify(context.Background(), watch.Event{Type: watch.EventGroupMemberJoined, ResourceID: 3, Member: 8, DetectedAt: detected})
	var de *notify.DeliveryError
	if !errors.As(err, &de) || de.Sink != "history" {
		t.Fatalf("err = %v, want history DeliveryError", err)
	}
}

func TestEventLogRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	cols := []string{"id", "event_type", "resource_kind", "resource_id", "name", "updated", "count_today", "member_id", "delta", "new_count", "detected_at"}
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultRecentLimit},
		{"explicit", 5, 5},
		{"capped", 10000, maxRecentLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectQuery("FROM change_events ORDER BY detected_at DESC").
				WithArgs(tt.wantLimit).
				WillReturnRows(sqlmock.NewRows(cols).
					AddRow(2, "group_member_joined", "group", 5, "Crew", "", 0, 99, 0, 0, detected).
					AddRow(1, "title_updated", "title", 7, "Bees", "t1", 1, 0, 0, 0, detected.Add(-time.Minute)))
			got, err := (&EventLog{DB: db}).Recent(context.Background(), tt.limit)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != 2 || got[0].Member != 99 || got[1].Updated != "t1" || got[1].CountToday != 1 {
				t.Errorf("Recent = %+v", got)
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
