package watch

import (
	"errors"
	"testing"
	"time"

	"github.com/onnwee/onett-watch/catalog"
)

func TestStoreUpdateAlignsCounter(t *testing.T) {
	yesterday := Day{2024, time.April, 30}
	s := NewStore([]catalog.Resource{titleA}, yesterday)
	_, _, err := s.Update(titleA, yesterday, now, "", func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
		c.Count = 4
		return TitleSnapshot{Updated: "x"}, c, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var seen DailyCounter
	_, committed, err := s.Update(titleA, today, now, "Alpha Live", func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
		seen = c
		c.Count++
		return stored, c, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != (DailyCounter{Date: today}) {
		t.Errorf("diff saw %+v, want zero counter for today", seen)
	}
	if committed.Count != 1 {
		t.Errorf("committed count = %d, want 1", committed.Count)
	}
	if got := s.Status(today)[0].Name; got != "Alpha Live" {
		t.Errorf("status name = %q, want observed name", got)
	}
}

func TestStoreUnknownResource(t *testing.T) {
	s := NewStore([]catalog.Resource{titleA}, today)
	_, _, err := s.Update(titleB, today, now, "", func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
		t.Fatal("diff must not run for unknown resource")
		return nil, c, nil
	})
	if err == nil {
		t.Fatal("expected error for unknown resource")
	}
	if _, _, ok := s.Get(titleB); ok {
		t.Error("Get reported an unknown resource")
	}
	s.RecordFailure(titleB, now, errors.New("ignored"))
}

func TestStoreRecordFailureKeepsState(t *testing.T) {
	s := NewStore([]catalog.Resource{groupM}, today)
	s.Update(groupM, today, now, "", func(Snapshot, DailyCounter) (Snapshot, DailyCounter, []Event) {
		return MemberSetSnapshot{Members: map[int64]struct{}{1: {}}}, DailyCounter{Date: today, Count: 2}, nil
	})
	s.RecordFailure(groupM, now.Add(time.Minute), errors.New("timeout"))

	snap, counter, _ := s.Get(groupM)
	if len(snap.(MemberSetSnapshot).Members) != 1 || counter.Count != 2 {
		t.Errorf("state changed after failure: %v %v", snap, counter)
	}
	st := s.Status(today)[0]
	if st.LastError != "timeout" || st.LastSuccess == nil || st.LastFailure == nil {
		t.Errorf("status = %+v", st)
	}
	if st.Value != "1 members" || st.CountToday != 2 || !st.Initialized {
		t.Errorf("status value = %+v", st)
	}
}

func TestStoreResetAndStaleRead(t *testing.T) {
	s := NewStore([]catalog.Resource{titleA, groupC}, today)
	for _, r := range []catalog.Resource{titleA, groupC} {
		s.Update(r, today, now, "", func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
			c.Count = 3
			return stored, c, nil
		})
	}
	tomorrow := Day{2024, time.May, 2}
	if c := s.Counter(titleA, tomorrow); c.Count != 0 {
		t.Errorf("stale counter read = %d, want 0", c.Count)
	}
	if _, raw, _ := s.Get(titleA); raw.Count != 3 {
		t.Errorf("Counter mutated state: %+v", raw)
	}
	s.ResetCounters(tomorrow)
	for _, r := range []catalog.Resource{titleA, groupC} {
		if _, raw, _ := s.Get(r); raw != (DailyCounter{Date: tomorrow}) {
			t.Errorf("%s after reset = %+v", r.Key(), raw)
		}
	}
}

func TestNewStoreDeduplicates(t *testing.T) {
	s := NewStore([]catalog.Resource{titleA, titleA, groupM}, today)
	if got := len(s.Status(today)); got != 2 {
		t.Errorf("status entries = %d, want 2", got)
	}
	if st := s.Status(today)[0]; st.Initialized || st.Value != "" {
		t.Errorf("fresh entry = %+v", st)
	}
}
