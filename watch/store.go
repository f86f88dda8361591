package watch

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/onnwee/onett-watch/catalog"
)

// Store owns the per-resource snapshots and daily counters. The resource set is
// fixed at construction; each resource has its own lock so a diff on one resource
// never blocks readers of another.
type Store struct {
	order   []string
	entries map[string]*entry
}

type entry struct {
	mu          sync.Mutex
	res         catalog.Resource
	name        string
	snapshot    Snapshot
	counter     DailyCounter
	lastSuccess time.Time
	lastFailure time.Time
	lastErr     string
}

// NewStore creates empty state for every resource with counters dated today.
func NewStore(resources []catalog.Resource, today Day) *Store {
	s := &Store{entries: make(map[string]*entry, len(resources))}
	for _, r := range resources {
		if _, ok := s.entries[r.Key()]; ok {
			continue
		}
		s.order = append(s.order, r.Key())
		s.entries[r.Key()] = &entry{res: r, counter: DailyCounter{Date: today}}
	}
	return s
}

func (s *Store) lookup(res catalog.Resource) (*entry, error) {
	e, ok := s.entries[res.Key()]
	if !ok {
		return nil, fmt.Errorf("unknown resource %s", res.Key())
	}
	return e, nil
}

// DiffFunc computes the next snapshot and counter from the stored ones.
type DiffFunc func(stored Snapshot, counter DailyCounter) (Snapshot, DailyCounter, []Event)

// Update runs fn atomically against the resource's state. The counter handed to fn
// is aligned to today first. It returns the emitted events and the committed counter.
func (s *Store) Update(res catalog.Resource, today Day, now time.Time, observedName string, fn DiffFunc) ([]Event, DailyCounter, error) {
	e, err := s.lookup(res)
	if err != nil {
		return nil, DailyCounter{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, counter, events := fn(e.snapshot, e.counter.On(today))
	e.snapshot = snap
	e.counter = counter
	e.lastSuccess = now
	e.lastErr = ""
	if observedName != "" {
		e.name = observedName
	}
	return events, counter, nil
}

// RecordFailure notes a failed fetch for status reporting. Snapshot and counter are not touched.
func (s *Store) RecordFailure(res catalog.Resource, now time.Time, cause error) {
	e, err := s.lookup(res)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastFailure = now
	if cause != nil {
		e.lastErr = cause.Error()
	}
}

// ResetCounters sets every counter to zero for today.
func (s *Store) ResetCounters(today Day) {
	for _, key := range s.order {
		e := s.entries[key]
		e.mu.Lock()
		e.counter = DailyCounter{Date: today}
		e.mu.Unlock()
	}
}

// Counter returns the resource's counter as of today without modifying it.
func (s *Store) Counter(res catalog.Resource, today Day) DailyCounter {
	e, err := s.lookup(res)
	if err != nil {
		return DailyCounter{Date: today}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter.On(today)
}

// Get returns the stored snapshot (nil before the first successful fetch) and raw counter.
func (s *Store) Get(res catalog.Resource) (Snapshot, DailyCounter, bool) {
	e, err := s.lookup(res)
	if err != nil {
		return nil, DailyCounter{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot, e.counter, true
}

// ResourceStatus is a read-only summary of one resource's state.
type ResourceStatus struct {
	Key         string     `json:"key"`
	ID          int64      `json:"id"`
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	Initialized bool       `json:"initialized"`
	Value       string     `json:"value,omitempty"`
	CountToday  uint       `json:"count_today"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastFailure *time.Time `json:"last_failure,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Status summarizes every resource in catalog order.
func (s *Store) Status(today Day) []ResourceStatus {
	out := make([]ResourceStatus, 0, len(s.order))
	for _, key := range s.order {
		e := s.entries[key]
		e.mu.Lock()
		st := ResourceStatus{
			Key:         key,
			ID:          e.res.ID,
			Kind:        string(e.res.Kind),
			Name:        e.res.DisplayName(),
			Initialized: e.snapshot != nil,
			Value:       describe(e.snapshot),
			CountToday:  e.counter.On(today).Count,
			LastError:   e.lastErr,
		}
		if e.name != "" {
			st.Name = e.name
		}
		if !e.lastSuccess.IsZero() {
			t := e.lastSuccess
			st.LastSuccess = &t
		}
		if !e.lastFailure.IsZero() {
			t := e.lastFailure
			st.LastFailure = &t
		}
		e.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func describe(s Snapshot) string {
	switch v := s.(type) {
	case TitleSnapshot:
		return v.Updated
	case MemberSetSnapshot:
		return strconv.Itoa(len(v.Members)) + " members"
	case MemberCountSnapshot:
		return strconv.Itoa(v.Count) + " members"
	default:
		return ""
	}
}
