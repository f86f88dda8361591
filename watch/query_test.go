package watch

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/robloxapi"
)

func TestQueryTitlesAndGroups(t *testing.T) {
	f := newPollerFixture(t, PolicyEveryChange, titleA, titleB, groupM, groupC)
	f.fetcher.title(titleA, "2024-05-01T14:00:00Z", "2024-05-01T15:04:00Z")
	f.fetcher.titleErr(titleB)
	f.fetcher.members(groupM, 1)
	f.fetcher.members(groupM, 1, 2, 3)
	f.fetcher.count(groupC, 5)
	f.tick(t)
	f.tick(t)
	f.fetcher.info[groupM.Key()] = robloxapi.GroupInfo{ID: groupM.ID, Name: "Crew HQ", MemberCount: 3}

	q := &Query{Resources: f.poller.Resources, Fetcher: f.fetcher, Store: f.store, Days: f.days, Concurrency: 2}
	titles := q.Titles(context.Background())
	want := []string{
		"Game\nLast updated: Wednesday, May 01, 2024 at 10:04 AM CDT\nUpdated 1 times today.",
		"Beta: Error fetching info",
	}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("Titles() = %q, want %q", titles, want)
	}

	groups := q.Groups(context.Background())
	wantGroups := []string{
		"Crew HQ\nTotal Members: 3\nJoined today: 2",
		"Fans: Error fetching info",
	}
	if !reflect.DeepEqual(groups, wantGroups) {
		t.Errorf("Groups() = %q, want %q", groups, wantGroups)
	}

	all := q.All(context.Background())
	if len(all) != 4 || !strings.HasPrefix(all[0], "Game") || !strings.HasPrefix(all[2], "Crew HQ") {
		t.Errorf("All() = %q", all)
	}
}

func TestQueryDoesNotMutateState(t *testing.T) {
	f := newPollerFixture(t, PolicyEveryChange, titleA)
	f.fetcher.title(titleA, "a", "b")
	f.tick(t)
	before, beforeCounter, _ := f.store.Get(titleA)

	q := &Query{Resources: f.poller.Resources, Fetcher: f.fetcher, Store: f.store, Days: f.days}
	q.Titles(context.Background())

	after, afterCounter, _ := f.store.Get(titleA)
	if before != after || beforeCounter != afterCounter {
		t.Errorf("query changed state: %v/%v -> %v/%v", before, beforeCounter, after, afterCounter)
	}
	if evs := f.notes.take(); len(evs) != 0 {
		t.Errorf("query emitted events: %+v", evs)
	}
}

func TestQueryReadsStaleCounterAsZero(t *testing.T) {
	f := newPollerFixture(t, PolicyEveryChange, titleA)
	f.fetcher.title(titleA, "a", "b")
	f.tick(t)
	f.tick(t)
	// The date moves on but no tick has run yet.
	f.clock.Advance(24 * time.Hour)
	f.days.Check(f.clock.Now())

	q := &Query{Resources: f.poller.Resources, Fetcher: f.fetcher, Store: f.store, Days: f.days}
	got := q.Titles(context.Background())[0]
	if !strings.HasSuffix(got, "Updated 0 times today.") {
		t.Errorf("report = %q, want zero count", got)
	}
}

func TestQueryConcurrentWithTick(t *testing.T) {
	resources := []catalog.Resource{titleA, titleB, groupM}
	f := newPollerFixture(t, PolicyEveryChange, resources...)
	for i := 0; i < 50; i++ {
		f.fetcher.title(titleA, "a"+strings.Repeat("x", i))
		f.fetcher.title(titleB, "b")
		f.fetcher.members(groupM, int64(i), int64(i+1))
	}
	f.fetcher.info[groupM.Key()] = robloxapi.GroupInfo{ID: groupM.ID, Name: "Crew", MemberCount: 2}
	q := &Query{Resources: resources, Fetcher: f.fetcher, Store: f.store, Days: f.days, Concurrency: 4}

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.poller.Tick(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if got := q.All(ctx); len(got) != 3 {
				t.Errorf("All() returned %d reports", len(got))
				return
			}
			f.store.Status(f.days.Today())
		}
	}()
	wg.Wait()

	// Queries share the scripted queue, so the poller sees at most 49 changes.
	if c := f.store.Counter(titleA, f.days.Today()); c.Count > 49 {
		t.Errorf("title counter = %d, want at most 49", c.Count)
	}
}
