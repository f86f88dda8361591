package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/robloxapi"
)

var errBoom = &robloxapi.FetchError{Op: "fetch", Kind: robloxapi.ErrorKindNetwork, Err: errors.New("boom")}

// fakeFetcher serves scripted responses per resource key; each fetch pops the
// head of the queue and, once the queue is drained, the last served entry repeats.
type fakeFetcher struct {
	mu        sync.Mutex
	titles    map[string][]titleStep
	groups    map[string][]groupStep
	lastTitle map[string]titleStep
	lastGroup map[string]groupStep
	info      map[string]robloxapi.GroupInfo
	calls     []string
}

type titleStep struct {
	obs robloxapi.TitleObservation
	err error
}

type groupStep struct {
	obs robloxapi.GroupObservation
	err error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		titles:    map[string][]titleStep{},
		groups:    map[string][]groupStep{},
		lastTitle: map[string]titleStep{},
		lastGroup: map[string]groupStep{},
		info:      map[string]robloxapi.GroupInfo{},
	}
}

func (f *fakeFetcher) title(res catalog.Resource, updated ...string) {
	for _, u := range updated {
		f.titles[res.Key()] = append(f.titles[res.Key()], titleStep{obs: robloxapi.TitleObservation{PlaceID: res.ID, Name: "Game", Updated: u}})
	}
}

func (f *fakeFetcher) titleErr(res catalog.Resource) {
	f.titles[res.Key()] = append(f.titles[res.Key()], titleStep{err: errBoom})
}

func (f *fakeFetcher) members(res catalog.Resource, ids ...int64) {
	f.groups[res.Key()] = append(f.groups[res.Key()], groupStep{obs: robloxapi.GroupObservation{GroupID: res.ID, Mode: catalog.ModeMembers, Members: ids, MemberCount: len(ids)}})
}

func (f *fakeFetcher) count(res catalog.Resource, n int) {
	f.groups[res.Key()] = append(f.groups[res.Key()], groupStep{obs: robloxapi.GroupObservation{GroupID: res.ID, Mode: catalog.ModeCount, MemberCount: n}})
}

func (f *fakeFetcher) groupErr(res catalog.Resource) {
	f.groups[res.Key()] = append(f.groups[res.Key()], groupStep{err: errBoom})
}

func (f *fakeFetcher) FetchTitle(ctx context.Context, res catalog.Resource) (robloxapi.TitleObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, res.Key())
	key := res.Key()
	if steps := f.titles[key]; len(steps) > 0 {
		f.lastTitle[key] = steps[0]
		f.titles[key] = steps[1:]
	}
	s, ok := f.lastTitle[key]
	if !ok {
		return robloxapi.TitleObservation{}, errBoom
	}
	return s.obs, s.err
}

func (f *fakeFetcher) FetchGroup(ctx context.Context, res catalog.Resource) (robloxapi.GroupObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, res.Key())
	key := res.Key()
	if steps := f.groups[key]; len(steps) > 0 {
		f.lastGroup[key] = steps[0]
		f.groups[key] = steps[1:]
	}
	s, ok := f.lastGroup[key]
	if !ok {
		return robloxapi.GroupObservation{}, errBoom
	}
	return s.obs, s.err
}

func (f *fakeFetcher) FetchGroupInfo(ctx context.Context, res catalog.Resource) (robloxapi.GroupInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.info[res.Key()]
	if !ok {
		return robloxapi.GroupInfo{}, errBoom
	}
	return info, nil
}

// recorder collects delivered events and can be told to fail.
type recorder struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (r *recorder) Notify(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.fail {
		return errors.New("channel rejected message")
	}
	return nil
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	titleA = catalog.Resource{ID: 1, Kind: catalog.KindTitle, Name: "Alpha"}
	titleB = catalog.Resource{ID: 2, Kind: catalog.KindTitle, Name: "Beta"}
	groupM = catalog.Resource{ID: 10, Kind: catalog.KindGroup, Name: "Crew", Mode: catalog.ModeMembers}
	groupC = catalog.Resource{ID: 11, Kind: catalog.KindGroup, Name: "Fans", Mode: catalog.ModeCount}
)
