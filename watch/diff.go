package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/robloxapi"
)

// Policy decides which detected title changes produce a notification.
type Policy int

const (
	// PolicyEveryChange emits on every detected difference.
	PolicyEveryChange Policy = iota
	// PolicyFirstOfDay emits only the first change after a counter reset.
	PolicyFirstOfDay
)

func (p Policy) String() string {
	switch p {
	case PolicyEveryChange:
		return "every-change"
	case PolicyFirstOfDay:
		return "first-of-day"
	default:
		return "unknown"
	}
}

// ParsePolicy accepts "every-change" or "first-of-day".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "every-change", "every_change":
		return PolicyEveryChange, nil
	case "first-of-day", "first_of_day":
		return PolicyFirstOfDay, nil
	default:
		return 0, fmt.Errorf("unknown notify policy %q (want every-change or first-of-day)", s)
	}
}

// CountBaseline decides what a count-mode group remembers after its count shrinks.
type CountBaseline int

const (
	// BaselineFollow stores the fresh count even when it is lower.
	BaselineFollow CountBaseline = iota
	// BaselinePeak keeps the highest count seen, so re-joins after departures stay silent.
	BaselinePeak
)

func (b CountBaseline) String() string {
	switch b {
	case BaselineFollow:
		return "follow"
	case BaselinePeak:
		return "peak"
	default:
		return "unknown"
	}
}

// ParseCountBaseline accepts "follow" or "peak".
func ParseCountBaseline(s string) (CountBaseline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "follow":
		return BaselineFollow, nil
	case "peak":
		return BaselinePeak, nil
	default:
		return 0, fmt.Errorf("unknown group count baseline %q (want follow or peak)", s)
	}
}

// Snapshot is the last observed state of one resource.
type Snapshot interface{ snapshot() }

// TitleSnapshot holds the last seen last-modified token.
type TitleSnapshot struct{ Updated string }

// MemberSetSnapshot holds the member ids of a members-mode group. Truncated marks a
// window of the newest members cut at the listing's page cap.
type MemberSetSnapshot struct {
	Members   map[int64]struct{}
	Truncated bool
}

// MemberCountSnapshot holds the baseline count of a count-mode group.
type MemberCountSnapshot struct{ Count int }

func (TitleSnapshot) snapshot()       {}
func (MemberSetSnapshot) snapshot()   {}
func (MemberCountSnapshot) snapshot() {}

// Engine is the pure diff step. stored is nil on a resource's first successful fetch,
// and counter has already been aligned to the current day by the caller.
type Engine struct {
	Policy   Policy
	Baseline CountBaseline
}

// DiffTitle compares a fresh title observation with the stored snapshot.
func (e Engine) DiffTitle(res catalog.Resource, stored Snapshot, obs robloxapi.TitleObservation, counter DailyCounter, now time.Time) (Snapshot, DailyCounter, []Event) {
	fresh := TitleSnapshot{Updated: obs.Updated}
	prev, ok := stored.(TitleSnapshot)
	if !ok {
		return fresh, counter, nil
	}
	if prev.Updated == obs.Updated {
		return prev, counter, nil
	}
	counter.Count++
	if e.Policy == PolicyFirstOfDay && counter.Count != 1 {
		return fresh, counter, nil
	}
	ev := Event{
		Type:       EventTitleUpdated,
		Resource:   res,
		ResourceID: res.ID,
		Name:       nameOr(obs.Name, res),
		Updated:    obs.Updated,
		CountToday: counter.Count,
		DetectedAt: now,
	}
	return fresh, counter, []Event{ev}
}

// DiffGroup compares a fresh group observation with the stored snapshot using the
// group's observation mode. Departures are never reported.
func (e Engine) DiffGroup(res catalog.Resource, stored Snapshot, obs robloxapi.GroupObservation, counter DailyCounter, now time.Time) (Snapshot, DailyCounter, []Event) {
	if res.Mode == catalog.ModeCount {
		return e.diffCount(res, stored, obs, counter, now)
	}
	return e.diffMembers(res, stored, obs, counter, now)
}

func (e Engine) diffMembers(res catalog.Resource, stored Snapshot, obs robloxapi.GroupObservation, counter DailyCounter, now time.Time) (Snapshot, DailyCounter, []Event) {
	fresh := MemberSetSnapshot{Members: make(map[int64]struct{}, len(obs.Members)), Truncated: obs.Truncated}
	for _, id := range obs.Members {
		fresh.Members[id] = struct{}{}
	}
	prev, ok := stored.(MemberSetSnapshot)
	if !ok {
		return fresh, counter, nil
	}
	// When either side is a capped window, ids older than the first known one may
	// only be entering the window, so the newest-first listing is read up to there.
	windowed := obs.Truncated || prev.Truncated
	var events []Event
	emitted := make(map[int64]struct{})
	for _, id := range obs.Members {
		if _, known := prev.Members[id]; known {
			if windowed {
				break
			}
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		events = append(events, Event{
			Type:       EventGroupMemberJoined,
			Resource:   res,
			ResourceID: res.ID,
			Name:       nameOr(obs.Name, res),
			Member:     id,
			DetectedAt: now,
		})
	}
	counter.Count += uint(len(events))
	return fresh, counter, events
}

func (e Engine) diffCount(res catalog.Resource, stored Snapshot, obs robloxapi.GroupObservation, counter DailyCounter, now time.Time) (Snapshot, DailyCounter, []Event) {
	fresh := MemberCountSnapshot{Count: obs.MemberCount}
	prev, ok := stored.(MemberCountSnapshot)
	if !ok {
		return fresh, counter, nil
	}
	if obs.MemberCount <= prev.Count {
		if e.Baseline == BaselinePeak {
			return prev, counter, nil
		}
		return fresh, counter, nil
	}
	delta := obs.MemberCount - prev.Count
	counter.Count += uint(delta)
	ev := Event{
		Type:       EventGroupMemberCountIncreased,
		Resource:   res,
		ResourceID: res.ID,
		Name:       nameOr(obs.Name, res),
		Delta:      delta,
		NewCount:   obs.MemberCount,
		DetectedAt: now,
	}
	return fresh, counter, []Event{ev}
}

func nameOr(name string, res catalog.Resource) string {
	if name != "" {
		return name
	}
	return res.DisplayName()
}
