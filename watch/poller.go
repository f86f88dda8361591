package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/robloxapi"
	"github.com/onnwee/onett-watch/telemetry"
)

// Fetcher reads current resource state from the remote platform.
type Fetcher interface {
	FetchTitle(ctx context.Context, res catalog.Resource) (robloxapi.TitleObservation, error)
	FetchGroup(ctx context.Context, res catalog.Resource) (robloxapi.GroupObservation, error)
	FetchGroupInfo(ctx context.Context, res catalog.Resource) (robloxapi.GroupInfo, error)
}

// Notifier delivers one change event. Returned errors are logged by the caller;
// state has already been committed when Notify runs.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Poller drives the periodic fetch → diff → notify loop.
type Poller struct {
	Resources []catalog.Resource
	Fetcher   Fetcher
	Store     *Store
	Days      *DayTracker
	Engine    Engine
	Notifier  Notifier
	Interval  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	mu       sync.RWMutex
	lastTick time.Time
}

// TickSummary reports what one tick did.
type TickSummary struct {
	Day              Day
	Reset            bool
	Fetched          int
	FetchFailures    int
	Events           int
	DeliveryFailures int
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run ticks immediately and then every Interval until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("poller started", slog.Duration("interval", interval), slog.Int("resources", len(p.Resources)),
		slog.String("policy", p.Engine.Policy.String()), slog.String("component", "poller"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			slog.Info("poller stopped", slog.String("component", "poller"))
			return
		case <-ticker.C:
		}
	}
}

// LastTick returns when the most recent tick finished (zero before the first).
func (p *Poller) LastTick() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastTick
}

// Tick runs one pass over every resource. The day boundary is evaluated once,
// before any resource is fetched.
func (p *Poller) Tick(ctx context.Context) TickSummary {
	start := p.now()
	ctx = telemetry.WithCorrelation(ctx, uuid.New().String())
	ctx, span := telemetry.StartSpan(ctx, "watch", "poll.tick", attribute.Int("resources", len(p.Resources)))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "poller"))

	var sum TickSummary
	sum.Day, sum.Reset = p.Days.Check(start)
	if sum.Reset {
		p.Store.ResetCounters(sum.Day)
		telemetry.RecordDayReset()
		log.Info("daily counters reset", slog.String("day", sum.Day.String()))
	}

	for _, res := range p.Resources {
		if ctx.Err() != nil {
			break
		}
		events, err := p.pollResource(ctx, res, sum.Day)
		if err != nil {
			sum.FetchFailures++
			p.Store.RecordFailure(res, p.now(), err)
			reason := "unknown"
			if kind, ok := robloxapi.KindOf(err); ok {
				reason = kind.String()
			}
			telemetry.RecordFetch(string(res.Kind), reason)
			log.Warn("fetch failed; keeping previous state", slog.String("resource", res.Key()), slog.String("reason", reason), slog.Any("err", err))
			continue
		}
		sum.Fetched++
		telemetry.RecordFetch(string(res.Kind), "")
		for _, ev := range events {
			sum.Events++
			telemetry.RecordEvent(string(ev.Type))
			if p.Notifier == nil {
				continue
			}
			if err := p.Notifier.Notify(ctx, ev); err != nil {
				sum.DeliveryFailures++
				log.Warn("notification delivery failed", slog.String("resource", res.Key()), slog.String("event", string(ev.Type)), slog.Any("err", err))
			}
		}
	}

	end := p.now()
	p.mu.Lock()
	p.lastTick = end
	p.mu.Unlock()
	telemetry.RecordTick(end.Sub(start))
	log.Debug("tick complete", slog.Int("fetched", sum.Fetched), slog.Int("failed", sum.FetchFailures), slog.Int("events", sum.Events))
	return sum
}

// pollResource fetches outside any store lock, then applies the diff atomically.
func (p *Poller) pollResource(ctx context.Context, res catalog.Resource, today Day) ([]Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "watch", "poll.fetch", attribute.String("resource", res.Key()))
	defer span.End()

	var (
		events  []Event
		counter DailyCounter
		err     error
	)
	switch res.Kind {
	case catalog.KindTitle:
		var obs robloxapi.TitleObservation
		obs, err = p.Fetcher.FetchTitle(ctx, res)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		now := p.now()
		events, counter, err = p.Store.Update(res, today, now, obs.Name, func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
			return p.Engine.DiffTitle(res, stored, obs, c, now)
		})
	case catalog.KindGroup:
		var obs robloxapi.GroupObservation
		obs, err = p.Fetcher.FetchGroup(ctx, res)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		now := p.now()
		events, counter, err = p.Store.Update(res, today, now, obs.Name, func(stored Snapshot, c DailyCounter) (Snapshot, DailyCounter, []Event) {
			return p.Engine.DiffGroup(res, stored, obs, c, now)
		})
	default:
		err = fmt.Errorf("poll %s: unknown resource kind %q", res.Key(), res.Kind)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	telemetry.SetDailyCount(res.Key(), counter.Count)
	return events, nil
}
