package watch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/onett-watch/catalog"
)

// Query produces on-demand reports. It fetches on its own and only reads the Store.
type Query struct {
	Resources   []catalog.Resource
	Fetcher     Fetcher
	Store       *Store
	Days        *DayTracker
	Concurrency int
}

// Titles reports the last update time and today's counter for every title.
func (q *Query) Titles(ctx context.Context) []string {
	return q.collect(ctx, catalog.KindTitle, q.titleReport)
}

// Groups reports current member data for every group.
func (q *Query) Groups(ctx context.Context) []string {
	return q.collect(ctx, catalog.KindGroup, q.groupReport)
}

// All reports every resource, titles first.
func (q *Query) All(ctx context.Context) []string {
	return append(q.Titles(ctx), q.Groups(ctx)...)
}

// collect fetches in parallel (bounded by Concurrency) and keeps catalog order.
func (q *Query) collect(ctx context.Context, kind catalog.Kind, report func(context.Context, catalog.Resource) string) []string {
	var selected []catalog.Resource
	for _, r := range q.Resources {
		if r.Kind == kind {
			selected = append(selected, r)
		}
	}
	out := make([]string, len(selected))
	limit := q.Concurrency
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, res := range selected {
		g.Go(func() error {
			out[i] = report(ctx, res)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (q *Query) titleReport(ctx context.Context, res catalog.Resource) string {
	obs, err := q.Fetcher.FetchTitle(ctx, res)
	if err != nil {
		return fmt.Sprintf("%s: Error fetching info", res.DisplayName())
	}
	counter := q.Store.Counter(res, q.Days.Today())
	return fmt.Sprintf("%s\nLast updated: %s\nUpdated %d times today.",
		nameOr(obs.Name, res), FormatUpdated(obs.Updated, q.Days.Location()), counter.Count)
}

func (q *Query) groupReport(ctx context.Context, res catalog.Resource) string {
	info, err := q.Fetcher.FetchGroupInfo(ctx, res)
	if err != nil {
		return fmt.Sprintf("%s: Error fetching info", res.DisplayName())
	}
	counter := q.Store.Counter(res, q.Days.Today())
	return fmt.Sprintf("%s\nTotal Members: %d\nJoined today: %d", nameOr(info.Name, res), info.MemberCount, counter.Count)
}
