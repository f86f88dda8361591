// Package robloxapi contains a small read-only client for the public Roblox web APIs:
// place to universe resolution, universe metadata, group info and group member listing.
// No authentication is used.
package robloxapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strconv"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/onnwee/onett-watch/catalog"
)

const (
	universesBase = "https://apis.roblox.com"
	gamesBase     = "https://games.roblox.com"
	groupsBase    = "https://groups.roblox.com"

	memberPageSize = 100
)

// Options tunes a Client. Zero values pick defaults.
type Options struct {
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxMemberPages    int
	// BreakerFailures consecutive failures open the breaker for BreakerDelay.
	BreakerFailures uint
	BreakerDelay    time.Duration
}

// Client fetches observable state for titles and groups. It never retries;
// the caller's next poll is the retry.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    circuitbreaker.CircuitBreaker[*http.Response]
	maxPages   int
	timeout    time.Duration

	sf        singleflight.Group
	mu        sync.RWMutex
	universes map[int64]int64
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	pages := opts.MaxMemberPages
	if pages <= 0 {
		pages = 10
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	delay := opts.BreakerDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThreshold(failures).
		WithDelay(delay).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && (resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
		}).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("roblox api circuit breaker state change",
				slog.String("from", stateName(e.OldState)),
				slog.String("to", stateName(e.NewState)),
				slog.String("component", "robloxapi"))
		}).
		Build()
	return &Client{
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    breaker,
		maxPages:   pages,
		timeout:    timeout,
		universes:  make(map[int64]int64),
	}
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerOpen reports whether the circuit breaker is currently open.
func (c *Client) BreakerOpen() bool { return c.breaker.IsOpen() }

// getJSON performs one paced, breaker-guarded GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, op string, id int64, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{Op: op, ID: id, Kind: ErrorKindNetwork, Err: err}
	}
	resp, err := failsafe.With[*http.Response](c.breaker).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return &FetchError{Op: op, ID: id, Kind: ErrorKindCircuitOpen, Err: err}
		}
		if resp == nil {
			return &FetchError{Op: op, ID: id, Kind: ErrorKindNetwork, Err: err}
		}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &FetchError{Op: op, ID: id, Kind: ErrorKindStatus, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Op: op, ID: id, Kind: ErrorKindPayload, Err: err}
	}
	return nil
}

// UniverseID resolves a place id to its universe id. The mapping never changes, so
// successful lookups are cached and concurrent lookups for one place share a request.
// The shared request is detached from the first caller's cancellation; each caller
// still stops waiting when its own ctx is done.
func (c *Client) UniverseID(ctx context.Context, placeID int64) (int64, error) {
	c.mu.RLock()
	uid, ok := c.universes[placeID]
	c.mu.RUnlock()
	if ok {
		return uid, nil
	}
	ch := c.sf.DoChan(strconv.FormatInt(placeID, 10), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		var body struct {
			UniverseID *int64 `json:"universeId"`
		}
		url := fmt.Sprintf("%s/universes/v1/places/%d/universe", universesBase, placeID)
		if err := c.getJSON(lookupCtx, "resolve universe", placeID, url, &body); err != nil {
			return int64(0), err
		}
		if body.UniverseID == nil || *body.UniverseID <= 0 {
			return int64(0), &FetchError{Op: "resolve universe", ID: placeID, Kind: ErrorKindPayload, Err: errors.New("universeId missing")}
		}
		c.mu.Lock()
		c.universes[placeID] = *body.UniverseID
		c.mu.Unlock()
		return *body.UniverseID, nil
	})
	select {
	case <-ctx.Done():
		return 0, &FetchError{Op: "resolve universe", ID: placeID, Kind: ErrorKindNetwork, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return 0, r.Err
		}
		return r.Val.(int64), nil
	}
}

// FetchTitle returns the current name and last-modified token for a title resource.
func (c *Client) FetchTitle(ctx context.Context, res catalog.Resource) (TitleObservation, error) {
	uid, err := c.UniverseID(ctx, res.ID)
	if err != nil {
		return TitleObservation{}, err
	}
	var body struct {
		Data []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Updated string `json:"updated"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/v1/games?universeIds=%d", gamesBase, uid)
	if err := c.getJSON(ctx, "fetch game", res.ID, url, &body); err != nil {
		return TitleObservation{}, err
	}
	if len(body.Data) == 0 {
		return TitleObservation{}, &FetchError{Op: "fetch game", ID: res.ID, Kind: ErrorKindPayload, Err: errors.New("universe not found")}
	}
	g := body.Data[0]
	if g.Updated == "" {
		return TitleObservation{}, &FetchError{Op: "fetch game", ID: res.ID, Kind: ErrorKindPayload, Err: errors.New("updated missing")}
	}
	return TitleObservation{PlaceID: res.ID, UniverseID: uid, Name: g.Name, Updated: g.Updated}, nil
}

// FetchGroupInfo returns a group's name and total member count.
func (c *Client) FetchGroupInfo(ctx context.Context, res catalog.Resource) (GroupInfo, error) {
	var body struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		MemberCount *int   `json:"memberCount"`
	}
	url := fmt.Sprintf("%s/v1/groups/%d", groupsBase, res.ID)
	if err := c.getJSON(ctx, "fetch group", res.ID, url, &body); err != nil {
		return GroupInfo{}, err
	}
	if body.MemberCount == nil {
		return GroupInfo{}, &FetchError{Op: "fetch group", ID: res.ID, Kind: ErrorKindPayload, Err: errors.New("memberCount missing")}
	}
	return GroupInfo{ID: res.ID, Name: body.Name, MemberCount: *body.MemberCount}, nil
}

// FetchMembers pages through the group's member list newest first, up to the
// configured page cap. truncated is set when the cap stopped the listing early, in
// which case the result holds only the newest members.
func (c *Client) FetchMembers(ctx context.Context, res catalog.Resource) (members []int64, truncated bool, err error) {
	cursor := ""
	for page := 0; page < c.maxPages; page++ {
		var body struct {
			NextPageCursor *string `json:"nextPageCursor"`
			Data           []struct {
				User struct {
					UserID int64 `json:"userId"`
				} `json:"user"`
				UserID int64 `json:"userId"`
			} `json:"data"`
		}
		url := fmt.Sprintf("%s/v1/groups/%d/users?sortOrder=Desc&limit=%d", groupsBase, res.ID, memberPageSize)
		if cursor != "" {
			url += "&cursor=" + neturl.QueryEscape(cursor)
		}
		if err := c.getJSON(ctx, "fetch members", res.ID, url, &body); err != nil {
			return nil, false, err
		}
		if body.Data == nil {
			return nil, false, &FetchError{Op: "fetch members", ID: res.ID, Kind: ErrorKindPayload, Err: errors.New("data missing")}
		}
		for _, m := range body.Data {
			id := m.User.UserID
			if id == 0 {
				id = m.UserID
			}
			if id != 0 {
				members = append(members, id)
			}
		}
		if body.NextPageCursor == nil || *body.NextPageCursor == "" {
			return members, false, nil
		}
		cursor = *body.NextPageCursor
	}
	return members, true, nil
}

// FetchGroup observes a group in the mode configured for it.
func (c *Client) FetchGroup(ctx context.Context, res catalog.Resource) (GroupObservation, error) {
	if res.Mode == catalog.ModeCount {
		info, err := c.FetchGroupInfo(ctx, res)
		if err != nil {
			return GroupObservation{}, err
		}
		return GroupObservation{GroupID: res.ID, Name: info.Name, Mode: catalog.ModeCount, MemberCount: info.MemberCount}, nil
	}
	members, truncated, err := c.FetchMembers(ctx, res)
	if err != nil {
		return GroupObservation{}, err
	}
	return GroupObservation{GroupID: res.ID, Mode: catalog.ModeMembers, Members: members, Truncated: truncated, MemberCount: len(members)}, nil
}
