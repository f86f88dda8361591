// Package testutil provides a mock of the Roblox web APIs for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// MockRobloxServer serves the subset of Roblox endpoints the watcher consumes.
// Handlers are keyed by request path; unknown paths return 404.
type MockRobloxServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// NewMockRobloxServer starts a mock server closed on test cleanup.
func NewMockRobloxServer(t *testing.T) *MockRobloxServer {
	t.Helper()
	m := &MockRobloxServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		handler, ok := m.handlers[r.URL.Path]
		m.hits[r.URL.Path]++
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers a raw handler for path.
func (m *MockRobloxServer) Handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = h
}

// Hits returns how many requests reached path.
func (m *MockRobloxServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// Client returns an http.Client whose requests to any host are sent to the mock server.
func (m *MockRobloxServer) Client() *http.Client {
	target, _ := url.Parse(m.URL)
	return &http.Client{Transport: &RewriteTransport{Target: target}}
}

// MockUniverse answers place -> universe resolution.
func (m *MockRobloxServer) MockUniverse(placeID, universeID int64) {
	m.Handle(fmt.Sprintf("/universes/v1/places/%d/universe", placeID), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"universeId": universeID})
	})
}

// MockGames answers universe metadata lookups. updated maps universe id -> (name, updated).
func (m *MockRobloxServer) MockGames(games map[int64][2]string) {
	m.Handle("/v1/games", func(w http.ResponseWriter, r *http.Request) {
		data := []map[string]any{}
		for _, raw := range strings.Split(r.URL.Query().Get("universeIds"), ",") {
			var id int64
			if _, err := fmt.Sscan(raw, &id); err != nil {
				continue
			}
			if g, ok := games[id]; ok {
				data = append(data, map[string]any{"id": id, "name": g[0], "updated": g[1]})
			}
		}
		writeJSON(w, map[string]any{"data": data})
	})
}

// MockGroupInfo answers group summary lookups.
func (m *MockRobloxServer) MockGroupInfo(groupID int64, name string, memberCount int) {
	m.Handle(fmt.Sprintf("/v1/groups/%d", groupID), func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": groupID, "name": name, "memberCount": memberCount})
	})
}

// MockGroupMembers answers the member listing in a single page.
func (m *MockRobloxServer) MockGroupMembers(groupID int64, userIDs []int64) {
	m.Handle(fmt.Sprintf("/v1/groups/%d/users", groupID), func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, 0, len(userIDs))
		for _, id := range userIDs {
			data = append(data, map[string]any{"user": map[string]any{"userId": id}})
		}
		writeJSON(w, map[string]any{"data": data, "nextPageCursor": nil})
	})
}

// MemberListing is a mutable group roster served newest first with cursor paging.
// Ids are held in join order, oldest first.
type MemberListing struct {
	mu  sync.Mutex
	ids []int64
}

// Set replaces the roster.
func (l *MemberListing) Set(ids []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append([]int64(nil), ids...)
}

func (l *MemberListing) page(start, limit int) (data []map[string]any, next int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.ids) - 1 - start; i >= 0 && len(data) < limit; i-- {
		data = append(data, map[string]any{"user": map[string]any{"userId": l.ids[i]}})
	}
	return data, start + len(data)
}

func (l *MemberListing) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// MockMemberListing answers the member listing newest first, one page per request
// with limit defaulting to 100 and the cursor being the offset into the listing.
func (m *MockRobloxServer) MockMemberListing(groupID int64, ids []int64) *MemberListing {
	l := &MemberListing{}
	l.Set(ids)
	m.Handle(fmt.Sprintf("/v1/groups/%d/users", groupID), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sortOrder") != "Desc" {
			http.Error(w, "newest-first listing only", http.StatusBadRequest)
			return
		}
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit <= 0 {
			limit = 100
		}
		start, _ := strconv.Atoi(q.Get("cursor")) //nolint:errcheck // empty cursor is offset 0
		data, next := l.page(start, limit)
		if data == nil {
			data = []map[string]any{}
		}
		body := map[string]any{"data": data, "nextPageCursor": nil}
		if next < l.size() {
			body["nextPageCursor"] = strconv.Itoa(next)
		}
		writeJSON(w, body)
	})
	return l
}

// MockStatus makes path fail with the given status code.
func (m *MockRobloxServer) MockStatus(path string, status int) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// RewriteTransport sends every request to Target, keeping path and query.
type RewriteTransport struct {
	Target    *url.URL
	Transport http.RoundTripper
}

func (t *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.Target.Scheme
	r.URL.Host = t.Target.Host
	r.Host = t.Target.Host
	rt := t.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(r)
}
