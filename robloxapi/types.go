package robloxapi

import "github.com/onnwee/onett-watch/catalog"

// TitleObservation is the observable state of a title. Updated is the upstream
// last-modified value kept verbatim; it is compared for equality only.
type TitleObservation struct {
	PlaceID    int64
	UniverseID int64
	Name       string
	Updated    string
}

// GroupObservation carries a member id list (members mode) or only a total (count mode).
// Members is ordered newest first. Truncated means the list stopped at the page cap
// and older members are missing from it.
type GroupObservation struct {
	GroupID     int64
	Name        string
	Mode        catalog.GroupMode
	Members     []int64
	Truncated   bool
	MemberCount int
}

// GroupInfo is the group summary used for on-demand reports.
type GroupInfo struct {
	ID          int64
	Name        string
	MemberCount int
}
