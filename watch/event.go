package watch

import (
	"time"

	"github.com/onnwee/onett-watch/catalog"
)

// EventType tags which change an Event describes.
type EventType string

const (
	EventTitleUpdated              EventType = "title_updated"
	EventGroupMemberJoined         EventType = "group_member_joined"
	EventGroupMemberCountIncreased EventType = "group_member_count_increased"
)

// Event is a detected change. Fields beyond Type, Resource and DetectedAt are
// populated according to Type:
//
//	title_updated                 Name, Updated, CountToday
//	group_member_joined           Name, Member
//	group_member_count_increased  Name, Delta, NewCount
type Event struct {
	Type       EventType        `json:"type"`
	Resource   catalog.Resource `json:"-"`
	ResourceID int64            `json:"resource_id"`
	Name       string           `json:"name"`
	Updated    string           `json:"updated,omitempty"`
	CountToday uint             `json:"count_today,omitempty"`
	Member     int64            `json:"member,omitempty"`
	Delta      int              `json:"delta,omitempty"`
	NewCount   int              `json:"new_count,omitempty"`
	DetectedAt time.Time        `json:"detected_at"`
}
