// Package notify turns change events into messages and delivers them to the
// configured output channels.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/onett-watch/catalog"
	"github.com/onnwee/onett-watch/watch"
)

// Message is a rendered event: a one-line title and an optional body.
type Message struct {
	Title string
	Body  string
}

// Text joins title and body for plain-text channels.
func (m Message) Text() string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + "\n" + m.Body
}

// Renderer formats events using per-resource templates.
type Renderer struct {
	// Location is used for displayed timestamps. Defaults to UTC.
	Location *time.Location
}

// Render builds the message for ev.
func (r Renderer) Render(ev watch.Event) Message {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	res := ev.Resource
	name := ev.Name
	if name == "" {
		name = res.DisplayName()
	}
	updated := watch.FormatUpdated(ev.Updated, loc)
	repl := strings.NewReplacer(
		"{name}", name,
		"{member}", strconv.FormatInt(ev.Member, 10),
		"{delta}", strconv.Itoa(ev.Delta),
		"{count}", strconv.Itoa(ev.NewCount),
		"{updated}", updated,
	)

	switch ev.Type {
	case watch.EventTitleUpdated:
		return Message{
			Title: repl.Replace(or(res.UpdateMessage, catalog.DefaultUpdateMessage)),
			Body:  fmt.Sprintf("Last updated: %s\nUpdated %d times today.", updated, ev.CountToday),
		}
	case watch.EventGroupMemberJoined:
		return Message{
			Title: repl.Replace(or(res.JoinMessage, catalog.DefaultJoinMessage)),
			Body:  fmt.Sprintf("Member: %d", ev.Member),
		}
	case watch.EventGroupMemberCountIncreased:
		return Message{
			Title: repl.Replace(or(res.IncreaseMessage, catalog.DefaultIncreaseMessage)),
			Body:  fmt.Sprintf("Total Members: %d", ev.NewCount),
		}
	default:
		return Message{Title: fmt.Sprintf("%s: %s", name, ev.Type)}
	}
}

func or(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
