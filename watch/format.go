package watch

import (
	"time"
)

// DisplayLayout renders upstream timestamps for people, e.g.
// "Wednesday, May 01, 2024 at 05:00 AM CDT".
const DisplayLayout = "Monday, January 02, 2006 at 03:04 PM MST"

// FormatUpdated renders an upstream last-modified token in loc. Tokens that do not
// parse as RFC 3339 are returned verbatim; an empty token is "Unknown".
func FormatUpdated(token string, loc *time.Location) string {
	if token == "" {
		return "Unknown"
	}
	t, err := time.Parse(time.RFC3339Nano, token)
	if err != nil {
		return token
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}
