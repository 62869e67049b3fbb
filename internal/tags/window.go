package tags

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSince is the lower bound used when none is given.
const DefaultSince = "2000-01-01T00:00"

// layouts accepted for timestamps without an offset, which are read in the run's zone
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime reads an ISO timestamp. One carrying an offset keeps it; a naive one is
// taken as wall time in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO timestamp %q", s)
}

// Window is a closed time interval.
type Window struct {
	Since time.Time
	Until time.Time
}

// NewWindow parses the bounds; an empty since means DefaultSince and an empty until means now.
func NewWindow(since, until string, loc *time.Location, now time.Time) (Window, error) {
	if since == "" {
		since = DefaultSince
	}
	s, err := ParseTime(since, loc)
	if err != nil {
		return Window{}, fmt.Errorf("since: %w", err)
	}
	u := now.In(loc)
	if until != "" {
		if u, err = ParseTime(until, loc); err != nil {
			return Window{}, fmt.Errorf("until: %w", err)
		}
	}
	if u.Before(s) {
		return Window{}, fmt.Errorf("until %s is before since %s", u.Format(time.RFC3339), s.Format(time.RFC3339))
	}
	return Window{Since: s, Until: u}, nil
}

// Contains reports whether t lies in the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Since) && !t.After(w.Until)
}
