package util

import (
	"strconv"
	"time"
)

// Layouts tried by ParseTime after RFC3339, in order. The simulation backend
// stamps observations with plain dates or pandas-style "date time" strings.
var stampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime tries RFC3339, RFC3339Nano, date-only and date-time layouts, and
// unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// OrderTracker remembers the last parseable timestamp per key and reports
// labels that move backwards. Unparseable labels are ignored.
type OrderTracker struct {
	last map[string]time.Time
}

func NewOrderTracker() *OrderTracker {
	return &OrderTracker{last: make(map[string]time.Time)}
}

// Observe records label for key and returns false if it precedes the
// previous parseable label seen for key.
func (o *OrderTracker) Observe(key, label string) bool {
	t, ok := ParseTime(label)
	if !ok {
		return true
	}
	prev, seen := o.last[key]
	if seen && t.Before(prev) {
		return false
	}
	o.last[key] = t
	return true
}

func (o *OrderTracker) Reset() { o.last = make(map[string]time.Time) }
