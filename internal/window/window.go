// Package window resolves report date windows.
//
// A window is an inclusive [Start, End] interval ending at the reference
// timestamp of a report. The start depends on the requested range code.
package window

import (
	"strings"
	"time"

	"ledgerlens/internal/core"
)

const (
	Week  Range = "W"
	Month Range = "M"
	Year  Range = "Y"
	All   Range = "ALL"
)

type (
	// Range selects how far back a window reaches from its reference.
	Range string

	// Window is an inclusive datetime interval.
	Window struct {
		Start time.Time
		End   time.Time
	}
)

// MinTime is the lower bound of an ALL window: January 1 of year 1.
var MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseRange maps user input to a Range. Unknown codes fall back to Month.
func ParseRange(s string) Range {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "W", "WEEK":
		return Week
	case "Y", "YEAR":
		return Year
	case "ALL":
		return All
	default:
		return Month
	}
}

// Resolve returns the window for ref. End is always ref; an unrecognized
// range behaves like Month.
func Resolve(ref time.Time, r Range) Window {
	var start time.Time
	switch r {
	case Week:
		start = ref.AddDate(0, 0, -weekdayIndex(ref))
	case Year:
		start = time.Date(ref.Year(), time.January, 1, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
	case All:
		start = MinTime
	default:
		start = firstOfMonth(ref)
	}
	return Window{Start: start, End: ref}
}

// MonthToDate is the window from the first day of ref's month up to ref.
func MonthToDate(ref time.Time) Window {
	return Window{Start: firstOfMonth(ref), End: ref}
}

// Contains reports whether t falls inside the window. A zero t never does.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Filter returns the transactions whose operation time falls inside w,
// preserving ledger order.
func Filter(ledger []core.Transaction, w Window) []core.Transaction {
	out := make([]core.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if w.Contains(tx.OperationTime) {
			out = append(out, tx)
		}
	}
	return out
}

// weekdayIndex numbers weekdays from Monday = 0.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
