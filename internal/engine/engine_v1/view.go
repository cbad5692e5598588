package engine

import (
	"sort"
	"time"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
)

// barsUpTo returns the prefix of bars with timestamps <= now. Bars are
// sorted ascending, so the cut point is a binary search. The returned
// slice shares backing storage with the input.
func barsUpTo(bars []types.MarketBar, now time.Time) []types.MarketBar {
	cut := sort.Search(len(bars), func(i int) bool {
		return bars[i].Time.After(now)
	})

	return bars[:cut]
}

// eventsInWindow returns the events with timestamps in (now-window, now].
// Events are sorted ascending by time.
func eventsInWindow(events []types.EconomicEvent, now time.Time, window time.Duration) []types.EconomicEvent {
	from := now.Add(-window)

	lo := sort.Search(len(events), func(i int) bool {
		return events[i].Time.After(from)
	})
	hi := sort.Search(len(events), func(i int) bool {
		return events[i].Time.After(now)
	})

	if lo >= hi {
		return nil
	}

	return events[lo:hi]
}
