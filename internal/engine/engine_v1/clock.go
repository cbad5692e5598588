package engine

import (
	"sort"
	"time"

	"github.com/woxinfeixang/strategic-space-sub001/internal/types"
)

// BuildClock derives the simulation clock: the sorted, de-duplicated
// union of primary-timeframe bar timestamps across the universe,
// bounded by [start, end] when those are set. Timestamps outside the
// bounds never appear, so the loop can trust every tick.
func BuildClock(series []types.Series, start *time.Time, end *time.Time) []time.Time {
	seen := make(map[time.Time]struct{})

	var ticks []time.Time

	for _, s := range series {
		for _, bar := range s.Bars {
			t := bar.Time

			if start != nil && t.Before(*start) {
				continue
			}

			if end != nil && t.After(*end) {
				continue
			}

			if _, ok := seen[t]; ok {
				continue
			}

			seen[t] = struct{}{}

			ticks = append(ticks, t)
		}
	}

	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].Before(ticks[j])
	})

	return ticks
}
