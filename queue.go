package kioku

import (
	"sort"
	"time"
)

// BuildQueue selects and orders the cards due at the given time.
//
// Cards with DueAt <= now are ordered ascending by DueAt, ties broken by
// ItemID ascending so the ordering is a total order: repeated calls over the
// same input produce the same queue. A positive limit truncates the result;
// limit <= 0 means unbounded.
//
// The input slice is never mutated. An empty result is not an error: it is
// the caller's cue to either finish ("nothing due") or bulk-seed an initial
// batch and rebuild.
func BuildQueue(cards []Card, now time.Time, limit int) []Card {
	due := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Due(now) {
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].ItemID < due[j].ItemID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
