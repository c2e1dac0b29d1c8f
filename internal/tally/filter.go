package tally

import "math"

// Used when no commit limit is configured.
const Unlimited = math.MaxInt32

// Decides which commits are counted.
type Filter struct {
	// Commits adding this many lines or more are treated as bulk imports and
	// not counted. Zero means Unlimited.
	CommitLimit int

	// When set, each commit id is counted at most once across everything
	// sharing the store.
	Dedup DedupStore
}

// Reports whether the commit was already counted, recording it if not.
func (f Filter) Seen(id string) bool {
	if f.Dedup == nil {
		return false
	}

	return !f.Dedup.Add(id)
}

// Reports whether a commit with these stats counts toward line totals.
// Only additions are checked against the limit.
func (f Filter) Admit(stat DiffStat) bool {
	return stat.Additions < f.limit()
}

func (f Filter) limit() int {
	if f.CommitLimit <= 0 {
		return Unlimited
	}

	return f.CommitLimit
}

func (f Filter) Unique() bool {
	return f.Dedup != nil
}
