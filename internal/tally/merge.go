package tally

// Merges b into a and returns a.
//
// Totals add up. For names, a counts as the earlier side: b's name replaces
// a's only if it is strictly longer. Merging is therefore associative, and
// commutative for the totals but not for the names of equal length.
func (a *Aggregate) Merge(b *Aggregate) *Aggregate {
	for _, key := range b.keys {
		a.count(key, DiffStat{Additions: b.plus[key], Deletions: b.minus[key]})
	}

	for key, name := range b.names {
		a.offerName(key, name)
	}

	return a
}

// Merges b into a fresh copy of a, leaving both untouched.
func Merge(a, b *Aggregate) *Aggregate {
	return a.Clone().Merge(b)
}

// Left-folds aggs, in order, into a new empty aggregate. Nil entries are
// skipped.
func Reduce(aggs []*Aggregate) *Aggregate {
	result := NewAggregate(Filter{})
	for _, agg := range aggs {
		if agg == nil {
			continue
		}
		result.Merge(agg)
	}

	return result
}
