package tally

import (
	"cmp"
	"slices"
)

// One row of the ranking.
type Author struct {
	Email string
	Name  string
	Plus  int
	Minus int
}

// Authors in the order they were first counted.
func (a *Aggregate) Rows() []Author {
	authors := make([]Author, 0, len(a.keys))
	for _, key := range a.keys {
		authors = append(authors, Author{
			Email: key,
			Name:  a.names[key],
			Plus:  a.plus[key],
			Minus: a.minus[key],
		})
	}

	return authors
}

// Authors by descending lines added. Ties keep the order in which authors
// were first counted.
func (a *Aggregate) Ranked() []Author {
	authors := a.Rows()
	slices.SortStableFunc(authors, func(x, y Author) int {
		return cmp.Compare(y.Plus, x.Plus)
	})
	return authors
}
