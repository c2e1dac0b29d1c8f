// Handles summations over commits.
package tally

import (
	"slices"
	"unicode/utf8"

	"github.com/sinclairtarget/coderank/internal/git"
)

// What Add did with a commit.
type Outcome int

const (
	Counted   Outcome = iota
	Duplicate         // Already counted elsewhere; ignored entirely
	Oversized         // Over the commit limit; only the name was considered
)

func (o Outcome) String() string {
	switch o {
	case Counted:
		return "counted"
	case Duplicate:
		return "duplicate"
	case Oversized:
		return "oversized"
	default:
		panic("unrecognized outcome in switch statement")
	}
}

// Lines added and removed per author, keyed by normalized email.
//
// Lookups of authors never seen return zero counts and an empty name. An
// author becomes part of Authors() with their first counted commit; names are
// tracked for every commit that is not a duplicate, counted or not.
type Aggregate struct {
	filter Filter
	keys   []string // Authors in order of first counted commit
	plus   map[string]int
	minus  map[string]int
	names  map[string]string
}

func NewAggregate(filter Filter) *Aggregate {
	return &Aggregate{
		filter: filter,
		keys:   []string{},
		plus:   map[string]int{},
		minus:  map[string]int{},
		names:  map[string]string{},
	}
}

// Folds a commit into the totals of its author.
func (a *Aggregate) Add(commit git.Commit) (Outcome, DiffStat) {
	stat := Extract(commit.FileDiffs)

	outcome := a.AddStat(commit, stat)
	if outcome == Duplicate {
		return outcome, DiffStat{}
	}

	return outcome, stat
}

// Same as Add for a commit whose diff was already reduced to stat. The
// commit's FileDiffs are ignored.
func (a *Aggregate) AddStat(commit git.Commit, stat DiffStat) Outcome {
	if a.filter.Seen(commit.Hash) {
		return Duplicate
	}

	key := commit.AuthorKey()

	outcome := Oversized
	if a.filter.Admit(stat) {
		a.count(key, stat)
		outcome = Counted
	}

	a.offerName(key, commit.AuthorName)
	return outcome
}

func (a *Aggregate) count(key string, stat DiffStat) {
	if _, ok := a.plus[key]; !ok {
		a.keys = append(a.keys, key)
		a.plus[key] = 0
		a.minus[key] = 0
		if _, ok := a.names[key]; !ok {
			a.names[key] = ""
		}
	}

	a.plus[key] += stat.Additions
	a.minus[key] += stat.Deletions
}

// The stored name is replaced only by a strictly longer one, so between names
// of equal length the first one offered stays.
func (a *Aggregate) offerName(key string, name string) {
	last, ok := a.names[key]
	if !ok || longer(name, last) {
		a.names[key] = name
	}
}

// Length is counted in characters, not bytes.
func longer(s, than string) bool {
	return utf8.RuneCountInString(s) > utf8.RuneCountInString(than)
}

func (a *Aggregate) Authors() []string {
	return slices.Clone(a.keys)
}

func (a *Aggregate) Plus(key string) int {
	return a.plus[key]
}

func (a *Aggregate) Minus(key string) int {
	return a.minus[key]
}

func (a *Aggregate) Name(key string) string {
	return a.names[key]
}

func (a *Aggregate) Len() int {
	return len(a.keys)
}

func (a *Aggregate) IsEmpty() bool {
	return len(a.keys) == 0 && len(a.names) == 0
}

// Sum over all authors.
func (a *Aggregate) Total() DiffStat {
	var total DiffStat
	for _, key := range a.keys {
		total.Additions += a.plus[key]
		total.Deletions += a.minus[key]
	}

	return total
}

// Returns a copy sharing no maps with a. The copy has no filter.
func (a *Aggregate) Clone() *Aggregate {
	clone := NewAggregate(Filter{})
	clone.keys = slices.Clone(a.keys)
	for k, v := range a.plus {
		clone.plus[k] = v
	}
	for k, v := range a.minus {
		clone.minus[k] = v
	}
	for k, v := range a.names {
		clone.names[k] = v
	}

	return clone
}
