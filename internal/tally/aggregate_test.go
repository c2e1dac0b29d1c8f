package tally_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/tally"
)

// Builds a commit whose single file diff has the given numbers of "+" and "-"
// lines, headers included.
func commit(hash string, email string, name string, plus int, minus int) git.Commit {
	var b strings.Builder
	for range plus {
		b.WriteString("+x\n")
	}
	for range minus {
		b.WriteString("-x\n")
	}

	return git.Commit{
		Hash:        hash,
		AuthorEmail: email,
		AuthorName:  name,
		FileDiffs:   []string{b.String()},
	}
}

type row struct {
	Plus  int
	Minus int
	Name  string
}

func rows(agg *tally.Aggregate) map[string]row {
	m := map[string]row{}
	for _, key := range agg.Authors() {
		m[key] = row{agg.Plus(key), agg.Minus(key), agg.Name(key)}
	}

	return m
}

func TestAddAccumulates(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{})

	agg.Add(commit("c1", "bob@mail.com", "bob", 4, 1))
	agg.Add(commit("c2", "jim@mail.com", "jim", 3, 0))
	agg.Add(commit("c3", "Bob@Mail.com ", "Bob B", 2, 2))

	expected := map[string]row{
		"bob@mail.com": {6, 3, "Bob B"},
		"jim@mail.com": {3, 0, "jim"},
	}
	if diff := cmp.Diff(expected, rows(agg)); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"bob@mail.com", "jim@mail.com"}, agg.Authors()); diff != "" {
		t.Errorf("authors mismatch (-want +got):\n%s", diff)
	}
}

func TestAbsentAuthorDefaults(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{})

	if agg.Plus("nobody@mail.com") != 0 || agg.Minus("nobody@mail.com") != 0 {
		t.Error("expected zero totals for unknown author")
	}

	if agg.Name("nobody@mail.com") != "" {
		t.Error("expected empty name for unknown author")
	}

	if !agg.IsEmpty() {
		t.Error("expected new aggregate to be empty")
	}
}

func TestAddCommitLimitExcludes(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{CommitLimit: 5})

	outcome, stat := agg.Add(commit("c1", "a@x.com", "a", 10, 1))
	if outcome != tally.Oversized {
		t.Errorf("expected outcome %v, got %v", tally.Oversized, outcome)
	}

	if stat != (tally.DiffStat{Additions: 10, Deletions: 1}) {
		t.Errorf("expected stat of the commit to be reported, got %+v", stat)
	}

	if agg.Plus("a@x.com") != 0 || agg.Minus("a@x.com") != 0 {
		t.Errorf(
			"expected oversized commit to contribute (0,0), got (%d,%d)",
			agg.Plus("a@x.com"),
			agg.Minus("a@x.com"),
		)
	}
}

func TestAddCommitLimitBoundary(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{CommitLimit: 5})

	agg.Add(commit("c1", "a@x.com", "a", 4, 0))
	agg.Add(commit("c2", "a@x.com", "a", 5, 0))
	agg.Add(commit("c3", "a@x.com", "a", 0, 50))

	if agg.Plus("a@x.com") != 4 {
		t.Errorf("expected only the commit under the limit to count, got plus=%d", agg.Plus("a@x.com"))
	}

	if agg.Minus("a@x.com") != 50 {
		t.Errorf("expected deletions alone never to exclude a commit, got minus=%d", agg.Minus("a@x.com"))
	}
}

func TestOversizedCommitStillUpdatesName(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{CommitLimit: 5})

	agg.Add(commit("c1", "a@x.com", "al", 1, 0))
	agg.Add(commit("c2", "a@x.com", "Alice Vendor", 1000, 0))

	expected := map[string]row{"a@x.com": {1, 0, "Alice Vendor"}}
	if diff := cmp.Diff(expected, rows(agg)); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestOversizedOnlyAuthorIsNotListed(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{CommitLimit: 5})

	agg.Add(commit("c1", "v@x.com", "Vendor Bot", 100, 0))

	if len(agg.Authors()) != 0 {
		t.Errorf("expected no counted authors, got %v", agg.Authors())
	}

	if agg.Name("v@x.com") != "Vendor Bot" {
		t.Errorf("expected name to be tracked anyway, got %q", agg.Name("v@x.com"))
	}
}

func TestNameTieKeepsFirst(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{})

	agg.Add(commit("c1", "a@x.com", "abc", 1, 0))
	agg.Add(commit("c2", "a@x.com", "xyz", 1, 0))
	agg.Add(commit("c3", "a@x.com", "ab", 1, 0))

	if agg.Name("a@x.com") != "abc" {
		t.Errorf("expected first name of the longest length to win, got %q", agg.Name("a@x.com"))
	}
}

func TestNameLengthCountsCharacters(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{})

	agg.Add(commit("c1", "a@x.com", "Zoë", 1, 0)) // 3 chars, 4 bytes
	agg.Add(commit("c2", "a@x.com", "Zoe", 1, 0))

	if agg.Name("a@x.com") != "Zoë" {
		t.Errorf("expected equal-length name not to replace, got %q", agg.Name("a@x.com"))
	}
}

func TestUniqueCountsCommitOnce(t *testing.T) {
	filter := tally.Filter{Dedup: tally.NewMemoryDedupStore()}
	agg := tally.NewAggregate(filter)

	first, _ := agg.Add(commit("c1", "a@x.com", "a", 3, 1))
	second, _ := agg.Add(commit("c1", "a@x.com", "a much longer name", 3, 1))

	if first != tally.Counted || second != tally.Duplicate {
		t.Errorf("expected outcomes counted, duplicate; got %v, %v", first, second)
	}

	expected := map[string]row{"a@x.com": {3, 1, "a"}}
	if diff := cmp.Diff(expected, rows(agg)); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueAcrossAggregates(t *testing.T) {
	filter := tally.Filter{Dedup: tally.NewMemoryDedupStore()}
	a := tally.NewAggregate(filter)
	b := tally.NewAggregate(filter)

	a.Add(commit("c1", "a@x.com", "a", 3, 1))
	b.Add(commit("c1", "a@x.com", "a", 3, 1))
	b.Add(commit("c2", "a@x.com", "a", 1, 0))

	merged := tally.Reduce([]*tally.Aggregate{a, b})
	expected := map[string]row{"a@x.com": {4, 1, "a"}}
	if diff := cmp.Diff(expected, rows(merged)); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestWithoutUniqueCountsRepeats(t *testing.T) {
	agg := tally.NewAggregate(tally.Filter{})

	agg.Add(commit("c1", "a@x.com", "a", 3, 1))
	agg.Add(commit("c1", "a@x.com", "a", 3, 1))

	if agg.Plus("a@x.com") != 6 {
		t.Errorf("expected repeated commit to count twice without dedup, got %d", agg.Plus("a@x.com"))
	}
}

func TestDuplicateOversizedHasNoSideEffects(t *testing.T) {
	filter := tally.Filter{CommitLimit: 5, Dedup: tally.NewMemoryDedupStore()}
	agg := tally.NewAggregate(filter)

	agg.Add(commit("c1", "a@x.com", "a", 1, 0))
	agg.Add(commit("c1", "a@x.com", "A Longer Name", 100, 0))

	if agg.Name("a@x.com") != "a" {
		t.Errorf("expected duplicate commit not to update name, got %q", agg.Name("a@x.com"))
	}
}
