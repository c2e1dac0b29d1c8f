package tally

import "strings"

// Lines added and removed by a commit.
type DiffStat struct {
	Additions int
	Deletions int
}

func (s DiffStat) Plus(o DiffStat) DiffStat {
	return DiffStat{
		Additions: s.Additions + o.Additions,
		Deletions: s.Deletions + o.Deletions,
	}
}

// Counts lines starting with "+" and "-" in the diff text of one file.
//
// The count runs over the whole text, headers included, so the "+++ b/path"
// and "--- a/path" lines of a textual diff add one to each side.
func CountLines(text string) DiffStat {
	var stat DiffStat

	for len(text) > 0 {
		switch text[0] {
		case '+':
			stat.Additions += 1
		case '-':
			stat.Deletions += 1
		}

		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		text = text[i+1:]
	}

	return stat
}

// Sums CountLines over the diff text of every file in a commit.
func Extract(diffs []string) DiffStat {
	var stat DiffStat
	for _, d := range diffs {
		stat = stat.Plus(CountLines(d))
	}

	return stat
}
