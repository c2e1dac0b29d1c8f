package git

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
)

const headerFields = 4 // hash, author email, author name, committer time

// Parses one line of RunLogIndex output.
func parseIndexLine(line string) (hash string, date time.Time, err error) {
	parts := strings.Split(line, "\x00")
	if len(parts) != 2 {
		return "", time.Time{}, fmt.Errorf(
			"expected 2 fields in log index line \"%s\", got %d",
			line,
			len(parts),
		)
	}

	date, err = parseUnix(parts[1])
	if err != nil {
		return "", time.Time{}, err
	}

	return parts[0], date, nil
}

func parseUnix(s string) (time.Time, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date \"%s\": %w", s, err)
	}

	return time.Unix(i, 0), nil
}

// Parses one commit record from RunStdinShow output (without the leading
// record separator).
func parseRecord(record string) (Commit, error) {
	parts := strings.SplitN(record, "\x00", headerFields+1)
	if len(parts) < headerFields {
		return Commit{}, fmt.Errorf(
			"malformed commit record: expected %d header fields, got %d",
			headerFields,
			len(parts),
		)
	}

	commit := Commit{
		Hash:        strings.TrimSpace(parts[0]),
		AuthorEmail: parts[1],
		AuthorName:  parts[2],
	}

	date, err := parseUnix(parts[3])
	if err != nil {
		return commit, fmt.Errorf(
			"error parsing date from commit %s: %w",
			commit.Name(),
			err,
		)
	}
	commit.Date = date

	if len(parts) > headerFields {
		commit.FileDiffs = SplitPatch(parts[headerFields])
	}

	return commit, nil
}

// Splits the patch output of a commit into the diff text of each file.
//
// Each file's text starts at its "diff --git" (or "diff --cc" for merges)
// line. Anything before the first such line is dropped.
func SplitPatch(patch string) []string {
	var diffs []string
	var b strings.Builder
	inFile := false

	flush := func() {
		if inFile {
			diffs = append(diffs, b.String())
		}
		b.Reset()
	}

	for _, line := range strings.SplitAfter(patch, "\n") {
		if isFileHeader(line) {
			flush()
			inFile = true
		}

		if inFile {
			b.WriteString(line)
		}
	}
	flush()

	return diffs
}

func isFileHeader(line string) bool {
	return strings.HasPrefix(line, "diff --git ") ||
		strings.HasPrefix(line, "diff --cc ") ||
		strings.HasPrefix(line, "diff --combined ")
}

// Turns an iterator over commit records into an iterator of commits.
func ParseCommits(records iter.Seq[string]) iter.Seq2[Commit, error] {
	return func(yield func(Commit, error) bool) {
		for record := range records {
			commit, err := parseRecord(record)
			if err != nil {
				yield(commit, err)
				return
			}

			if !yield(commit, nil) {
				return
			}
		}
	}
}
