package concurrent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/tally"
)

// What happened to the commits of one repository.
type Counts struct {
	Seen      int
	Counted   int
	Duplicate int
	Oversized int
	Lines     tally.DiffStat // Lines of counted commits only
}

func (c *Counts) record(outcome tally.Outcome, stat tally.DiffStat) {
	c.Seen += 1

	switch outcome {
	case tally.Counted:
		c.Counted += 1
		c.Lines = c.Lines.Plus(stat)
	case tally.Duplicate:
		c.Duplicate += 1
	case tally.Oversized:
		c.Oversized += 1
	}
}

// Syncs the repository, then folds every commit on its branch since the
// cutoff into agg.
//
// Errors wrap tally.ErrRepositoryUnavailable.
func AggregateRepo(
	ctx context.Context,
	client git.Client,
	ref git.RepositoryRef,
	since time.Time,
	agg *tally.Aggregate,
) (counts Counts, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf(
				"%w: %s %s: %w",
				tally.ErrRepositoryUnavailable,
				ref.URL,
				ref.Branch,
				err,
			)
		}
	}()

	err = client.Sync(ctx, ref)
	if err != nil {
		return counts, err
	}

	commits, closer, err := client.History(ctx, ref, since)
	if err != nil {
		return counts, err
	}

	// Nothing is folded into agg until the walk has succeeded, so a
	// repository failing midway claims no ids in the dedup store.
	walked := []walkedCommit{}
	for commit, err := range commits {
		if err != nil {
			return counts, errors.Join(
				fmt.Errorf("error iterating commits: %w", err),
				closer(),
			)
		}

		stat := tally.Extract(commit.FileDiffs)
		commit.FileDiffs = nil
		walked = append(walked, walkedCommit{commit, stat})
	}

	err = closer()
	if err != nil {
		return counts, err
	}

	for _, w := range walked {
		outcome := agg.AddStat(w.commit, w.stat)
		counts.record(outcome, w.stat)

		if outcome == tally.Oversized {
			logger().Debug(
				"skipping oversized commit",
				"commit",
				w.commit.Name(),
				"additions",
				w.stat.Additions,
			)
		}
	}

	return counts, nil
}

// A commit with its diff already reduced to line counts.
type walkedCommit struct {
	commit git.Commit
	stat   tally.DiffStat
}
