package git

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/sinclairtarget/coderank/internal/git/cmd"
	"github.com/sinclairtarget/coderank/internal/iterutils"
)

// Client that shells out to the git binary.
type ExecClient struct {
	Bin string   // Defaults to "git"
	Env []string // Extra environment for every git invocation
}

func (c ExecClient) target(dir string) cmd.Target {
	return cmd.Target{Bin: c.Bin, Dir: dir, Env: c.Env}
}

func (c ExecClient) Sync(ctx context.Context, ref RepositoryRef) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error syncing %s: %w", ref, err)
		}
	}()

	cached, err := isCached(ref)
	if err != nil {
		return err
	}

	if !cached {
		err = ensureParentDir(ref)
		if err != nil {
			return err
		}

		logger().Info(
			"clone",
			"url",
			ref.URL,
			"branch",
			ref.Branch,
			"path",
			ref.CachePath,
		)
		err = cmd.RunClone(ctx, c.target(""), ref.URL, ref.Branch, ref.CachePath)
		if err != nil {
			return err
		}
	}

	logger().Info(
		"pull",
		"url",
		ref.URL,
		"branch",
		ref.Branch,
		"path",
		ref.CachePath,
	)
	return cmd.RunPull(ctx, c.target(ref.CachePath))
}

// Lists commits reachable from the branch with git log, keeps those at or
// after since, then streams their patches from a second git log --stdin.
//
// We filter on commit time ourselves rather than with --since because git
// stops walking at the first old commit it meets, which drops commits in
// histories with skewed clocks.
func (c ExecClient) History(
	ctx context.Context,
	ref RepositoryRef,
	since time.Time,
) (_ iter.Seq2[Commit, error], _ func() error, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading history of %s: %w", ref, err)
		}
	}()

	hashes, err := c.hashesSince(ctx, ref, since)
	if err != nil {
		return nil, nil, err
	}
	logger().Debug("commits since cutoff", "ref", ref.Key(), "count", len(hashes))

	if len(hashes) == 0 {
		empty := iterutils.WithoutErrors(slices.Values([]Commit{}))
		return empty, func() error { return nil }, nil
	}

	subprocess, err := cmd.RunStdinShow(ctx, c.target(ref.CachePath))
	if err != nil {
		return nil, nil, err
	}

	w, stdinCloser := subprocess.StdinWriter()
	for _, hash := range hashes {
		fmt.Fprintln(w, hash)
	}

	err = w.Flush()
	if err != nil {
		return nil, nil, errors.Join(err, subprocess.Kill())
	}

	err = stdinCloser()
	if err != nil {
		return nil, nil, errors.Join(err, subprocess.Kill())
	}

	records, finish := subprocess.StdoutRecords(cmd.RecordSeparator)

	// Unless every record was read, git may still be blocked on stdout
	drained := false
	commits := func(yield func(Commit, error) bool) {
		for commit, err := range ParseCommits(records) {
			if !yield(commit, err) || err != nil {
				return
			}
		}

		drained = true
	}

	closer := func() error {
		if !drained {
			return subprocess.Kill()
		}

		err := finish()
		if err != nil {
			return errors.Join(err, subprocess.Kill())
		}

		return subprocess.Wait()
	}
	return commits, closer, nil
}

func (c ExecClient) hashesSince(
	ctx context.Context,
	ref RepositoryRef,
	since time.Time,
) ([]string, error) {
	subprocess, err := cmd.RunLogIndex(ctx, c.target(ref.CachePath), ref.Branch)
	if err != nil {
		return nil, err
	}

	hashes := []string{}

	lines, finish := subprocess.StdoutLines()
	for line := range lines {
		hash, date, err := parseIndexLine(line)
		if err != nil {
			return nil, errors.Join(err, subprocess.Kill())
		}

		if !date.Before(since) {
			hashes = append(hashes, hash)
		}
	}

	err = finish()
	if err != nil {
		return nil, errors.Join(err, subprocess.Kill())
	}

	err = subprocess.Wait()
	if err != nil {
		return nil, err
	}

	// git log prints newest first; ask for patches oldest first
	slices.Reverse(hashes)
	return hashes, nil
}
