/*
* Handles invoking Git as a subprocess.
 */
package cmd

import (
	"context"
	"fmt"
)

// Separates commits in the output of RunStdinShow. Each record starts with the
// NUL-delimited header fields, followed by the patch text.
//
// The marker starts with NUL, which git never prints in a text patch: files
// containing NUL are diffed as binary.
const RecordSeparator = "\x00\x1e"

const (
	indexFormat = "--format=%H%x00%ct"
	showFormat  = "--format=%x00%x1e%H%x00%ae%x00%an%x00%ct%x00"
)

// Runs git clone for a single branch
func RunClone(
	ctx context.Context,
	target Target,
	url string,
	branch string,
	dest string,
) error {
	args := []string{
		"clone",
		"-q",
		url,
		"-b",
		branch,
		"--single-branch",
		dest,
	}

	err := runToCompletion(ctx, target, args)
	if err != nil {
		return fmt.Errorf("failed to run git clone: %w", err)
	}

	return nil
}

// Runs git pull in the target directory
func RunPull(ctx context.Context, target Target) error {
	err := runToCompletion(ctx, target, []string{"pull", "-q"})
	if err != nil {
		return fmt.Errorf("failed to run git pull: %w", err)
	}

	return nil
}

// Runs git log without diffs, printing one "hash NUL committer-time" line per
// commit reachable from rev.
//
// This is cheap compared to producing patches, so we use it to decide which
// commits to ask RunStdinShow for.
func RunLogIndex(
	ctx context.Context,
	target Target,
	rev string,
) (*Subprocess, error) {
	args := []string{
		"log",
		indexFormat,
		"--no-show-signature",
		rev,
		"--",
	}

	subprocess, err := run(ctx, target, args, false)
	if err != nil {
		return nil, fmt.Errorf("failed to run git log: %w", err)
	}

	return subprocess, nil
}

// Runs git log --stdin --no-walk with patches. Hashes are written to stdin,
// one per line.
//
// Merge commits get a combined diff (--cc), same as git show would print.
// Renames are diffed as a deletion plus an addition whatever diff.renames says.
func RunStdinShow(ctx context.Context, target Target) (*Subprocess, error) {
	args := []string{
		"log",
		showFormat,
		"--stdin",
		"--no-walk=unsorted",
		"-p",
		"--cc",
		"--no-renames",
		"--no-color",
		"--no-ext-diff",
		"--no-textconv",
		"--no-show-signature",
	}

	needStdin := true
	subprocess, err := run(ctx, target, args, needStdin)
	if err != nil {
		return nil, fmt.Errorf("error running git log --stdin: %w", err)
	}

	return subprocess, nil
}

func RunAdd(ctx context.Context, target Target, path string) error {
	err := runToCompletion(ctx, target, []string{"add", "--", path})
	if err != nil {
		return fmt.Errorf("failed to run git add: %w", err)
	}

	return nil
}

// Commits only the given path.
func RunCommit(
	ctx context.Context,
	target Target,
	path string,
	message string,
) error {
	args := []string{"commit", "-q", "-m", message, "--", path}

	err := runToCompletion(ctx, target, args)
	if err != nil {
		return fmt.Errorf("failed to run git commit: %w", err)
	}

	return nil
}

func RunPush(ctx context.Context, target Target) error {
	err := runToCompletion(ctx, target, []string{"push", "-q"})
	if err != nil {
		return fmt.Errorf("failed to run git push: %w", err)
	}

	return nil
}
