package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Client that reads repositories with go-git, without a git binary.
//
// Merge commits are reported without file diffs. git's combined diff of a
// clean merge is empty, and diffing against the first parent would count
// the merged branch a second time.
type GoGitClient struct{}

func (GoGitClient) Sync(ctx context.Context, ref RepositoryRef) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error syncing %s: %w", ref, err)
		}
	}()

	branch := plumbing.NewBranchReferenceName(ref.Branch)

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
		_, err = gogit.PlainCloneContext(ctx, ref.CachePath, false, &gogit.CloneOptions{
			URL:           ref.URL,
			ReferenceName: branch,
			SingleBranch:  true,
		})
		if err != nil {
			return fmt.Errorf("clone: %w", err)
		}
	}

	repo, err := gogit.PlainOpen(ref.CachePath)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
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
	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: branch,
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull: %w", err)
	}

	return nil
}

func (GoGitClient) History(
	ctx context.Context,
	ref RepositoryRef,
	since time.Time,
) (_ iter.Seq2[Commit, error], _ func() error, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error reading history of %s: %w", ref, err)
		}
	}()

	repo, err := gogit.PlainOpen(ref.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Reference(plumbing.NewBranchReferenceName(ref.Branch), true)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve branch: %w", err)
	}

	commitIter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, nil, fmt.Errorf("log: %w", err)
	}
	defer commitIter.Close()

	// Diffs are computed lazily, so only the commit objects are held here.
	var selected []*object.Commit
	err = commitIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !c.Committer.When.Before(since) {
			selected = append(selected, c)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("log: %w", err)
	}

	commits := func(yield func(Commit, error) bool) {
		for _, c := range slices.Backward(selected) {
			if err := ctx.Err(); err != nil {
				yield(Commit{}, err)
				return
			}

			commit, err := toCommit(c)
			if !yield(commit, err) || err != nil {
				return
			}
		}
	}

	closer := func() error { return nil }
	return commits, closer, nil
}

func toCommit(c *object.Commit) (Commit, error) {
	commit := Commit{
		Hash:        c.Hash.String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		Date:        c.Committer.When,
	}

	if c.NumParents() > 1 {
		return commit, nil
	}

	diffs, err := fileDiffs(c)
	if err != nil {
		return commit, fmt.Errorf(
			"error computing diff of commit %s: %w",
			commit.Name(),
			err,
		)
	}
	commit.FileDiffs = diffs

	return commit, nil
}

// Renders the unified diff of each file changed by a commit against its
// parent, or against the empty tree for a root commit.
func fileDiffs(c *object.Commit) ([]string, error) {
	var parentTree *object.Tree
	if c.NumParents() == 1 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}

		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}

	patch, err := changes.Patch()
	if err != nil {
		return nil, err
	}

	diffs := []string{}
	for _, fp := range patch.FilePatches() {
		var buf bytes.Buffer

		enc := diff.NewUnifiedEncoder(&buf, diff.DefaultContextLines)
		err := enc.Encode(filePatch{fp})
		if err != nil {
			return nil, err
		}

		diffs = append(diffs, buf.String())
	}

	return diffs, nil
}

// A patch holding a single file, so each file can be encoded on its own.
type filePatch struct {
	fp diff.FilePatch
}

func (p filePatch) FilePatches() []diff.FilePatch {
	return []diff.FilePatch{p.fp}
}

func (p filePatch) Message() string {
	return ""
}
