// Package publish commits a rendered ranking to a git repository, such as a
// GitHub wiki, and pushes it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/git/cmd"
)

const CommitMessage = "updated by coderank"

type Publisher struct {
	Client git.ExecClient
	Ref    git.RepositoryRef
	File   string // Path of the ranking inside the repository

	// If set, Write prints the ranking to Out instead of publishing it.
	DryRun bool
	Out    io.Writer
}

// Path of the ranking file in the local clone.
func (p Publisher) Path() string {
	return filepath.Join(p.Ref.CachePath, p.File)
}

// Replaces the ranking file with data, then commits and pushes it. Nothing is
// committed when the content is unchanged. Returns whether a commit was
// pushed.
func (p Publisher) Write(ctx context.Context, data string) (_ bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("failed to publish to %s: %w", p.Ref, err)
		}
	}()

	data = strings.ToValidUTF8(data, "�")

	if p.DryRun {
		_, err := io.WriteString(p.Out, data)
		return false, err
	}

	err = p.Client.Sync(ctx, p.Ref)
	if err != nil {
		return false, err
	}

	path := p.Path()
	isNew := false

	before, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		isNew = true
	} else if err != nil {
		return false, fmt.Errorf("could not read current ranking: %w", err)
	} else if string(before) == data {
		logger().Info("ranking unchanged", "url", p.Ref.URL, "file", p.File)
		return false, nil
	}

	if isNew {
		err = os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			return false, fmt.Errorf("could not create ranking dir: %w", err)
		}
	}

	err = os.WriteFile(path, []byte(data), 0o644)
	if err != nil {
		return false, fmt.Errorf("could not write ranking: %w", err)
	}

	target := cmd.Target{
		Bin: p.Client.Bin,
		Dir: p.Ref.CachePath,
		Env: p.Client.Env,
	}

	if isNew {
		err = cmd.RunAdd(ctx, target, p.File)
		if err != nil {
			return false, err
		}
	}

	err = cmd.RunCommit(ctx, target, p.File, CommitMessage)
	if err != nil {
		return false, err
	}

	logger().Info(
		"push",
		"url",
		p.Ref.URL,
		"branch",
		p.Ref.Branch,
		"path",
		p.Ref.CachePath,
	)
	err = cmd.RunPush(ctx, target)
	if err != nil {
		return false, err
	}

	return true, nil
}
