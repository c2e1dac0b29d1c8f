package repolist

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sinclairtarget/coderank/internal/git"
)

// A list file kept in a git repository.
type Source struct {
	Client git.Client
	Ref    git.RepositoryRef
	File   string // Path of the list inside the repository
}

// Syncs the list repository and reads the list from it.
func (s Source) Load(ctx context.Context) ([]Entry, error) {
	err := s.Client.Sync(ctx, s.Ref)
	if err != nil {
		return nil, fmt.Errorf("failed to sync list repository %s: %w", s.Ref, err)
	}

	entries, err := Read(filepath.Join(s.Ref.CachePath, s.File))
	if err != nil {
		return nil, err
	}

	logger().Info("read repository list", "repo", s.Ref.URL, "count", len(entries))
	return entries, nil
}
