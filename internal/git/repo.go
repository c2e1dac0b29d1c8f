package git

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const DefaultBranch = "master"

// A repository branch to scan, along with where we keep our clone of it.
type RepositoryRef struct {
	URL       string
	Branch    string
	CachePath string
}

func NewRepositoryRef(cacheDir string, url string, branch string) RepositoryRef {
	if branch == "" {
		branch = DefaultBranch
	}

	return RepositoryRef{
		URL:       url,
		Branch:    branch,
		CachePath: filepath.Join(cacheDir, CacheDirname(url, branch)),
	}
}

// Identity of the ref. Two refs with the same URL and branch are the same
// repository for our purposes, wherever they are cached.
func (r RepositoryRef) Key() string {
	return r.URL + " " + r.Branch
}

func (r RepositoryRef) String() string {
	return r.Key()
}

// Name of the cache directory for a URL and branch, e.g.
// "repo.master.https%3A%2F%2Fgithub.com%2Fa%2Frepo.git".
//
// The URL is part of the name so that forks with the same basename do not
// collide.
func CacheDirname(url string, branch string) string {
	name := strings.TrimSuffix(path.Base(url), ".git")

	parts := []string{name, branch, url}
	for i, part := range parts {
		parts[i] = escape(part)
	}

	return strings.Join(parts, ".")
}

func escape(s string) string {
	return url.QueryEscape(s)
}

func isCached(ref RepositoryRef) (bool, error) {
	_, err := os.Stat(ref.CachePath)
	if err == nil {
		return true, nil
	} else if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("could not stat cache path: %w", err)
}

func ensureParentDir(ref RepositoryRef) error {
	err := os.MkdirAll(filepath.Dir(ref.CachePath), 0o755)
	if err != nil {
		return fmt.Errorf("could not create cache dir: %w", err)
	}

	return nil
}
