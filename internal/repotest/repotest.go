// Helpers for tests that need a real repository on disk.
package repotest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Skips the test when there is no git binary to run.
func RequireGit(t testing.TB) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found on PATH")
	}
}

// A throwaway repository with a "master" branch.
type Repo struct {
	Path string
}

func NewRepo(t testing.TB) *Repo {
	t.Helper()
	RequireGit(t)

	r := &Repo{Path: t.TempDir()}
	r.Git(t, time.Now(), "init", "-q")
	r.Git(t, time.Now(), "symbolic-ref", "HEAD", "refs/heads/master")
	return r
}

// Runs git in the repository with a fixed identity and the given date.
func (r *Repo) Git(t testing.TB, date time.Time, args ...string) string {
	t.Helper()

	stamp := fmt.Sprintf("%d +0000", date.Unix())

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	cmd.Env = append(
		os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_AUTHOR_DATE="+stamp,
		"GIT_COMMITTER_DATE="+stamp,
		"GIT_COMMITTER_NAME=Test Committer",
		"GIT_COMMITTER_EMAIL=committer@test.com",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}

	return strings.TrimSpace(string(out))
}

// Writes the given files and commits them as the given author. Returns the
// commit hash.
func (r *Repo) Commit(
	t testing.TB,
	author string,
	email string,
	date time.Time,
	files map[string]string,
) string {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(r.Path, name)

		err := os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			t.Fatalf("could not create dir for %s: %v", name, err)
		}

		err = os.WriteFile(path, []byte(content), 0o644)
		if err != nil {
			t.Fatalf("could not write %s: %v", name, err)
		}

		r.Git(t, date, "add", "--", name)
	}

	return r.CommitStaged(t, author, email, date)
}

// Commits whatever is in the index as the given author. Returns the commit
// hash.
func (r *Repo) CommitStaged(
	t testing.TB,
	author string,
	email string,
	date time.Time,
) string {
	t.Helper()

	r.Git(
		t,
		date,
		"commit",
		"-q",
		"--no-gpg-sign",
		"--author",
		fmt.Sprintf("%s <%s>", author, email),
		"-m",
		"commit by "+author,
	)

	return r.Git(t, date, "rev-parse", "HEAD")
}

// Merges branch into the current branch with a merge commit by the given
// author. Returns the merge commit hash.
func (r *Repo) Merge(
	t testing.TB,
	author string,
	email string,
	date time.Time,
	branch string,
) string {
	t.Helper()

	r.Git(
		t,
		date,
		"-c", "user.name="+author,
		"-c", "user.email="+email,
		"merge",
		"-q",
		"--no-ff",
		"--no-gpg-sign",
		"-m",
		"merge "+branch,
		branch,
	)

	return r.Git(t, date, "rev-parse", "HEAD")
}

// Path to a file in the repository.
func (r *Repo) File(name string) string {
	return filepath.Join(r.Path, name)
}
