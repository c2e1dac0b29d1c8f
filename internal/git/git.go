/*
* Wraps access to the commit history of the repositories we rank.
*
* There are two ways in: invoking Git directly as a subprocess and parsing the
* output (ExecClient), or reading the object store with go-git (GoGitClient).
 */
package git

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"
)

type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Date        time.Time // Committer time
	FileDiffs   []string  // Unified diff text of each changed file
}

// Normalized email used to group commits by author across repositories.
func (c Commit) AuthorKey() string {
	return strings.ToLower(strings.TrimSpace(c.AuthorEmail))
}

func (c Commit) Name() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	} else if c.Hash != "" {
		return c.Hash
	} else {
		return "unknown"
	}
}

func (c Commit) String() string {
	return fmt.Sprintf(
		"{ hash:%s author:%s <%s> date:%s files:%d }",
		c.Name(),
		c.AuthorName,
		c.AuthorEmail,
		c.Date.Format("Jan 2, 2006"),
		len(c.FileDiffs),
	)
}

// Synchronizes repositories into the local cache and walks their history.
type Client interface {
	// Clones the repository if it is not cached yet, then pulls.
	Sync(ctx context.Context, ref RepositoryRef) error

	// Returns an iterator over commits reachable from the ref's branch whose
	// commit time is not before since, oldest first. The iterator can only be
	// ranged over once. The returned closer releases resources held by the
	// walk and reports any error that happened during cleanup.
	History(
		ctx context.Context,
		ref RepositoryRef,
		since time.Time,
	) (iter.Seq2[Commit, error], func() error, error)
}

const (
	ExecBackend  = "exec"
	GoGitBackend = "gogit"
)

// Backends lists the accepted values for NewClient.
var Backends = []string{ExecBackend, GoGitBackend}

// Returns a client for the named backend. bin is the git executable used by
// the exec backend.
func NewClient(backend string, bin string) (Client, error) {
	switch backend {
	case ExecBackend, "":
		return ExecClient{Bin: bin}, nil
	case GoGitBackend:
		return GoGitClient{}, nil
	default:
		return nil, fmt.Errorf("unknown git backend %q", backend)
	}
}
