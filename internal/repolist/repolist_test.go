package repolist

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/coderank/internal/git"
)

const markdownList = `# Repositories

* https://github.com/a/one.git
* https://github.com/a/two.git develop
1. https://github.com/a/three.git
  2. https://github.com/a/four.git release extra words

#* https://github.com/a/commented.git
https://github.com/a/one.git
https://github.com/a/one.git master
https://github.com/a/two.git
`

func TestParse(t *testing.T) {
	t.Parallel()

	entries, err := Parse(strings.NewReader(markdownList))
	require.NoError(t, err)

	expected := []Entry{
		{URL: "https://github.com/a/one.git", Branch: "master"},
		{URL: "https://github.com/a/two.git", Branch: "develop"},
		{URL: "https://github.com/a/three.git", Branch: "master"},
		{URL: "https://github.com/a/four.git", Branch: "release"},
		{URL: "https://github.com/a/two.git", Branch: "master"},
	}
	assert.Equal(t, expected, entries)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	entries, err := Parse(strings.NewReader("# nothing here\n\n   \n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	doc := `
repositories:
  - url: https://github.com/a/one.git
  - url: https://github.com/a/two.git
    branch: main
  - branch: orphan
  - url: https://github.com/a/one.git
`

	entries, err := ParseYAML(strings.NewReader(doc))
	require.NoError(t, err)

	expected := []Entry{
		{URL: "https://github.com/a/one.git", Branch: "master"},
		{URL: "https://github.com/a/two.git", Branch: "main"},
	}
	assert.Equal(t, expected, entries)
}

func TestParseYAMLInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseYAML(strings.NewReader("repositories: [url: {"))
	require.Error(t, err)
}

func TestParseYAMLEmpty(t *testing.T) {
	t.Parallel()

	entries, err := ParseYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	mdPath := filepath.Join(dir, "list.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("* https://x/md.git\n"), 0o600))

	ymlPath := filepath.Join(dir, "list.yml")
	require.NoError(t, os.WriteFile(
		ymlPath,
		[]byte("repositories:\n  - url: https://x/yml.git\n"),
		0o600,
	))

	entries, err := Read(mdPath)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{URL: "https://x/md.git", Branch: "master"}}, entries)

	entries, err = Read(ymlPath)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{URL: "https://x/yml.git", Branch: "master"}}, entries)

	entries, err = Read(filepath.Join(dir, "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntryRef(t *testing.T) {
	t.Parallel()

	e := Entry{URL: "https://github.com/a/one.git", Branch: "dev"}
	ref := e.Ref("/cache")

	assert.Equal(t, e.URL, ref.URL)
	assert.Equal(t, "dev", ref.Branch)
	assert.Equal(t, "/cache/"+git.CacheDirname(e.URL, "dev"), ref.CachePath)
}

type listClient struct {
	content string
	err     error
	synced  []git.RepositoryRef
}

func (c *listClient) Sync(_ context.Context, ref git.RepositoryRef) error {
	c.synced = append(c.synced, ref)
	if c.err != nil {
		return c.err
	}

	if c.content == "" {
		return os.MkdirAll(ref.CachePath, 0o755)
	}

	path := filepath.Join(ref.CachePath, "docs", "list.md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(c.content), 0o600)
}

func (c *listClient) History(
	context.Context,
	git.RepositoryRef,
	time.Time,
) (iter.Seq2[git.Commit, error], func() error, error) {
	return nil, nil, errors.New("not implemented")
}

func TestSourceLoad(t *testing.T) {
	t.Parallel()

	client := &listClient{content: "* https://x/one.git dev\n"}
	ref := git.NewRepositoryRef(t.TempDir(), "https://x/list.git", "")
	source := Source{Client: client, Ref: ref, File: "docs/list.md"}

	entries, err := source.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Entry{{URL: "https://x/one.git", Branch: "dev"}}, entries)
	assert.Equal(t, []git.RepositoryRef{ref}, client.synced)
}

func TestSourceLoadMissingFile(t *testing.T) {
	t.Parallel()

	client := &listClient{}
	ref := git.NewRepositoryRef(t.TempDir(), "https://x/list.git", "")
	source := Source{Client: client, Ref: ref, File: "list.md"}

	entries, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSourceLoadSyncFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	client := &listClient{err: boom}
	ref := git.NewRepositoryRef(t.TempDir(), "https://x/list.git", "")
	source := Source{Client: client, Ref: ref, File: "list.md"}

	_, err := source.Load(context.Background())
	require.ErrorIs(t, err, boom)
}
