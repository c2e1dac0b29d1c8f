package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinclairtarget/coderank/internal/concurrent"
	"github.com/sinclairtarget/coderank/internal/tally"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coderank.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func validConfig() Config {
	return Config{
		Git:         DefaultGit,
		Backend:     DefaultBackend,
		CacheDir:    DefaultCacheDir,
		Since:       DefaultSince,
		Parallel:    DefaultParallel,
		CommitLimit: DefaultCommitLimit,
		Isolation:   DefaultIsolation,
		Dedup:       DedupConfig{Backend: DefaultDedup},
		Output:      OutputConfig{Format: DefaultFormat},
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultGit, cfg.Git)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, DefaultParallel, cfg.Parallel)
	assert.Equal(t, DefaultCommitLimit, cfg.CommitLimit)
	assert.Equal(t, DefaultIsolation, cfg.Isolation)
	assert.False(t, cfg.Unique)
	assert.Equal(t, DefaultListFile, cfg.List.File)
	assert.Equal(t, DefaultBranch, cfg.List.Branch)
	assert.Equal(t, DefaultRankFile, cfg.Rank.File)
	assert.Equal(t, DefaultBranch, cfg.Rank.Branch)
	assert.Equal(t, DefaultFormat, cfg.Output.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
parallel: 8
commit_limit: 500
unique: true
since: "2020-06-01"
github:
  user: jim
  repo: code
rank:
  file: top.md
  dry_run: true
`)

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Parallel)
	assert.Equal(t, 500, cfg.CommitLimit)
	assert.True(t, cfg.Unique)
	assert.Equal(t, "2020-06-01", cfg.Since)
	assert.Equal(t, "jim", cfg.GitHub.User)
	assert.Equal(t, "top.md", cfg.Rank.File)
	assert.True(t, cfg.Rank.DryRun)
	assert.Equal(t, DefaultBranch, cfg.Rank.Branch)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("CODERANK_PARALLEL", "6")
	t.Setenv("CODERANK_RANK_FILE", "env.md")

	path := writeConfig(t, "parallel: 2\n")

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Parallel)
	assert.Equal(t, "env.md", cfg.Rank.File)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "parallel: 2\ncommit_limit: 40\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("parallel", DefaultParallel, "")
	flags.Int("commit-limit", DefaultCommitLimit, "")
	require.NoError(t, flags.Set("parallel", "9"))

	cfg, err := Load(path, flags, FlagBindings{
		"parallel":     "parallel",
		"commit_limit": "commit-limit",
	})
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Parallel)
	assert.Equal(t, 40, cfg.CommitLimit, "unset flag should not override")
}

func TestLoadUnknownFlagBinding(t *testing.T) {
	path := writeConfig(t, "")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	_, err := Load(path, flags, FlagBindings{"parallel": "nope"})
	require.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "parallel: 0\n")

	_, err := Load(path, nil, nil)
	require.ErrorIs(t, err, tally.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero parallel", func(c *Config) { c.Parallel = 0 }, false},
		{"negative parallel", func(c *Config) { c.Parallel = -2 }, false},
		{"zero limit", func(c *Config) { c.CommitLimit = 0 }, false},
		{"bad since", func(c *Config) { c.Since = "last tuesday" }, false},
		{"bad isolation", func(c *Config) { c.Isolation = "forked" }, false},
		{"bad backend", func(c *Config) { c.Backend = "svn" }, false},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, false},
		{
			"unique shared",
			func(c *Config) { c.Unique = true },
			true,
		},
		{
			"unique isolated",
			func(c *Config) {
				c.Unique = true
				c.Isolation = "isolated"
			},
			false,
		},
		{
			"isolated without unique",
			func(c *Config) { c.Isolation = "isolated" },
			true,
		},
		{
			"unknown dedup backend",
			func(c *Config) {
				c.Unique = true
				c.Dedup.Backend = "redis"
			},
			false,
		},
		{
			"dedup backend ignored without unique",
			func(c *Config) { c.Dedup.Backend = "redis" },
			true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			test.modify(&cfg)

			err := cfg.Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tally.ErrConfiguration)
			}
		})
	}
}

func TestSinceTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		since    string
		expected time.Time
	}{
		{"2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.Local)},
		{"2021-03-04 10:20", time.Date(2021, 3, 4, 10, 20, 0, 0, time.Local)},
		{"2021-03-04 10:20:30", time.Date(2021, 3, 4, 10, 20, 30, 0, time.Local)},
		{"2021-03-04T10:20:30Z", time.Date(2021, 3, 4, 10, 20, 30, 0, time.UTC)},
	}

	for _, test := range tests {
		t.Run(test.since, func(t *testing.T) {
			t.Parallel()

			cfg := Config{Since: test.since}
			got, err := cfg.SinceTime()
			require.NoError(t, err)
			assert.True(t, test.expected.Equal(got), "got %v", got)
		})
	}
}

func TestIsolationModel(t *testing.T) {
	t.Parallel()

	cfg := Config{Isolation: "isolated"}
	assert.Equal(t, concurrent.Isolated, cfg.IsolationModel())

	cfg.Isolation = "shared"
	assert.Equal(t, concurrent.Shared, cfg.IsolationModel())
}

func TestRepoURLs(t *testing.T) {
	t.Parallel()

	cfg := Config{GitHub: GitHubConfig{User: "jim", Repo: "code"}}

	listURL, err := cfg.ListRepoURL()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/jim/code.wiki.git", listURL)

	rankURL, err := cfg.RankRepoURL()
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:jim/code.wiki.git", rankURL)

	cfg.List.Repo = "https://example.com/list.git"
	cfg.Rank.Repo = "https://example.com/rank.git"

	listURL, err = cfg.ListRepoURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/list.git", listURL)

	rankURL, err = cfg.RankRepoURL()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/rank.git", rankURL)
}

func TestRepoURLsRequireGitHub(t *testing.T) {
	t.Parallel()

	cfg := Config{GitHub: GitHubConfig{User: "jim"}}

	_, err := cfg.ListRepoURL()
	require.ErrorIs(t, err, tally.ErrConfiguration)

	_, err = cfg.RankRepoURL()
	require.ErrorIs(t, err, tally.ErrConfiguration)
}
