// Package config loads and validates coderank settings.
//
// Settings come, in increasing precedence, from defaults, a YAML file,
// CODERANK_* environment variables and command-line flags.
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/sinclairtarget/coderank/internal/concurrent"
	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/tally"
)

// Default configuration values.
const (
	DefaultGit         = "git"
	DefaultBackend     = git.ExecBackend
	DefaultCacheDir    = "/tmp/coderank"
	DefaultSince       = "1970-01-01"
	DefaultParallel    = concurrent.DefaultParallel
	DefaultCommitLimit = 10000
	DefaultIsolation   = "shared"
	DefaultDedup       = tally.MemoryDedupBackend
	DefaultListFile    = "list.md"
	DefaultRankFile    = "rank.md"
	DefaultBranch      = git.DefaultBranch
	DefaultFormat      = "csv"
)

// Output formats of the stat command.
var Formats = []string{"csv", "table", "json", "template"}

// Layouts accepted for Since, tried in order. Dates without a zone are
// local time.
var sinceLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type Config struct {
	Git         string `mapstructure:"git"`
	Backend     string `mapstructure:"backend"`
	CacheDir    string `mapstructure:"cache_dir"`
	Since       string `mapstructure:"since"`
	Parallel    int    `mapstructure:"parallel"`
	CommitLimit int    `mapstructure:"commit_limit"`
	Unique      bool   `mapstructure:"unique"`
	Isolation   string `mapstructure:"isolation"`
	MetricsFile string `mapstructure:"metrics_file"`

	Dedup  DedupConfig  `mapstructure:"dedup"`
	GitHub GitHubConfig `mapstructure:"github"`
	List   ListConfig   `mapstructure:"list"`
	Rank   RankConfig   `mapstructure:"rank"`
	Output OutputConfig `mapstructure:"output"`
}

type DedupConfig struct {
	Backend string `mapstructure:"backend"`
}

// Shorthand for repositories hosted as GitHub wikis.
type GitHubConfig struct {
	User string `mapstructure:"user"`
	Repo string `mapstructure:"repo"`
}

// Where the list of repositories to rank is kept.
type ListConfig struct {
	Repo   string `mapstructure:"repo"`
	File   string `mapstructure:"file"`
	Branch string `mapstructure:"branch"`
}

type RankConfig struct {
	Repo     string `mapstructure:"repo"`
	File     string `mapstructure:"file"`
	Branch   string `mapstructure:"branch"`
	Template string `mapstructure:"template"`
	DryRun   bool   `mapstructure:"dry_run"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format"`
	Template string `mapstructure:"template"`
}

// Checks settings that the engine cannot run with. Errors wrap
// tally.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Parallel < 1 {
		return fmt.Errorf(
			"%w: parallel must be at least 1, got %d",
			tally.ErrConfiguration,
			c.Parallel,
		)
	}

	if c.CommitLimit < 1 {
		return fmt.Errorf(
			"%w: commit limit must be positive, got %d",
			tally.ErrConfiguration,
			c.CommitLimit,
		)
	}

	if _, err := c.SinceTime(); err != nil {
		return err
	}

	isolation, err := concurrent.ParseIsolation(c.Isolation)
	if err != nil {
		return err
	}

	if c.Unique && isolation == concurrent.Isolated {
		return fmt.Errorf(
			"%w: unique commit ids need the shared worker model, "+
				"isolated workers cannot share the dedup store",
			tally.ErrConfiguration,
		)
	}

	if !slices.Contains(git.Backends, c.Backend) {
		return fmt.Errorf(
			"%w: unknown git backend %q (want one of %v)",
			tally.ErrConfiguration,
			c.Backend,
			git.Backends,
		)
	}

	if c.Unique && !slices.Contains(tally.DedupBackends, c.Dedup.Backend) {
		return fmt.Errorf(
			"%w: unknown dedup backend %q (want one of %v)",
			tally.ErrConfiguration,
			c.Dedup.Backend,
			tally.DedupBackends,
		)
	}

	if !slices.Contains(Formats, c.Output.Format) {
		return fmt.Errorf(
			"%w: unknown output format %q (want one of %v)",
			tally.ErrConfiguration,
			c.Output.Format,
			Formats,
		)
	}

	return nil
}

func (c *Config) SinceTime() (time.Time, error) {
	for _, layout := range sinceLayouts {
		t, err := time.ParseInLocation(layout, c.Since, time.Local)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf(
		"%w: cannot parse since date %q",
		tally.ErrConfiguration,
		c.Since,
	)
}

func (c *Config) IsolationModel() concurrent.Isolation {
	isolation, _ := concurrent.ParseIsolation(c.Isolation)
	return isolation
}

// URL of the repository holding the list of repositories to rank. Defaults to
// the wiki of the configured GitHub repository.
func (c *Config) ListRepoURL() (string, error) {
	if c.List.Repo != "" {
		return c.List.Repo, nil
	}

	if c.GitHub.User == "" || c.GitHub.Repo == "" {
		return "", fmt.Errorf(
			"%w: --list-repo or (--gh-user and --gh-repo) options are required",
			tally.ErrConfiguration,
		)
	}

	return fmt.Sprintf(
		"https://github.com/%s/%s.wiki.git",
		c.GitHub.User,
		c.GitHub.Repo,
	), nil
}

// URL of the repository the ranking is pushed to. Defaults to the wiki of the
// configured GitHub repository, over SSH so that it can be pushed.
func (c *Config) RankRepoURL() (string, error) {
	if c.Rank.Repo != "" {
		return c.Rank.Repo, nil
	}

	if c.GitHub.User == "" || c.GitHub.Repo == "" {
		return "", fmt.Errorf(
			"%w: --rank-repo or (--gh-user and --gh-repo) options are required",
			tally.ErrConfiguration,
		)
	}

	return fmt.Sprintf(
		"git@github.com:%s/%s.wiki.git",
		c.GitHub.User,
		c.GitHub.Repo,
	), nil
}
