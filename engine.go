package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sinclairtarget/coderank/internal/concurrent"
	"github.com/sinclairtarget/coderank/internal/config"
	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/metrics"
	"github.com/sinclairtarget/coderank/internal/repolist"
	"github.com/sinclairtarget/coderank/internal/tally"
)

// Registers the flags that control how repositories are synced and tallied.
func addEngineFlags(flags *pflag.FlagSet) config.FlagBindings {
	flags.String("git", config.DefaultGit, "Git executable")
	flags.String(
		"backend",
		config.DefaultBackend,
		fmt.Sprintf("How to read repositories, one of %v", git.Backends),
	)
	flags.StringP("cache-dir", "c", config.DefaultCacheDir, "Where repositories are cloned")
	flags.StringP(
		"since",
		"s",
		config.DefaultSince,
		"Only count commits at or after this date, e.g. 2024-01-31",
	)
	flags.IntP("parallel", "P", config.DefaultParallel, "Repositories to process at once")
	flags.IntP(
		"limit",
		"l",
		config.DefaultCommitLimit,
		"Ignore commits adding this many lines or more",
	)
	flags.BoolP("unique", "U", false, "Count each commit id once across repositories")
	flags.String(
		"isolation",
		config.DefaultIsolation,
		"Worker model, \"shared\" or \"isolated\"",
	)
	flags.String("dedup-backend", config.DefaultDedup, "Store for seen commit ids")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file")

	return config.FlagBindings{
		"git":           "git",
		"backend":       "backend",
		"cache_dir":     "cache-dir",
		"since":         "since",
		"parallel":      "parallel",
		"commit_limit":  "limit",
		"unique":        "unique",
		"isolation":     "isolation",
		"dedup.backend": "dedup-backend",
		"metrics_file":  "metrics-file",
	}
}

// Everything needed to tally a set of repositories.
type engine struct {
	cfg      *config.Config
	client   git.Client
	opts     concurrent.Opts
	recorder *metrics.Recorder
}

func newEngine(cfg *config.Config) (*engine, error) {
	client, err := git.NewClient(cfg.Backend, cfg.Git)
	if err != nil {
		return nil, err
	}

	since, err := cfg.SinceTime()
	if err != nil {
		return nil, err
	}

	filter := tally.Filter{CommitLimit: cfg.CommitLimit}
	if cfg.Unique {
		store, err := tally.NewDedupStore(cfg.Dedup.Backend)
		if err != nil {
			return nil, err
		}
		filter.Dedup = store
	}

	return &engine{
		cfg:    cfg,
		client: client,
		opts: concurrent.Opts{
			Parallel:  cfg.Parallel,
			Since:     since,
			Filter:    filter,
			Isolation: cfg.IsolationModel(),
		},
		recorder: metrics.NewRecorder(),
	}, nil
}

func (e *engine) ref(url string, branch string) git.RepositoryRef {
	return git.NewRepositoryRef(e.cfg.CacheDir, url, branch)
}

func (e *engine) refs(entries []repolist.Entry) []git.RepositoryRef {
	refs := make([]git.RepositoryRef, 0, len(entries))
	for _, entry := range entries {
		refs = append(refs, entry.Ref(e.cfg.CacheDir))
	}

	return refs
}

// Tallies and merges the repositories. Repositories that fail are logged and
// left out.
func (e *engine) aggregate(
	ctx context.Context,
	refs []git.RepositoryRef,
) (*tally.Aggregate, error) {
	agg, results, err := concurrent.Run(ctx, e.client, refs, e.opts)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed += 1
		}
	}

	logger().Info(
		"tallied repositories",
		"repos",
		len(refs),
		"failed",
		failed,
		"authors",
		agg.Len(),
	)

	if e.cfg.MetricsFile != "" {
		e.recorder.ObserveResults(results)

		err = e.recorder.WriteTextfile(e.cfg.MetricsFile)
		if err != nil {
			return nil, err
		}
	}

	return agg, nil
}
