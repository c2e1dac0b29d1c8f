package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/coderank/internal/config"
	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/publish"
	"github.com/sinclairtarget/coderank/internal/repolist"
	"github.com/sinclairtarget/coderank/internal/report"
)

func rankCmd(global *globalFlags) *cobra.Command {
	var bindings config.FlagBindings

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the authors of a list of repositories and publish the ranking",
		Long: `Reads the list of repositories from a file in a git repository (by
default the GitHub wiki of --gh-user/--gh-repo), ranks their authors and
commits the rendered ranking to another file in a git repository.

List lines look like "* <url> [branch]". Lines starting with # are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global, bindings)
			if err != nil {
				return fmt.Errorf("error running \"rank\": %w", err)
			}

			return rank(cmd.Context(), cfg, os.Stdout)
		},
	}

	flags := cmd.Flags()
	bindings = addEngineFlags(flags)

	flags.StringP("gh-user", "u", "", "GitHub user owning the wiki")
	flags.StringP("gh-repo", "r", "", "GitHub repository owning the wiki")
	flags.StringP("list-repo", "L", "", "Repository holding the list")
	flags.StringP("list-file", "F", config.DefaultListFile, "Path of the list")
	flags.StringP("list-branch", "B", config.DefaultBranch, "Branch of the list repository")
	flags.StringP("rank-repo", "R", "", "Repository the ranking is pushed to")
	flags.StringP("rank-file", "O", config.DefaultRankFile, "Path of the ranking")
	flags.StringP("rank-branch", "C", config.DefaultBranch, "Branch of the rank repository")
	flags.String("template", "", "Go template used to render the ranking")
	flags.Bool("dry-run", false, "Print the ranking instead of publishing it")

	maps.Copy(bindings, config.FlagBindings{
		"github.user":   "gh-user",
		"github.repo":   "gh-repo",
		"list.repo":     "list-repo",
		"list.file":     "list-file",
		"list.branch":   "list-branch",
		"rank.repo":     "rank-repo",
		"rank.file":     "rank-file",
		"rank.branch":   "rank-branch",
		"rank.template": "template",
		"rank.dry_run":  "dry-run",
	})

	return cmd
}

// The "rank" subcommand runs the whole pipeline: read the list, tally every
// repository on it, render the ranking and publish it.
func rank(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"rank\": %w", err)
		}
	}()

	start := time.Now()

	listURL, err := cfg.ListRepoURL()
	if err != nil {
		return err
	}

	rankURL, err := cfg.RankRepoURL()
	if err != nil {
		return err
	}

	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	formatter, err := report.LoadFormatter(cfg.Rank.Template, cfg)
	if err != nil {
		return err
	}

	source := repolist.Source{
		Client: e.client,
		Ref:    e.ref(listURL, cfg.List.Branch),
		File:   cfg.List.File,
	}
	entries, err := source.Load(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		logger().Info("repository", "url", entry.URL, "branch", entry.Branch)
	}

	agg, err := e.aggregate(ctx, e.refs(entries))
	if err != nil {
		return err
	}

	data, err := formatter.Format(agg)
	if err != nil {
		return err
	}

	publisher := publish.Publisher{
		Client: git.ExecClient{Bin: cfg.Git},
		Ref:    e.ref(rankURL, cfg.Rank.Branch),
		File:   cfg.Rank.File,
		DryRun: cfg.Rank.DryRun,
		Out:    out,
	}

	pushed, err := publisher.Write(ctx, data)
	if err != nil {
		return err
	}

	logger().Debug(
		"finished rank",
		"pushed",
		pushed,
		"duration_ms",
		time.Since(start).Milliseconds(),
	)
	return nil
}
