package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/coderank/internal/config"
	"github.com/sinclairtarget/coderank/internal/format"
	"github.com/sinclairtarget/coderank/internal/tally"
)

func dumpCmd(global *globalFlags) *cobra.Command {
	var bindings config.FlagBindings

	cmd := &cobra.Command{
		Use:   "dump <url> [branch]",
		Short: "Print the commits of one repository as coderank sees them",
		Long: `Syncs one repository and prints a line per commit since the cutoff:
hash, commit date, author, lines added and removed, and what a tally would do
with the commit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global, bindings)
			if err != nil {
				return fmt.Errorf("error running \"dump\": %w", err)
			}

			branch := ""
			if len(args) > 1 {
				branch = args[1]
			}

			return dump(cmd.Context(), cfg, args[0], branch, os.Stdout)
		},
	}

	bindings = addEngineFlags(cmd.Flags())
	return cmd
}

// Just prints out the commits of a repository as seen by the tally.
func dump(
	ctx context.Context,
	cfg *config.Config,
	url string,
	branch string,
	out io.Writer,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"dump\": %w", err)
		}
	}()

	logger().Debug("called dump()", "url", url, "branch", branch)

	start := time.Now()

	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ref := e.ref(url, branch)

	err = e.client.Sync(ctx, ref)
	if err != nil {
		return err
	}

	commits, closer, err := e.client.History(ctx, ref, e.opts.Since)
	if err != nil {
		return err
	}

	agg := tally.NewAggregate(e.opts.Filter)
	w := bufio.NewWriter(out)

	n := 0
	for commit, err := range commits {
		if err != nil {
			return errors.Join(err, closer())
		}

		outcome, stat := agg.Add(commit)
		fmt.Fprintf(
			w,
			"%s %s %s %s +%d -%d %s\n",
			commit.Name(),
			commit.Date.Format(time.DateTime),
			commit.AuthorName,
			format.GitEmail(commit.AuthorEmail),
			stat.Additions,
			stat.Deletions,
			outcome,
		)
		n += 1
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	err = closer()
	if err != nil {
		return err
	}

	logger().Debug(
		"finished dump",
		"commits",
		n,
		"duration_ms",
		time.Since(start).Milliseconds(),
	)
	return nil
}
