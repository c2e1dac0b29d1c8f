package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinclairtarget/coderank/internal/config"
	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/pretty"
	"github.com/sinclairtarget/coderank/internal/report"
	"github.com/sinclairtarget/coderank/internal/tally"
)

type statFlags struct {
	showEmail bool
	rows      int
}

func statCmd(global *globalFlags) *cobra.Command {
	var bindings config.FlagBindings
	sf := &statFlags{}

	cmd := &cobra.Command{
		Use:   "stat <url[ branch]>...",
		Short: "Tally the authors of the given repositories",
		Long: `Tallies the authors of the given repositories and prints one line per
author. A repository argument may carry its branch after a space, e.g.
"https://github.com/a/b.git develop". The branch defaults to master.

CSV output lists authors in the order they were first counted, as
"email,name,plus,minus". The other formats rank them by lines added.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global, bindings)
			if err != nil {
				return fmt.Errorf("error running \"stat\": %w", err)
			}

			return stat(cmd.Context(), cfg, args, *sf, os.Stdout)
		},
	}

	flags := cmd.Flags()
	bindings = addEngineFlags(flags)

	flags.StringP(
		"format",
		"f",
		config.DefaultFormat,
		fmt.Sprintf("Output format, one of %v", config.Formats),
	)
	flags.String("template", "", "Go template used by the template format")
	flags.BoolVarP(&sf.showEmail, "email", "e", false, "Show email address of each author in tables")
	flags.IntVarP(&sf.rows, "rows", "n", 0, "Limit rows in tables (0 for no limit)")

	maps.Copy(bindings, config.FlagBindings{
		"output.format":   "format",
		"output.template": "template",
	})

	return cmd
}

// Splits a "url[ branch]" argument.
func parseRepoArg(arg string) (url string, branch string) {
	url, branch, _ = strings.Cut(strings.TrimSpace(arg), " ")
	return url, strings.TrimSpace(branch)
}

// The "stat" subcommand tallies the repositories named on the command line
// and prints the result.
func stat(
	ctx context.Context,
	cfg *config.Config,
	args []string,
	sf statFlags,
	w io.Writer,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running \"stat\": %w", err)
		}
	}()

	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	refs := make([]git.RepositoryRef, 0, len(args))
	for _, arg := range args {
		refs = append(refs, e.ref(parseRepoArg(arg)))
	}

	agg, err := e.aggregate(ctx, refs)
	if err != nil {
		return err
	}

	return writeStats(w, agg, cfg, sf)
}

func writeStats(
	w io.Writer,
	agg *tally.Aggregate,
	cfg *config.Config,
	sf statFlags,
) error {
	switch cfg.Output.Format {
	case "table":
		pretty.SetColorEnabled(pretty.AllowDynamic(os.Stdout))
		return report.WriteTable(w, agg, report.TableOpts{
			ShowEmail: sf.showEmail,
			Limit:     sf.rows,
		})
	case "json":
		return report.WriteJSON(w, agg.Ranked())
	case "template":
		formatter, err := report.LoadFormatter(cfg.Output.Template, cfg)
		if err != nil {
			return err
		}

		out, err := formatter.Format(agg)
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, out)
		return err
	default:
		return report.WriteCSV(w, agg.Rows())
	}
}
