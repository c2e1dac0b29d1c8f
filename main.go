package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sinclairtarget/coderank/internal/config"
)

var Commit = "unknown"
var Version = "unknown"

// Flags shared by every subcommand.
type globalFlags struct {
	verbose    bool
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	global := &globalFlags{}

	root := &cobra.Command{
		Use:   "coderank",
		Short: "coderank ranks code contributions by author across repositories",
		Long: `coderank ranks code contributions by author across repositories.

Every commit on each repository's branch since a cutoff date is attributed to
its author by email. Lines added and removed are summed per author over all
repositories and the authors are ranked by lines added.`,
		Version:       fmt.Sprintf("%s %s", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if global.verbose {
				configureLogging(slog.LevelDebug)
				logger().Debug("log level set to DEBUG")
			} else {
				configureLogging(slog.LevelInfo)
			}

			loadDotenv()
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.BoolVarP(&global.verbose, "verbose", "v", false, "Enables debug logging")
	flags.StringVar(
		&global.configPath,
		"config",
		"",
		"Config file (default is .coderank.yaml in the current or home directory)",
	)

	root.AddCommand(rankCmd(global))
	root.AddCommand(statCmd(global))
	root.AddCommand(dumpCmd(global))

	return root
}

// Loads the config for a subcommand, with its flags bound on top.
func loadConfig(
	cmd *cobra.Command,
	global *globalFlags,
	bindings config.FlagBindings,
) (*config.Config, error) {
	cfg, err := config.Load(global.configPath, cmd.Flags(), bindings)
	if err != nil {
		return nil, err
	}

	logger().Debug("loaded config", "config", fmt.Sprintf("%+v", *cfg))
	return cfg, nil
}

// Every log record of a run carries the same run id, so that the output of
// concurrent runs can be told apart.
func configureLogging(level slog.Level) {
	handler := slog.NewTextHandler(
		os.Stderr,
		&slog.HandlerOptions{
			Level: level,
		},
	)
	logger := slog.New(handler).With("run", uuid.NewString())
	slog.SetDefault(logger)
}

// Exports variables from a .env file in the current directory, if there is
// one. Variables already set are left alone.
func loadDotenv() {
	err := godotenv.Load()
	if err == nil {
		logger().Debug("loaded .env file")
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger().Warn("could not load .env file", "error", err)
	}
}
