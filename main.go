package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options holds the flags shared by all commands.
type options struct {
	config string
	debug  bool
	jobs   int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the exit code of the program.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &options{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		// Commands return their errors instead of logging them, so that flag and argument errors are reported too.
		newLogger(opts.debug).Error().Msgf("%v", err)
		return 1
	}
	return 0
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "pluginpack [target...]",
		Short: "Package the formatter plugin once per target runtime",
		Long: `pluginpack builds the plugin entry modules listed in pluginpack.toml into one artifact per target. ` +
			`Without arguments all targets are built, otherwise only the targets named.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	root.PersistentFlags().StringVarP(&opts.config, "config", "c", "pluginpack.toml", "path of the config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().IntVarP(&opts.jobs, "jobs", "j", 0, "maximum number of targets built at the same time (default from config)")

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	return root
}

// newLogger creates the console logger used by all commands. Debug logging is enabled by the --debug flag or the
// debug-log setting, which is why the level can be raised after the config has been read.
func newLogger(debug bool) *zerolog.Logger {
	l := zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		Output(zerolog.ConsoleWriter{
			Out:          os.Stdout,
			NoColor:      color.NoColor,
			PartsExclude: []string{zerolog.TimestampFieldName},
		})
	if debug {
		l = l.Level(zerolog.DebugLevel)
	}
	return &l
}
