package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrainStation-23/serman/internal/tui"
)

// BuildInfo is stamped into the binary at build time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// NewRootCmd creates the serman command tree. Call finish with the result of
// Execute: it records a failure in the log and releases the log file, which
// cobra's post-run hooks skip when a command fails.
func NewRootCmd(build BuildInfo) (root *cobra.Command, finish func(error)) {
	var (
		configFile string
		app        *App
	)

	root = &cobra.Command{
		Use:   "serman",
		Short: "Start, stop and inspect OS services",
		Long: `SerMan lists the services whose names match a selection pattern
(S followed by digits by default) and lets you start, stop, restart or
refresh them. Run without a subcommand for the interactive table.

Managing services usually requires root or Administrator privileges.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}

			quiet := cmd.Name() == "serman" || cmd.Name() == "tui"
			var err error
			app, err = newApp(cmd, configFile, quiet)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: config.toml in the platform config directory)")
	flags.String("pattern", "", `service selection regex (default "S\d+")`)
	flags.Duration("timeout", 0, "timeout per service tool invocation (default 30s)")
	flags.Int("max-concurrency", 0, "maximum concurrent service operations (default 8)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("log-file", "", "log file path")

	appFn := func() *App { return app }

	root.AddCommand(
		newTUICmd(appFn),
		newListCmd(appFn),
		newStatusCmd(appFn),
		newOperationCmd(appFn, "start", "Start services"),
		newOperationCmd(appFn, "stop", "Stop services"),
		newOperationCmd(appFn, "restart", "Restart services"),
		newMonitorCmd(appFn, &configFile),
		newVersionCmd(build),
	)

	finish = func(err error) {
		if app == nil {
			return
		}
		if err != nil {
			app.Logger.Error().Err(err).Msg("command failed")
		}
		_ = app.Close()
		app = nil
	}

	return root, finish
}

func newTUICmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive service table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(app())
		},
	}
}

func runTUI(app *App) error {
	if app == nil {
		return fmt.Errorf("application not initialised")
	}
	return tui.Run(app.Context(), app.Provider, app.NewScheduler())
}
