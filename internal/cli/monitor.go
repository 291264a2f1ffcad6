package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrainStation-23/serman/internal/monitor"
	"github.com/BrainStation-23/serman/internal/paths"
)

func newMonitorCmd(app func() *App, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor [run|install|uninstall|start|stop|restart]",
		Short: "Log service state transitions in the background",
		Long: `Run the monitor in the foreground (run, the default), or manage it as an
OS service with install, uninstall, start, stop and restart.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"run", "install", "uninstall", "start", "stop", "restart"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			action := "run"
			if len(args) == 1 {
				action = args[0]
			}

			svcArgs := []string{"monitor", "run"}
			if *configFile != "" {
				svcArgs = append(svcArgs, "--config", *configFile)
			}

			m := monitor.New(a.Provider, a.Config.Monitor.Interval)
			s, err := monitor.NewService(a.Context(), m, svcArgs)
			if err != nil {
				return err
			}

			if action == "run" {
				// Blocks until the service manager or an interrupt stops it.
				return s.Run()
			}

			if action == "install" {
				if err := paths.EnsureDataDirectory(); err != nil {
					return err
				}
			}
			if err := monitor.Control(s, action); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Monitor service %s: ok\n", action)
			return nil
		},
	}
}
