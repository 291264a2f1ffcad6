package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrainStation-23/serman/internal/scheduler"
)

func newOperationCmd(app func() *App, verb, short string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   verb + " NAME...",
		Short: short,
		Long: short + `. Each service is handled by its own background task; results
are printed in completion order. The exit status reflects only whether
the operations could be issued; check the reported status for the outcome.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := scheduler.ParseVerb(verb)
			if err != nil {
				return err
			}

			a := app()
			out := cmd.OutOrStdout()
			names := uniqueNames(args)

			// The busy hook runs here, on the submitting goroutine.
			sched := a.NewScheduler(
				scheduler.WithBuffer(len(names)),
				scheduler.WithBusyHook(func(name string) {
					fmt.Fprintf(out, "%s %s...\n", v, name)
				}),
			)
			ctx := a.Context()
			sched.Mutate(ctx, v, names...)

			for range names {
				var r scheduler.Result
				select {
				case r = <-sched.Results():
				case <-ctx.Done():
					return fmt.Errorf("interrupted before every result arrived: %w", ctx.Err())
				}
				fmt.Fprintf(out, "%s: %s (pid %s)\n", r.Service, valueOr(r.Status, "unknown"), valueOr(r.PID, "-"))
				if r.Err != nil {
					fmt.Fprintf(out, "  error: %v\n", r.Err)
				}
				if verbose && r.Output != "" {
					fmt.Fprintf(out, "  %s\n", r.Output)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the service tool output")
	return cmd
}
