package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrainStation-23/serman/internal/procinfo"
)

// statusReport is one service as printed by the status command.
type statusReport struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	PID     string         `json:"pid"`
	Process *procinfo.Info `json:"process,omitempty"`
}

func newStatusCmd(app func() *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status NAME...",
		Short: "Show status, PID and process details of services",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := a.Context()

			reports := make([]statusReport, 0, len(args))
			for _, name := range uniqueNames(args) {
				r := statusReport{
					Name:   name,
					Status: a.Provider.StatusOf(ctx, name),
					PID:    a.Provider.PIDOf(ctx, name),
				}
				if pid, ok := procinfo.ParsePID(r.PID); ok {
					if info, err := procinfo.Lookup(ctx, pid); err == nil {
						r.Process = &info
					} else {
						a.Logger.Debug().Err(err).Str("service", name).Msg("process lookup failed")
					}
				}
				reports = append(reports, r)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), reports)
			}

			out := cmd.OutOrStdout()
			now := time.Now()
			for _, r := range reports {
				fmt.Fprintf(out, "%s\n  status: %s\n  pid:    %s\n", r.Name, valueOr(r.Status, "unknown"), valueOr(r.PID, "-"))
				if p := r.Process; p != nil {
					fmt.Fprintf(out, "  process: %s", p.Name)
					if p.Executable != "" {
						fmt.Fprintf(out, " (%s)", p.Executable)
					}
					fmt.Fprintf(out, "\n  memory: %s\n  uptime: %s\n", procinfo.FormatBytes(p.RSS), p.Uptime(now))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// uniqueNames drops repeated names, keeping first occurrence order.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
