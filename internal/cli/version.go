package cli

import (
	"fmt"

	ksvc "github.com/kardianos/service"
	"github.com/spf13/cobra"
)

func newVersionCmd(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "serman version %s\n", build.Version)
			fmt.Fprintf(out, "Build time: %s\n", build.BuildTime)
			fmt.Fprintf(out, "Git commit: %s\n", build.GitCommit)
			fmt.Fprintf(out, "Service platform: %s\n", ksvc.Platform())
		},
	}
}
