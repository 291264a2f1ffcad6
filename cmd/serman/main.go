package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/BrainStation-23/serman/internal/cli"
)

var (
	// Version of serman (can be overridden at build time with -ldflags)
	Version = "dev"
	// BuildTime is the time when the binary was built
	BuildTime = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		// A second interrupt terminates immediately.
		<-ctx.Done()
		stop()
	}()

	root, finish := cli.NewRootCmd(cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	err := root.ExecuteContext(ctx)
	finish(err)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
