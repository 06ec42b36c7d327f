// Command fnser serializes, verifies and rebuilds JavaScript callables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/fnser/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil && !cli.Reported(err) {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
