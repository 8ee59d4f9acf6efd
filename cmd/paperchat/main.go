// Command paperchat answers questions about research papers, fetching and
// indexing new ones from arXiv when a question needs them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetFactory(&factory{validate: true})

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
