// Command reviewctl extracts and reports AI agent replies offline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/reviewdesk/internal/reviewctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := reviewctl.Execute(ctx, os.Args[1:]); err != nil {
		os.Stderr.WriteString("reviewctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
