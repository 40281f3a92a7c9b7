package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonscanner/lemon-scanner/cmd"
	"github.com/lemonscanner/lemon-scanner/internal/app"
	"github.com/lemonscanner/lemon-scanner/internal/buildinfo"
)

// Set through -ldflags at build time.
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := app.New(buildinfo.NewContext(version, buildDate))
	defer func() {
		if err := appCtx.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing logs: %v\n", err)
		}
	}()

	if err := cmd.RootCommand(appCtx).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
