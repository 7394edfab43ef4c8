package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zbday/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zbday"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	if err := cli.Execute(ctx, version); err != nil {
		fmt.Fprintf(os.Stderr, "zbday: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}
