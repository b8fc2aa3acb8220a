package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"

	"github.com/macropower/hermitlink/internal/cli"
	"github.com/macropower/hermitlink/internal/telemetry"
	"github.com/macropower/hermitlink/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, os.Environ(), "hermitlink", version.GetVersion())
	if err != nil {
		slog.Warn("tracing disabled", slog.Any("err", err))

		shutdown = func(context.Context) error { return nil }
	}

	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := shutdown(sctx)
		if err != nil {
			slog.Warn("flush traces", slog.Any("err", err))
		}
	}()

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithErrorHandler(cli.ErrorHandler),
	)
	if err != nil {
		return 1
	}

	return 0
}
