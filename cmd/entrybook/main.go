// Command entrybook is an interactive editor for entry records kept in a
// local SQLite file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arllen133/entrybook"
	"github.com/arllen133/entrybook/config"
	"github.com/arllen133/entrybook/console"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file read before the environment")
	dbPath := flag.String("db", "", "store file (overrides ENTRYBOOK_DB_PATH)")
	flag.Parse()

	if err := run(*envFile, *dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "entrybook:", err)
		os.Exit(1)
	}
}

func run(envFile, dbPath string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := entrybook.New(cfg.DBPath,
		entrybook.WithDialect(cfg.Dialect()),
		entrybook.WithBusyTimeout(cfg.BusyTimeout),
		entrybook.WithLogger(logger),
		entrybook.WithGlobalTelemetry(),
		entrybook.WithSlowQueryThreshold(cfg.SlowQuery),
		entrybook.WithQueryLogging(cfg.LogQueries),
	)
	if err := gw.Initialize(ctx); err != nil {
		return err
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "store ready",
		slog.String("path", gw.Path()),
		slog.String("driver", cfg.Driver),
	)

	c := console.New(gw, os.Stdin, os.Stdout, console.WithLogger(logger))
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
