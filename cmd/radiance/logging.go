package main

import (
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/urfave/cli"
)

// setupLogging routes the cascade logger to stderr. Warnings are always shown; -v adds info
// and -vv adds debug records.
func setupLogging(ctx *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if ctx.GlobalBool("v") {
		level = slog.LevelInfo
	}
	if ctx.GlobalBool("vv") {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cascade.SetLogger(logger)
	return logger
}
