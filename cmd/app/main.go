// Package main provides the entry point for the chat service with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:     "djchat",
		Usage:    "End-to-end encrypted chat rooms with realtime notifications",
		Version:  version,
		Commands: append(getSystemCommands(version), getKeyCommands()...),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
