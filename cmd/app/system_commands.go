package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tnptm/next-djchat/cmd/app/commands"
	"github.com/tnptm/next-djchat/internal/app"
	"github.com/tnptm/next-djchat/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP API, websocket endpoint and notification bus",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "path",
					Value: "migrations",
					Usage: "Directory holding the postgresql and mysql migration folders",
				},
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				cfg := container.Config()
				return commands.RunMigrations(
					container.Logger(),
					cmd.String("path"),
					cfg.DBDriver,
					cfg.DBConnectionString,
				)
			}),
		},
	}
}

// withContainer builds a container from the environment for one command and shuts it
// down once the action returns.
func withContainer(
	action func(ctx context.Context, cmd *cli.Command, container *app.Container) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container := app.NewContainer(config.Load())
		defer func() { _ = container.Shutdown(ctx) }()
		return action(ctx, cmd, container)
	}
}
