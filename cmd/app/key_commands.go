package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tnptm/next-djchat/cmd/app/commands"
	"github.com/tnptm/next-djchat/internal/app"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for room key wrapping",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2026)",
				},
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider recorded next to the key (google, aws, azure, vault, local)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI; when empty the key is printed unwrapped",
				},
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					os.Stdout,
					cmd.String("id"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			}),
		},
		{
			Name:  "rewrap-room-keys",
			Usage: "Re-wrap every room key from a retired master key to the current one",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "previous-key-id",
					Value: "previous",
					Usage: "ID of the retired master key, used in logs",
				},
				&cli.StringFlag{
					Name:     "previous-master-key",
					Required: true,
					Usage:    "Retired master key in the same encoding as MASTER_KEY",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of rooms read per batch",
				},
			},
			Action: withContainer(func(ctx context.Context, cmd *cli.Command, container *app.Container) error {
				rooms, err := container.RoomUseCase()
				if err != nil {
					return err
				}

				previous, previousKey, err := container.PreviousKeyVault(
					cmd.String("previous-key-id"),
					cmd.String("previous-master-key"),
				)
				if err != nil {
					return err
				}
				defer previousKey.Close()

				return commands.RunRewrapRoomKeys(
					ctx,
					rooms,
					previous,
					container.Logger(),
					os.Stdout,
					int(cmd.Int("batch-size")),
				)
			}),
		},
	}
}
