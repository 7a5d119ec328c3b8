package hub

import (
	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/redis_client"
	"github.com/rastreobus/rastreobus/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const fixEventsQueueName = "fix-events-queue"

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "hub",
		Usage: "Provides the realtime tracking hub",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the tracking hub server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":4000",
						Usage: "listen target for the hub server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					fixQueue, err := redis_client.QueueConnection.OpenQueue(fixEventsQueueName)
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to open fix events queue")
					}

					trackingHub := NewHub(store.NewMongoStore(), fixQueue)

					return NewServer(trackingHub).Listen(c.String("listen"))
				},
			},
		},
	}
}
