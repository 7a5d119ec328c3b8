package stats

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rastreobus/rastreobus/pkg/consumer"
	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const fixEventsQueueName = "fix-events-queue"

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Provides the travel stats runner",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the odometer consumer",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       fixEventsQueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewOdometerBatchConsumer(),
					}
					redisConsumer.Setup()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "tail",
				Usage: "print fix events as they arrive",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(fixEventsQueueName)
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to open fix events queue")
					}

					if err := queue.StartConsuming(10, time.Second); err != nil {
						return err
					}

					queue.AddConsumerFunc("tail", func(delivery rmq.Delivery) {
						pretty.Println(delivery.Payload())
						delivery.Ack()
					})

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals
					<-redis_client.QueueConnection.StopAllConsuming()

					return nil
				},
			},
		},
	}
}
