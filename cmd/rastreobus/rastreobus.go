package main

import (
	"os"
	"time"

	"github.com/rastreobus/rastreobus/pkg/api"
	"github.com/rastreobus/rastreobus/pkg/client"
	"github.com/rastreobus/rastreobus/pkg/hub"
	"github.com/rastreobus/rastreobus/pkg/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("RASTREOBUS_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("RASTREOBUS_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "rastreobus",
		Description: "Single binary of truth for Rastreobus - runs all the services",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			hub.RegisterCLI(),
			stats.RegisterCLI(),
			client.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
