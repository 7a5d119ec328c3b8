package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Driver and dashboard test clients",
		Subcommands: []*cli.Command{
			{
				Name:  "drive",
				Usage: "simulate a driver looping around Puno",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hub",
						Value: "ws://localhost:4000/tracking",
						Usage: "hub tracking endpoint",
					},
					&cli.StringFlag{
						Name:  "api",
						Value: "http://localhost:8080",
						Usage: "web api base url",
					},
					&cli.StringFlag{
						Name:     "email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "vehicle",
						Required: true,
						Usage:    "vehicle plate bound to the driver account",
					},
					&cli.StringFlag{
						Name:  "route",
						Value: "R1",
					},
				},
				Action: runDriveSimulation,
			},
			{
				Name:  "watch",
				Usage: "tail the live fleet view like a dashboard would",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hub",
						Value: "ws://localhost:4000/ws",
						Usage: "hub dashboard endpoint",
					},
					&cli.StringFlag{
						Name:  "api",
						Value: "http://localhost:8080",
						Usage: "web api base url",
					},
				},
				Action: runWatch,
			},
		},
	}
}

func login(apiBaseURL string, email string, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	response, err := http.Post(apiBaseURL+"/core/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", response.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Token, nil
}

func runDriveSimulation(c *cli.Context) error {
	token, err := login(c.String("api"), c.String("email"), c.String("password"))
	if err != nil {
		return err
	}

	driver := NewDriverClient(c.String("hub"), token, c.String("vehicle"))
	driver.RouteLabel = c.String("route")
	defer driver.Close()

	driver.Start(c.Context)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	defer signal.Stop(signals)

	// Circle the Puno waterfront at roughly 20 km/h
	const centreLatitude = -15.8402
	const centreLongitude = -70.0219
	const radiusDegrees = 0.01

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	angle := 0.0
	for {
		select {
		case <-signals:
			return nil
		case <-c.Context.Done():
			return nil
		case now := <-ticker.C:
			angle += 0.01
			latitude := centreLatitude + radiusDegrees*math.Sin(angle)
			longitude := centreLongitude + radiusDegrees*math.Cos(angle)

			if err := driver.Report(latitude, longitude, 5.5, now); err != nil && err != ErrNotConnected {
				log.Error().Err(err).Msg("Failed to report position")
			}
		}
	}
}

func runWatch(c *cli.Context) error {
	dashboard := NewDashboardClient(c.String("hub"), c.String("api"))
	defer dashboard.Close()

	dashboard.Start(c.Context)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	defer signal.Stop(signals)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-signals:
			return nil
		case <-c.Context.Done():
			return nil
		case <-ticker.C:
			pretty.Println(dashboard.WorkingSet.Snapshot())
		}
	}
}
