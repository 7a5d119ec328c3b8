package routes

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func RoutesRouter(router fiber.Router) {
	router.Get("/", listRoutes)
	router.Get("/:identifier/stops", getRouteStops)
}

func listRoutes(c *fiber.Ctx) error {
	routesCollection := database.GetCollection("routes")

	cursor, err := routesCollection.Find(context.Background(), bson.M{})
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query routes",
		})
	}

	busRoutes := []fleet.Route{}
	for cursor.Next(context.TODO()) {
		var busRoute fleet.Route
		if err := cursor.Decode(&busRoute); err != nil {
			log.Error().Err(err).Msg("Failed to decode Route")
			continue
		}

		busRoutes = append(busRoutes, busRoute)
	}

	return c.JSON(busRoutes)
}

func getRouteStops(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	routeStopsCollection := database.GetCollection("route_stops")

	cursor, err := routeStopsCollection.Find(context.Background(),
		bson.M{"routeid": identifier},
		options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query route stops",
		})
	}

	stops := []fleet.RouteStop{}
	for cursor.Next(context.TODO()) {
		var stop fleet.RouteStop
		if err := cursor.Decode(&stop); err != nil {
			log.Error().Err(err).Msg("Failed to decode RouteStop")
			continue
		}

		stops = append(stops, stop)
	}

	if len(stops) == 0 {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find stops for Route matching Identifier",
		})
	}

	return c.JSON(stops)
}
