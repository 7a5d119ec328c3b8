package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rastreobus/rastreobus/pkg/stats"
)

func StatsRouter(router fiber.Router) {
	router.Get("/vehicles/:identifier", getVehicleStats)
}

func getVehicleStats(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	day := time.Now()
	if dateQuery := c.Query("date"); dateQuery != "" {
		parsed, err := time.Parse("2006-01-02", dateQuery)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "date must be formatted YYYY-MM-DD",
			})
		}
		day = parsed
	}

	metres, err := stats.TravelledDistance(context.Background(), identifier, day)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query travel stats",
		})
	}

	return c.JSON(fiber.Map{
		"vehicle_id":       identifier,
		"date":             day.Format("2006-01-02"),
		"travelled_metres": metres,
	})
}
