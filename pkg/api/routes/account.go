package routes

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"go.mongodb.org/mongo-driver/bson"
)

func AccountRouter(router fiber.Router) {
	router.Get("/profile", getProfile)
}

func getProfile(c *fiber.Ctx) error {
	driverID, _ := c.Locals("account_driverid").(string)

	driversCollection := database.GetCollection("drivers")

	var driver fleet.Driver
	err := driversCollection.FindOne(context.Background(), bson.M{"primaryidentifier": driverID}).Decode(&driver)
	if err != nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find driver matching token",
		})
	}

	return c.JSON(driver)
}
