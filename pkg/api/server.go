package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rastreobus/rastreobus/pkg/api/routes"
	"github.com/rastreobus/rastreobus/pkg/store"
)

func SetupServer(listen string) error {
	webApp := SetupApp(store.NewMongoStore())

	return webApp.Listen(listen)
}

// SetupApp wires the fiber application. Split from SetupServer so tests can
// exercise routes without binding a port.
func SetupApp(locationStore store.LocationStore) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.AuthRouter(group.Group("/auth"))
	routes.AccountRouter(group.Group("/account", EnsureValidToken()))

	routes.VehiclesRouter(group.Group("/vehicles"), locationStore)
	routes.RoutesRouter(group.Group("/routes"))
	routes.StatsRouter(group.Group("/stats"))

	return webApp
}
