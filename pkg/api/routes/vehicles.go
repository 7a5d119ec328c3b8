package routes

import (
	"context"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/lib/v4/store"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rastreobus/rastreobus/pkg/redis_client"
	"github.com/rastreobus/rastreobus/pkg/store"
	"github.com/rs/zerolog/log"
)

const latestSnapshotCacheKey = "api:vehicles:latest"
const latestSnapshotCacheExpiry = 10 * time.Second

var snapshotCache *cache.Cache[[]byte]

func VehiclesRouter(router fiber.Router, locationStore store.LocationStore) {
	router.Get("/", func(c *fiber.Ctx) error { return listVehicles(c, locationStore) })
	router.Get("/nearby", func(c *fiber.Ctx) error { return listNearbyVehicles(c, locationStore) })
	router.Get("/:identifier", func(c *fiber.Ctx) error { return getVehicle(c, locationStore) })
	router.Get("/:identifier/history", func(c *fiber.Ctx) error { return getVehicleHistory(c, locationStore) })
}

func getSnapshotCache() *cache.Cache[[]byte] {
	if snapshotCache == nil {
		redisStore := redis_store.NewRedis(redis_client.Client,
			gocache_store.WithExpiration(latestSnapshotCacheExpiry))

		snapshotCache = cache.New[[]byte](redisStore)
	}

	return snapshotCache
}

// listVehicles returns the latest-state snapshot for every tracked vehicle.
// Dashboards hit this on every (re)connect, so it sits behind a short cache.
func listVehicles(c *fiber.Ctx, locationStore store.LocationStore) error {
	snapshotCache := getSnapshotCache()

	if cached, err := snapshotCache.Get(context.Background(), latestSnapshotCacheKey); err == nil && len(cached) > 0 {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(cached)
	}

	states, err := locationStore.LatestAll(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to query latest vehicle states")
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query vehicle states",
		})
	}

	statesReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, states)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce vehicle states",
		})
	}

	if err := c.JSON(statesReduced); err != nil {
		return err
	}

	body := make([]byte, len(c.Response().Body()))
	copy(body, c.Response().Body())
	if err := snapshotCache.Set(context.Background(), latestSnapshotCacheKey, body); err != nil {
		log.Debug().Err(err).Msg("Failed to cache vehicle snapshot")
	}

	return nil
}

func listNearbyVehicles(c *fiber.Ctx, locationStore store.LocationStore) error {
	latitude, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	longitude, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "lat and lon query parameters are required",
		})
	}

	radius, err := strconv.ParseFloat(c.Query("radius", "1000"), 64)
	if err != nil || radius <= 0 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "radius must be a positive number of metres",
		})
	}

	states, err := locationStore.Nearby(context.Background(), longitude, latitude, radius)
	if err != nil {
		log.Error().Err(err).Msg("Failed to run nearby query")
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query nearby vehicles",
		})
	}

	return c.JSON(states)
}

func getVehicle(c *fiber.Ctx, locationStore store.LocationStore) error {
	identifier := c.Params("identifier")

	state, err := locationStore.Latest(context.Background(), identifier)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query vehicle state",
		})
	}

	if state == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Identifier",
		})
	}

	response := struct {
		fleet.VehicleState
		Presence fleet.PresenceStatus `json:"presence"`
	}{
		VehicleState: *state,
		Presence:     state.Presence(time.Now()),
	}

	return c.JSON(response)
}

func getVehicleHistory(c *fiber.Ctx, locationStore store.LocationStore) error {
	identifier := c.Params("identifier")

	limit, err := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	if err != nil || limit < 0 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "limit must be a non-negative number",
		})
	}

	var since time.Time
	if sinceQuery := c.Query("since"); sinceQuery != "" {
		sinceMillis, err := strconv.ParseInt(sinceQuery, 10, 64)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "since must be epoch milliseconds",
			})
		}
		since = time.UnixMilli(sinceMillis)
	}

	entries, err := locationStore.History(context.Background(), identifier, limit, since)
	if err != nil {
		log.Error().Err(err).Str("vehicle", identifier).Msg("Failed to query history")
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query vehicle history",
		})
	}

	entriesReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, entries)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce history entries",
		})
	}

	return c.JSON(entriesReduced)
}
