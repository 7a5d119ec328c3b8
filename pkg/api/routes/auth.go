package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rastreobus/rastreobus/pkg/auth"
	"github.com/rastreobus/rastreobus/pkg/database"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

func AuthRouter(router fiber.Router) {
	router.Post("/login", login)
	router.Post("/register", register)
}

type credentialsForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Plate    string `json:"plate"`
}

func login(c *fiber.Ctx) error {
	var form credentialsForm
	if err := c.BodyParser(&form); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Could not parse credentials",
		})
	}

	driversCollection := database.GetCollection("drivers")

	var driver fleet.Driver
	err := driversCollection.FindOne(context.Background(), bson.M{"email": form.Email}).Decode(&driver)
	if err == mongo.ErrNoDocuments {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "Incorrect credentials",
		})
	}
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query drivers",
		})
	}

	if bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte(form.Password)) != nil {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "Incorrect credentials",
		})
	}

	token, err := auth.Sign(driver, auth.SigningSecret(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not issue token",
		})
	}

	return c.JSON(fiber.Map{
		"id":    driver.PrimaryIdentifier,
		"name":  driver.Name,
		"email": driver.Email,
		"plate": driver.Plate,
		"token": token,
	})
}

func register(c *fiber.Ctx) error {
	var form credentialsForm
	if err := c.BodyParser(&form); err != nil || form.Email == "" || form.Password == "" || form.Plate == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Name, email, password and plate are required",
		})
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcryptCost)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	driver := fleet.Driver{
		PrimaryIdentifier: uuid.NewString(),
		Name:              form.Name,
		Email:             form.Email,
		Plate:             form.Plate,
		PasswordHash:      string(passwordHash),
		CreationDateTime:  time.Now(),
	}

	driversCollection := database.GetCollection("drivers")
	if _, err := driversCollection.InsertOne(context.Background(), driver); err != nil {
		// Unique indexes on email and plate reject duplicates
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Email or plate already registered",
		})
	}

	token, err := auth.Sign(driver, auth.SigningSecret(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not issue token",
		})
	}

	c.Status(fiber.StatusCreated)
	return c.JSON(fiber.Map{
		"id":    driver.PrimaryIdentifier,
		"name":  driver.Name,
		"email": driver.Email,
		"plate": driver.Plate,
		"token": token,
	})
}
