package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/repositories"
)

func HealthCheck(c *fiber.Ctx) error {
	database := "connected"
	if repositories.DB == nil {
		database = "down"
	} else if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
		database = "down"
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"services": fiber.Map{
			"database": database,
		},
	})
}
