// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/rekberkan/kahade-sub000/internal/config"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
	"github.com/rekberkan/kahade-sub000/internal/routes"
	"github.com/rekberkan/kahade-sub000/internal/services/dispute"
	"github.com/rekberkan/kahade-sub000/internal/services/payment"
)

func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		if repositories.DB == nil {
			return
		}
		sqlDB, err := repositories.DB.DB()
		if err != nil {
			log.Printf("failed to get database instance: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.Printf("failed to close database connection: %v", err)
		}
	}()

	store, err := cache.New(
		config.GetEnv("CACHE_BACKEND", "memory"),
		&cache.RedisConfig{
			Host:     config.GetEnv("REDIS_HOST", "localhost"),
			Port:     config.GetEnv("REDIS_PORT", "6379"),
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       config.GetIntEnv("REDIS_DB", 0),
		},
		config.GetDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
	)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close cache: %v", err)
		}
	}()

	manager := repositories.NewManager(repositories.DB)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Callback-Token, Stripe-Signature",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	for _, path := range []string{"/api/register", "/api/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        5,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(429).JSON(fiber.Map{
					"error": "too many requests, please try again later",
				})
			},
		}))
	}

	services := routes.SetupRoutes(app, manager, store)

	// Background sweeps: close expired dispute decisions, retry failed
	// payment events.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disputeSweeper := dispute.NewSweeper(services.Dispute,
		config.GetDurationEnv("DISPUTE_SWEEP_INTERVAL", 5*time.Minute),
		config.GetIntEnv("DISPUTE_SWEEP_BATCH", 50))
	disputeSweeper.Start(ctx)
	defer disputeSweeper.Stop()

	paymentSweeper := payment.NewSweeper(services.Payment,
		config.GetDurationEnv("PAYMENT_SWEEP_INTERVAL", 2*time.Minute),
		config.GetIntEnv("PAYMENT_SWEEP_BATCH", 50))
	paymentSweeper.Start(ctx)
	defer paymentSweeper.Stop()

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
