// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rekberkan/kahade-sub000/internal/config"
	"github.com/rekberkan/kahade-sub000/internal/handlers"
	"github.com/rekberkan/kahade-sub000/internal/middleware"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
	"github.com/rekberkan/kahade-sub000/internal/repositories/cache"
	"github.com/rekberkan/kahade-sub000/internal/services/auth"
	"github.com/rekberkan/kahade-sub000/internal/services/dispute"
	"github.com/rekberkan/kahade-sub000/internal/services/order"
	"github.com/rekberkan/kahade-sub000/internal/services/payment"
	"github.com/rekberkan/kahade-sub000/internal/services/wallet"
)

// Services exposes the long-lived services the server needs outside request
// handling, mainly for the background sweepers.
type Services struct {
	Wallet  wallet.Service
	Orders  order.Service
	Dispute dispute.Service
	Payment payment.Service
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, manager repositories.Manager, store cache.Store) Services {
	platformWalletID := uint(config.GetIntEnv("PLATFORM_WALLET_ID", 1))

	// Initialize services in dependency order
	walletService := wallet.NewService(manager, store, wallet.WalletConfig{
		DefaultCurrency:  config.GetEnv("DEFAULT_CURRENCY", "IDR"),
		PlatformWalletID: platformWalletID,
	}, &wallet.NoopMetricsCollector{})

	orderService := order.NewService(manager, walletService)

	disputeService := dispute.NewService(manager, orderService, walletService, dispute.Config{
		ResponseWindow:   config.GetDurationEnv("DISPUTE_RESPONSE_WINDOW", dispute.DefaultConfig().ResponseWindow),
		AppealWindow:     config.GetDurationEnv("DISPUTE_APPEAL_WINDOW", dispute.DefaultConfig().AppealWindow),
		PlatformWalletID: platformWalletID,
	})

	verifiers := map[string]payment.Verifier{
		"xendit": payment.NewCallbackTokenVerifier(config.GetEnv("XENDIT_CALLBACK_TOKEN", "")),
		"stripe": payment.NewStripeVerifier(config.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	}
	paymentService := payment.NewService(manager, orderService, walletService, verifiers, payment.Config{
		MaxRetries: config.GetIntEnv("PAYMENT_EVENT_MAX_RETRIES", 3),
	})

	authService := auth.NewService(manager, walletService, store)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(walletService)
	orderHandler := handlers.NewOrderHandler(orderService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	webhookHandler := handlers.NewWebhookHandler(paymentService)

	app.Get("/health", handlers.HealthCheck)

	// Provider callbacks carry their own authentication
	app.Post("/webhooks/:provider", webhookHandler.Handle)

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh", authHandler.RefreshToken)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.Logout)
	protected.Post("/change-password", authHandler.ChangePassword)

	// Wallet routes
	walletGroup := protected.Group("/wallet")
	walletGroup.Get("/", middleware.HasPermission(models.PermissionWalletRead), walletHandler.GetWallet)
	walletGroup.Get("/movements", middleware.HasPermission(models.PermissionWalletRead), walletHandler.ListMovements)
	walletGroup.Post("/withdraw", middleware.HasPermission(models.PermissionWalletWrite), walletHandler.RequestWithdrawal)

	// Order lifecycle routes
	orders := protected.Group("/orders")
	orders.Post("/", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.Create)
	orders.Get("/", middleware.HasPermission(models.PermissionOrderRead), orderHandler.List)
	orders.Get("/:id", middleware.HasPermission(models.PermissionOrderRead), orderHandler.Get)
	orders.Post("/:id/accept", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.Accept)
	orders.Post("/:id/cancel", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.Cancel)
	orders.Post("/:id/reject", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.Reject)
	orders.Post("/:id/pay", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.Pay)
	orders.Post("/:id/delivered", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.ConfirmDelivery)
	orders.Post("/:id/received", middleware.HasPermission(models.PermissionOrderWrite), orderHandler.ConfirmReceipt)
	orders.Post("/:id/dispute", middleware.HasPermission(models.PermissionDisputeWrite), disputeHandler.Open)

	// Dispute routes for the parties
	disputes := protected.Group("/disputes")
	disputes.Get("/:id", middleware.HasPermission(models.PermissionDisputeRead), disputeHandler.Get)
	disputes.Post("/:id/respond", middleware.HasPermission(models.PermissionDisputeWrite), disputeHandler.Respond)
	disputes.Post("/:id/evidence", middleware.HasPermission(models.PermissionDisputeWrite), disputeHandler.SubmitEvidence)
	disputes.Post("/:id/appeal", middleware.HasPermission(models.PermissionDisputeWrite), disputeHandler.Appeal)

	// Admin dispute routes
	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Post("/disputes/:id/escalate", disputeHandler.Escalate)
	admin.Post("/disputes/:id/assign", disputeHandler.AssignArbitrator)
	admin.Post("/disputes/:id/resolve", middleware.HasPermission(models.PermissionArbitrate), disputeHandler.Resolve)

	return Services{
		Wallet:  walletService,
		Orders:  orderService,
		Dispute: disputeService,
		Payment: paymentService,
	}
}
