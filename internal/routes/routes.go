package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/vitalux/internal/config"
	"github.com/example/vitalux/internal/handlers"
	"github.com/example/vitalux/internal/middleware"
	"github.com/example/vitalux/internal/repository"
	"github.com/example/vitalux/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	users := repository.NewUsers(db)
	ledger := repository.NewLedger(db)
	sales := repository.NewSales(db)

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	directory := services.NewDirectory(users)
	tiers := services.NewTierEvaluator(users, ledger, telegram)
	settlement := services.NewSettlement(directory, ledger, tiers, users)
	aggregator := services.NewAggregator(users, sales, cfg.AggregateMaxNodes)

	authHandler := handlers.NewAuthHandler(db, cfg, directory)
	orderHandler := handlers.NewOrderHandler(db, settlement)
	pointsHandler := handlers.NewPointsHandler(users, ledger)
	networkHandler := handlers.NewNetworkHandler(directory, aggregator)
	adminHandler := handlers.NewAdminHandler(db)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Admin-facing reporting and order transitions
	api.Patch("/orders/:id/status", orderHandler.UpdateStatus)
	api.Get("/network/tree", networkHandler.Tree)
	api.Get("/admin/stats", adminHandler.DashboardStats)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Get("/points/summary", pointsHandler.Summary)
	protected.Get("/points/ledger", pointsHandler.Ledger)
	protected.Get("/points/discount", pointsHandler.Discount)

	protected.Get("/network/downline", networkHandler.Downline)
}
