package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/vitalux/internal/config"
	"github.com/example/vitalux/internal/database"
	"github.com/example/vitalux/internal/repository"
	"github.com/example/vitalux/internal/routes"
	"github.com/example/vitalux/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "Vitalux Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, db, cfg)

	users := repository.NewUsers(db)
	ledger := repository.NewLedger(db)
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	tiers := services.NewTierEvaluator(users, ledger, telegram)
	if _, err := services.StartTierRefresher(users, tiers, cfg.TierRefreshEvery); err != nil {
		log.Printf("tier refresher failed to start: %v", err)
	}

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
