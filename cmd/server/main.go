package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/database"
	"github.com/example/tillpoint/internal/routes"
	"github.com/example/tillpoint/internal/services"
	"github.com/example/tillpoint/internal/storage"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "Tillpoint POS Gateway",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	erpStore := storage.NewGormKV(db, "erp_session")
	erp := services.NewERPService(cfg, erpStore)
	if err := erp.Connect(context.Background()); err != nil && err != services.ErrERPDisabled {
		log.Printf("ERP session warm-up failed: %v", err)
	}
	defer erp.Session().Close()

	notify := services.NewNotifyService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	cronService := services.NewCronService(db, cfg, erp, notify)
	cronService.Start()
	defer cronService.Stop()

	routes.Register(app, db, cfg, erp, notify)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
