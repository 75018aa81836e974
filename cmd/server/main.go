package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dhoini/pix-subscription-service/config"
	"github.com/Dhoini/pix-subscription-service/internal/app"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

var log *logger.Logger

func init() {
	// .env нужен только локально, в окружении деплоя его нет
	_ = godotenv.Load()

	log = logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Отмена по SIGINT/SIGTERM запускает graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatal("Failed to connect to Telegram: %v", err)
	}
	log.Info("Authorized as @%s", botAPI.Self.UserName)

	application, err := app.New(ctx, cfg, app.Deps{Telegram: botAPI}, log)
	if err != nil {
		log.Fatal("Failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("Application stopped with error: %v", err)
	}
	if err := application.Close(); err != nil {
		log.Error("Failed to release resources: %v", err)
	}

	log.Info("Server stopped gracefully")
}
