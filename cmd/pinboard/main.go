package main

import (
	"context"
	"log"

	"github.com/MrSnakeDoc/pinboard/internal/app"
	"github.com/MrSnakeDoc/pinboard/internal/config"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

func main() {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	ctx := context.Background()

	a, err := app.New(ctx, cfg, loggerClient)
	if err != nil {
		log.Fatalf("❌ pinboard failed to start: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ pinboard stopped with error: %v", err)
	}
}
