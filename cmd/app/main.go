package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"odotList/internal/app"
	"odotList/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("ODOT_CONFIG"))
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		log.Fatalf("инициализация: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("запуск: %v", err)
	}
}
