package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/routing"
	"leadmarket_backend/internal/notification"
	"leadmarket_backend/internal/scheduler"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer client.Close()

	eventBus := events.NewInMemoryBus(log)
	dispatcher := notification.New(cfg, log)

	repo := repository.New(pool)
	engine := routing.NewEngine(repo, eventBus, dispatcher, log)

	worker, err := scheduler.NewWorker(cfg, repo, engine, client, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
}
