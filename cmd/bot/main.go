package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"jobboard-bot/internal/api/board"
	"jobboard-bot/internal/bot"
	"jobboard-bot/internal/bot/scheduler"
	"jobboard-bot/internal/config"
	"jobboard-bot/internal/logger"
	"jobboard-bot/internal/session"
	"jobboard-bot/internal/storage/postgres"
	"jobboard-bot/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting job board bot",
		zap.String("log_level", cfg.LogLevel),
		zap.String("board_api", cfg.BoardAPIBaseURL),
		zap.Int("page_size", cfg.PageSize),
	)

	if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	store, err := postgres.New(cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	cache, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer cache.Close()

	boardClient := board.New(cfg.BoardAPIBaseURL, cfg.BoardAPITimeout, log.Named("board"))
	sessions := session.NewStore(cache, log.Named("session"))

	tgBot, err := bot.New(cfg, store, cache, sessions, boardClient, log)
	if err != nil {
		log.Fatal("failed to create bot", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	digest := scheduler.New(tgBot.GetBot(), store, sessions, boardClient, cfg.DigestSchedule, log.Named("digest"))
	if err := digest.Start(ctx); err != nil {
		log.Fatal("failed to start digest scheduler", zap.Error(err))
	}

	log.Info("bot is running")

	if err := tgBot.Start(ctx); err != nil {
		log.Error("bot stopped with error", zap.Error(err))
	}

	log.Info("shutting down gracefully")
	digest.Stop()
	log.Info("bot stopped")
}
