package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorumapp/quorum-api/internal/config"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/notify"
	"github.com/quorumapp/quorum-api/internal/scheduler"
	"github.com/quorumapp/quorum-api/internal/selection"
	"github.com/quorumapp/quorum-api/internal/server"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Server.LogLevel)
	log := logger.Get()

	store, err := postgres.NewContainer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()

	var notifier scheduler.Notifier = notify.NopNotifier{}
	if cfg.Notify.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			// Notifications are best-effort; run without them rather than
			// refusing to start.
			log.Warn("Failed to connect to AMQP broker, notifications disabled", "error", err)
		} else {
			notifier = amqpNotifier
			defer amqpNotifier.Close()
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selector, err := selection.NewSelector(cfg.Scheduler.ExplorationK, rng)
	if err != nil {
		log.Fatal("Invalid selector configuration", "error", err)
	}
	tally := selection.NewTally(rng)

	picker, err := scheduler.NewClockShardPicker(cfg.Scheduler.ShardCount)
	if err != nil {
		log.Fatal("Invalid shard configuration", "error", err)
	}

	resolver := scheduler.NewResolver(
		store.Groups(),
		store.Events(),
		store.Categories(),
		store.Pending(),
		picker,
		selector,
		tally,
		notifier,
		cfg.Scheduler.VotingTopN,
	)
	scanner := scheduler.NewScanner(store.Pending(), resolver)
	sched := scheduler.NewScheduler(
		store.Groups(),
		store.Categories(),
		store.Events(),
		store.Pending(),
		picker,
		resolver,
	)

	srv := server.New(cfg, store, sched, scanner)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}

	log.Info("Server stopped")
}
