package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorumapp/quorum-api/internal/config"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/notify"
	"github.com/quorumapp/quorum-api/internal/scheduler"
	"github.com/quorumapp/quorum-api/internal/selection"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
)

// The scanner worker sweeps every shard of the pending store on a fixed
// interval and resolves whatever has expired. It is safe to run alongside
// the API process and alongside other scanner replicas; resolution is
// idempotent, so overlapping sweeps only waste work.
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

	shards := scheduler.AllShards(cfg.Scheduler.ShardCount)
	interval := time.Duration(cfg.Scheduler.ScanIntervalSecs) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Scanner worker started", "shards", len(shards), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, scanner, shards)
	for {
		select {
		case <-ctx.Done():
			log.Info("Scanner worker stopped")
			return
		case <-ticker.C:
			sweep(ctx, scanner, shards)
		}
	}
}

// sweep runs one pass over every shard. A shard-level failure is logged and
// the sweep moves on; the next tick retries it.
func sweep(ctx context.Context, scanner *scheduler.Scanner, shards []string) {
	log := logger.Get()
	for _, shard := range shards {
		if ctx.Err() != nil {
			return
		}

		report, err := scanner.RunScan(ctx, shard)
		if err != nil {
			log.Error("Shard sweep failed", "shard", shard, "error", err)
			continue
		}
		if report.Processed > 0 || !report.OK() {
			log.Info("Shard sweep finished",
				"shard", shard, "processed", report.Processed, "failed", len(report.Failed))
		}
	}
}
