package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rizkyap/ngobrol/pkg/config"
	"github.com/rizkyap/ngobrol/pkg/db"
	"github.com/rizkyap/ngobrol/pkg/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.Load()

	if err := db.EnsureKeyspace(cfg.ScyllaHosts, cfg.Keyspace); err != nil {
		logger.Error("keyspace bootstrap failed", "error", err)
		os.Exit(1)
	}
	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		logger.Error("scylla connect failed", "error", err)
		os.Exit(1)
	}
	defer session.Close()
	if err := session.EnsureSchema(); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	consumer := NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaTopic,
		"messaging-service-group",
		store.NewScylla(session),
		store.NewRedisCounters(rdb),
		logger,
	)
	defer consumer.Close()

	logger.Info("messaging service starting", "topic", cfg.KafkaTopic)
	consumer.Consume(context.Background())
}
