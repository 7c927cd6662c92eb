package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rizkyap/ngobrol/pkg/auth"
	"github.com/rizkyap/ngobrol/pkg/blob"
	"github.com/rizkyap/ngobrol/pkg/config"
	"github.com/rizkyap/ngobrol/pkg/db"
	"github.com/rizkyap/ngobrol/pkg/room"
	"github.com/rizkyap/ngobrol/pkg/store"
	"github.com/rizkyap/ngobrol/pkg/stream"
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

	st := store.NewScylla(session)
	counters := store.NewRedisCounters(rdb)
	tokens := auth.NewTokens(cfg.JWTSecret)
	broker := stream.NewBroker(logger)

	var uploader blob.Uploader
	if cfg.CloudinaryURL != "" {
		uploader, err = blob.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			logger.Error("cloudinary init failed", "error", err)
			os.Exit(1)
		}
	}

	api := &API{
		Log:       logger,
		Store:     st,
		Counters:  counters,
		Tokens:    tokens,
		Auth:      auth.NewService(st, tokens, logger),
		Resolver:  room.NewResolver(st, logger),
		Directory: room.NewDirectory(st, counters, broker, logger),
		Uploader:  uploader,
		Viewers:   store.NewRedisPresence(rdb),
	}

	logger.Info("api service starting", "port", cfg.APIPort)
	if err := http.ListenAndServe(":"+cfg.APIPort, CORSMiddleware(api)); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
