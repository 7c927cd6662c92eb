package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rizkyap/ngobrol/pkg/auth"
	"github.com/rizkyap/ngobrol/pkg/config"
	"github.com/rizkyap/ngobrol/pkg/db"
	"github.com/rizkyap/ngobrol/pkg/store"
)

func main() {
	logOut := os.Stdout
	if path := os.Getenv("GATEWAY_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			slog.Error("open log file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	cfg := config.Load()

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.Keyspace)
	if err != nil {
		logger.Error("scylla connect failed", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// Node id must be unique per gateway instance.
	nodeID := int64(1)
	if s := os.Getenv("SNOWFLAKE_NODE"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			nodeID = n
		}
	}

	hub, err := NewHub(
		logger,
		store.NewScylla(session),
		store.NewRedisCounters(rdb),
		store.NewRedisPresence(rdb),
		auth.NewTokens(cfg.JWTSecret),
		cfg.KafkaBrokers,
		cfg.KafkaTopic,
		nodeID,
	)
	if err != nil {
		logger.Error("hub init failed", "error", err)
		os.Exit(1)
	}
	go hub.Run()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	logger.Info("gateway service starting", "port", cfg.GatewayPort)
	if err := http.ListenAndServe(":"+cfg.GatewayPort, nil); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
