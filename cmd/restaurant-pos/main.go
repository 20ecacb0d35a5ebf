package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/microservices/notificator"
	"restaurant-pos/internal/microservices/terminal"
	"restaurant-pos/internal/microservices/tracker"
	"restaurant-pos/internal/repository"
)

func main() {
	mode := flag.String("mode", "", "terminal-api | table-tracker | notification-subscriber")
	cfgPath := flag.String("config", "", "path to YAML config (default: search config.yaml)")
	port := flag.Int("port", 0, "terminal-api, table-tracker: http port (overrides config)")
	prefetch := flag.Int("prefetch", 10, "table-tracker, notification-subscriber: RabbitMQ prefetch")
	flag.Parse()

	lg := logger.New("bootstrap")

	path := *cfgPath
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			lg.Error("config_search_failed", err, nil)
			os.Exit(1)
		}
		path = found
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "terminal-api":
		if *port == 0 {
			*port = cfg.HTTP.Port
		}
		lg.Info("service_started", map[string]any{"service": "terminal-api", "port": *port})
		if err := terminal.Run(ctx, cfg, *port); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "table-tracker":
		if *port == 0 {
			*port = 3002
		}
		db, err := database.ConnectDB(ctx, cfg.Database)
		if err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
		defer db.Close()
		if err := repository.Migrate(ctx, db); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
		rmq, err := rabbitmq.DialContext(ctx, cfg.RabbitMQ)
		if err != nil {
			lg.Error("fatal", err, map[string]any{"host": cfg.RabbitMQ.Host})
			os.Exit(1)
		}
		defer rmq.Close()
		lg.Info("service_started", map[string]any{"service": "table-tracker", "port": *port})
		if err := tracker.Start(ctx, ":"+strconv.Itoa(*port), db, rmq, *prefetch); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		rmq, err := rabbitmq.DialContext(ctx, cfg.RabbitMQ)
		if err != nil {
			lg.Error("fatal", err, map[string]any{"host": cfg.RabbitMQ.Host})
			os.Exit(1)
		}
		defer rmq.Close()
		lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
		if err := notificator.Start(ctx, rmq, *prefetch); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: terminal-api | table-tracker | notification-subscriber")
		os.Exit(2)
	}
}
