package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"restaurant-orders/internal/common/config"
	"restaurant-orders/internal/common/db"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/common/mq"
	"restaurant-orders/internal/microservices/notificator"
	"restaurant-orders/internal/microservices/order"
)

func main() {
	mode := pflag.String("mode", "", "order-service | notification-subscriber | migrate")
	cfgPath := pflag.String("config", "", "path to config.yaml (default: ./config.yaml, then deploy/config.example.yaml)")
	port := pflag.Int("port", 0, "order-service: HTTP port (overrides config)")
	maxConc := pflag.Int("max-concurrent", 0, "order-service: max in-flight requests (overrides config)")
	prefetch := pflag.Int("prefetch", 10, "notification-subscriber: RabbitMQ prefetch and worker count")
	seed := pflag.String("seed", "", "order-service: seed file with restaurants, dishes and tables")
	pflag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*cfgPath, config.Overrides{Port: *port, MaxConcurrent: *maxConc, SeedFile: *seed})
	if err != nil {
		lg.Error("config_load_failed", err, nil)
		os.Exit(2)
	}

	switch *mode {
	case "order-service":
		err = order.Run(ctx, cfg, logger.New("order-service"))
	case "notification-subscriber":
		err = runSubscriber(ctx, cfg, *prefetch)
	case "migrate":
		err = migrate(ctx, cfg, lg)
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: order-service | notification-subscriber | migrate")
		os.Exit(2)
	}
	if err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		os.Exit(1)
	}
}

// loadConfig applies flag overrides before validating, so a bad flag is
// reported like a bad config value.
func loadConfig(path string, o config.Overrides) (config.App, error) {
	if path == "" {
		found, err := config.FindConfig()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.App{}, err
		}
		path = found
	}
	cfg, err := config.Read(path)
	if err != nil {
		return config.App{}, err
	}
	cfg.Apply(o)
	if err := cfg.Validate(); err != nil {
		return config.App{}, err
	}
	return cfg, nil
}

func runSubscriber(ctx context.Context, cfg config.App, prefetch int) error {
	lg := logger.New("notification-subscriber")
	client, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer client.Close()
	return notificator.Start(ctx, client, prefetch, lg)
}

func migrate(ctx context.Context, cfg config.App, lg *logger.Logger) error {
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.Migrate(ctx); err != nil {
		return err
	}
	lg.Info("schema_migrated", map[string]any{"database": cfg.Database.Name})
	return nil
}
