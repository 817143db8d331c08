package order

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/config"
	"restaurant-orders/internal/common/db"
	"restaurant-orders/internal/common/httpx"
	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/common/mq"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/microservices/order/handlers"
	"restaurant-orders/internal/microservices/order/repository"
	"restaurant-orders/internal/microservices/order/service"
)

// Run wires the order service from cfg and serves HTTP until ctx ends.
func Run(ctx context.Context, cfg config.App, lg *logger.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.Orders.SeedFile != "" {
		seed, err := repository.LoadSeed(cfg.Orders.SeedFile)
		if err != nil {
			return err
		}
		if err := repo.OrderRepo.Seed(ctx, seed); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		lg.Info("seed_loaded", map[string]any{"file": cfg.Orders.SeedFile, "restaurants": len(seed.Restaurants)})
	}

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.Orders.PublishEvents {
		client, err := mq.Dial(cfg.Rabbit)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer client.Close()
		if err := client.DeclareAll(); err != nil {
			return fmt.Errorf("declare topology: %w", err)
		}
		lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host})
		pub = service.NewRabbitPublisher(client, "order-service")
	}

	var policy domain.TransitionPolicy = domain.PermissivePolicy{}
	if cfg.Orders.StrictTransitions {
		policy = domain.StrictPolicy{}
	}

	svc := service.New(repo, pub, policy, lg)
	router, err := handlers.Router(handlers.New(svc), handlers.RouterConfig{
		JWTSecret:     cfg.Auth.JWTSecret,
		MaxConcurrent: cfg.HTTP.MaxConcurrent,
	}, lg)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTP.Port), router)
	lg.Info("service_started", map[string]any{
		"port":               cfg.HTTP.Port,
		"max_concurrent":     cfg.HTTP.MaxConcurrent,
		"store":              cfg.Orders.Store,
		"strict_transitions": cfg.Orders.StrictTransitions,
	})
	err = srv.Run(ctx)
	lg.Info("graceful_shutdown", nil)
	return err
}

func openRepository(ctx context.Context, cfg config.App, lg *logger.Logger) (*repository.Repository, func(), error) {
	if cfg.Orders.Store == "memory" {
		return repository.NewInMemory(), func() {}, nil
	}
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Name})
	return repository.New(conn.Pool), conn.Close, nil
}
