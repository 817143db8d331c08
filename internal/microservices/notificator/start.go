package notificator

import (
	"context"
	"fmt"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/common/mq"
	"restaurant-orders/internal/microservices/notificator/service"
)

// Start consumes the notifications queue until ctx is cancelled.
func Start(ctx context.Context, client *mq.Client, prefetch int, lg *logger.Logger) error {
	if err := client.DeclareAll(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	deliveries, stop, err := client.Consume(mq.NotificationsQueue, "notification-subscriber", prefetch)
	if err != nil {
		return err
	}
	defer stop()

	lg.Info("service_started", map[string]any{"queue": mq.NotificationsQueue, "prefetch": prefetch})
	svc := service.New(lg)
	err = svc.NotificatorService.Run(ctx, deliveries, prefetch)
	lg.Info("graceful_shutdown", nil)
	return err
}
