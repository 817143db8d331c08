package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"restaurant-orders/internal/common/logger"
	"restaurant-orders/internal/domain"
)

type NotificatorServiceInterface interface {
	Run(ctx context.Context, deliveries <-chan amqp.Delivery, workers int) error
}

type NotificatorService struct {
	lg *logger.Logger
}

func NewNotificatorService(lg *logger.Logger) *NotificatorService {
	return &NotificatorService{lg: lg}
}

// Run handles deliveries with at most workers in flight until ctx is done
// or the channel closes, then waits for the running handlers.
func (s *NotificatorService) Run(ctx context.Context, deliveries <-chan amqp.Delivery, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case d, ok := <-deliveries:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				s.handle(gctx, d)
				return nil
			})
		}
	}
}

func (s *NotificatorService) handle(_ context.Context, d amqp.Delivery) {
	n, err := decode(d.Body)
	if err != nil {
		s.lg.Error("notification_rejected", err, map[string]any{"message_id": d.MessageId})
		if err := d.Nack(false, false); err != nil {
			s.lg.Error("nack_failed", err, map[string]any{"message_id": d.MessageId})
		}
		return
	}

	s.lg.Info("notification_received", map[string]any{
		"message_id":   d.MessageId,
		"event_type":   string(n.Event),
		"order_number": n.OrderNumber,
		"customer_id":  n.CustomerID.String(),
		"old_status":   string(n.OldStatus),
		"new_status":   string(n.NewStatus),
		"message":      n.Message,
	})
	if err := d.Ack(false); err != nil {
		s.lg.Error("ack_failed", err, map[string]any{"message_id": d.MessageId})
	}
}

func decode(body []byte) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.OrderNumber == "" || !n.NewStatus.Valid() {
		return n, errors.New("notification without order number or status")
	}
	return n, nil
}
