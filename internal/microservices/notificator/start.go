package notificator

import (
	"context"
	"fmt"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/microservices/notificator/service"
)

// Start consumes the notifications queue until ctx is cancelled.
func Start(ctx context.Context, rmqClient *rabbitmq.Client, prefetch int) error {
	lg := logger.New("notification-subscriber")
	if err := rmqClient.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	msgs, stop, err := rmqClient.Consume(rabbitmq.QueueNotifications, "notificator", prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", rabbitmq.QueueNotifications, err)
	}
	defer stop()

	lg.Info("subscriber_started", map[string]any{"queue": rabbitmq.QueueNotifications, "prefetch": prefetch})
	service.NewNotificatorService(lg).Notify(ctx, msgs)
	return nil
}
