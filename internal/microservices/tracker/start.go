package tracker

import (
	"context"
	"database/sql"
	"fmt"

	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/microservices/tracker/handler"
	"restaurant-pos/internal/microservices/tracker/repository"
	"restaurant-pos/internal/microservices/tracker/service"
)

// Start records table status changes from the broker and serves the
// history on addr. It blocks until ctx is cancelled.
func Start(ctx context.Context, addr string, db *sql.DB, rmq *rabbitmq.Client, prefetch int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lg := logger.New("table-tracker")
	svc := service.NewTrackerService(repository.NewTrackerRepo(db))

	if err := rmq.DeclareTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	msgs, stop, err := rmq.Consume(rabbitmq.QueueTableHistory, "table-tracker", prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", rabbitmq.QueueTableHistory, err)
	}
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Consume(ctx, msgs)
	}()

	srv := httpx.New(addr, handler.Router(handler.New(svc)), lg)
	err = srv.Run(ctx)
	cancel()
	<-done
	return err
}
