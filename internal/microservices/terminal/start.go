package terminal

import (
	"context"
	"fmt"
	"strconv"

	"restaurant-pos/internal/common/clock"
	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/microservices/terminal/handler"
	"restaurant-pos/internal/pos/auth"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/terminal"
	"restaurant-pos/internal/repository"
)

// Run serves the terminal API on port until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	lg := logger.New("terminal-api")

	db, err := database.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := repository.NewPGStore(db)
	if cfg.Terminal.OfflineCache {
		store = repository.WithCache(store)
	}

	// Events are best effort: without a broker the terminal keeps selling.
	var pub events.Publisher = events.Nop{}
	if rmq, err := rabbitmq.Dial(cfg.RabbitMQ); err != nil {
		lg.Error("rabbitmq_unavailable", err, map[string]any{"host": cfg.RabbitMQ.Host})
	} else {
		defer rmq.Close()
		if err := rmq.DeclareTopology(); err != nil {
			return fmt.Errorf("declare topology: %w", err)
		}
		pub = events.NewAMQP(rmq, "terminal-api")
	}

	tax, err := cfg.Terminal.TaxPolicy()
	if err != nil {
		return err
	}
	m := metrics.New()
	loc := navguard.NewLocation("/")
	term := terminal.New(terminal.Config{Tax: tax, SaleRoutes: cfg.Terminal.SaleRoutes}, terminal.Deps{
		Store:    store,
		Events:   pub,
		Metrics:  m,
		Location: loc,
		Clock:    clock.Real{},
		Log:      logger.New("terminal"),
	})
	if err := term.RefreshTables(ctx); err != nil {
		return err
	}

	provider := auth.ProviderFunc(func(_ context.Context, userID string) error {
		lg.Info("identity_released", map[string]any{"user_id": userID})
		return nil
	})
	sess := auth.New(auth.Config{
		LogoutPath:            cfg.Terminal.LogoutPath,
		DefaultSessionMinutes: cfg.Session.DefaultMinutes,
	}, term, provider, pub, m, clock.Real{})

	h := handler.New(term, sess, loc, store, lg)
	srv := httpx.New(":"+strconv.Itoa(port), handler.Router(h, m.Handler()), lg)
	return srv.Run(ctx)
}
