package navguard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"restaurant-pos/internal/common/logger"
)

var ErrNoPendingIntent = errors.New("no pending navigation")

type Trigger string

const (
	TriggerRouter  Trigger = "router"
	TriggerBack    Trigger = "back"
	TriggerSignOut Trigger = "sign_out"
	TriggerManual  Trigger = "manual"
)

// Intent is a navigation paused until the user decides.
type Intent struct {
	Pending    bool    `json:"pending"`
	TargetPath string  `json:"target_path,omitempty"`
	Trigger    Trigger `json:"trigger,omitempty"`
}

// SaleCanceller discards the in-progress sale: the order is cleared and any
// bound table released, as one unit. On error nothing was changed.
type SaleCanceller interface {
	CancelSale(ctx context.Context) error
}

type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// Coordinator holds the single NavigationIntent of a session.
type Coordinator struct {
	mu        sync.Mutex
	intent    Intent
	canceller SaleCanceller
	navigator Navigator
	log       *logger.Logger
}

func NewCoordinator(canceller SaleCanceller, navigator Navigator, lg *logger.Logger) *Coordinator {
	if lg == nil {
		lg = logger.New("navguard")
	}
	return &Coordinator{canceller: canceller, navigator: navigator, log: lg}
}

// Open pauses a navigation to target. A newer request replaces an older one.
func (c *Coordinator) Open(target string, trigger Trigger) {
	c.mu.Lock()
	c.intent = Intent{Pending: true, TargetPath: target, Trigger: trigger}
	c.mu.Unlock()
	c.log.Info("navigation_blocked", map[string]any{"target": target, "trigger": string(trigger)})
}

// Close is the "stay" decision.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.intent = Intent{}
	c.mu.Unlock()
}

func (c *Coordinator) Intent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

// Confirm is the "leave" decision: cancel the sale, clear the intent, then
// navigate. If the sale cannot be cancelled the intent stays pending.
func (c *Coordinator) Confirm(ctx context.Context) (string, error) {
	in := c.Intent()
	if !in.Pending {
		return "", ErrNoPendingIntent
	}

	if err := c.canceller.CancelSale(ctx); err != nil {
		c.log.Error("navigation_confirm_aborted", err, map[string]any{"target": in.TargetPath})
		return "", fmt.Errorf("cancel sale: %w", err)
	}

	c.mu.Lock()
	if c.intent == in {
		c.intent = Intent{}
	}
	c.mu.Unlock()

	if err := c.navigator.Navigate(ctx, in.TargetPath); err != nil {
		return in.TargetPath, fmt.Errorf("navigate to %s: %w", in.TargetPath, err)
	}
	c.log.Info("navigation_confirmed", map[string]any{"target": in.TargetPath, "trigger": string(in.Trigger)})
	return in.TargetPath, nil
}
