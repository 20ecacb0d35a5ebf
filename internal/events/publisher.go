package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/connections/rabbitmq"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// AMQP publishes JSON events to the pos topic exchange with publisher
// confirms.
type AMQP struct {
	client *rabbitmq.Client
	source string
}

func NewAMQP(client *rabbitmq.Client, source string) *AMQP {
	return &AMQP{client: client, source: source}
}

func (p *AMQP) Publish(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", routingKey, err)
	}
	msg := rabbitmq.Message{
		Exchange:   rabbitmq.ExchangePOS,
		RoutingKey: routingKey,
		ID:         uuid.NewString(),
		Headers:    amqp.Table{"x-source": p.source},
		Body:       body,
	}
	if err := p.client.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

type Published struct {
	Key     string
	Payload any
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, key string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Key: key, Payload: v})
	return nil
}

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

// Keys lists routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Key
	}
	return out
}
