package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
)

var ErrNacked = errors.New("broker nacked the message")

type Config struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	VHost    string `yaml:"vhost" env:"VHOST"` // default "/"
	UseTLS   bool   `yaml:"tls" env:"TLS"`
	// Attempts bounds DialContext; zero means a single try.
	Attempts int `yaml:"attempts" env:"ATTEMPTS"`
}

// Message is one JSON event bound for an exchange.
type Message struct {
	Exchange   string
	RoutingKey string
	ID         string
	Headers    amqp.Table
	Body       []byte
	Transient  bool
}

// Client owns one connection and a confirm-mode channel for publishing.
// Consumers get channels of their own.
type Client struct {
	conn *amqp.Connection
	pub  *amqp.Channel
}

func URL(cfg Config) string {
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	vhost := cfg.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)
}

// Dial connects once.
func Dial(cfg Config) (*Client, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	pub, err := confirmChannel(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Client{conn: conn, pub: pub}, nil
}

// DialContext retries Dial up to cfg.Attempts times, two seconds apart,
// until the broker answers or ctx is cancelled.
func DialContext(ctx context.Context, cfg Config) (*Client, error) {
	const retryDelay = 2 * time.Second
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	lg := logger.New("rabbitmq")

	var lastErr error
	for i := 1; i <= attempts; i++ {
		c, err := Dial(cfg)
		if err == nil {
			lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Host, "port": cfg.Port})
			return c, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		lg.Error("rabbitmq_connect_retry", err, map[string]any{"attempt": i})
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("rabbitmq unreachable after %d attempt(s): %w", attempts, lastErr)
}

func dial(cfg Config) (*amqp.Connection, error) {
	if cfg.UseTLS {
		return amqp.DialTLS(URL(cfg), &tls.Config{MinVersion: tls.VersionTLS12})
	}
	return amqp.Dial(URL(cfg))
}

func confirmChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return ch, nil
}

func (c *Client) Close() {
	if c.pub != nil {
		_ = c.pub.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish sends m and blocks until the broker confirms it or ctx ends.
// Each publish waits on its own deferred confirmation, so a confirm that
// arrives after ctx ended is never mistaken for a later message's.
func (c *Client) Publish(ctx context.Context, m Message) error {
	if c == nil || c.pub == nil {
		return errors.New("rabbitmq client is not connected")
	}
	mode := amqp.Persistent
	if m.Transient {
		mode = amqp.Transient
	}

	dc, err := c.pub.PublishWithDeferredConfirmWithContext(ctx, m.Exchange, m.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: mode,
		MessageId:    m.ID,
		Timestamp:    time.Now().UTC(),
		Headers:      m.Headers,
		Body:         m.Body,
	})
	if err != nil {
		return err
	}
	return awaitConfirm(ctx, dc, m)
}

func awaitConfirm(ctx context.Context, dc *amqp.DeferredConfirmation, m Message) error {
	if dc == nil {
		return errors.New("publish channel is not in confirm mode")
	}
	ack, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ack {
		return fmt.Errorf("%w: %s/%s", ErrNacked, m.Exchange, m.RoutingKey)
	}
	return nil
}

// Consume opens a separate channel so consumers never share the confirm
// channel used by Publish. stop cancels the consumer and closes it.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, func(), error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	stop := func() {
		_ = ch.Cancel(consumer, false)
		_ = ch.Close()
	}
	return msgs, stop, nil
}
