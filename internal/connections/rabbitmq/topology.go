package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangePOS        = "pos_topic"
	ExchangeDeadLetter = "pos_dlx"
	QueueNotifications = "pos_notifications"
	QueueDeadLetter    = "pos_dlq"
	QueueTableHistory  = "pos_table_history"
)

// DeclareTopology is idempotent.
func (c *Client) DeclareTopology() error {
	if c == nil || c.pub == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.pub.ExchangeDeclare(ExchangePOS, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangePOS, err)
	}
	if err := c.pub.ExchangeDeclare(ExchangeDeadLetter, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeDeadLetter, err)
	}
	if _, err := c.pub.QueueDeclare(QueueNotifications, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": QueueDeadLetter,
	}); err != nil {
		return fmt.Errorf("queue declare %s: %w", QueueNotifications, err)
	}
	if _, err := c.pub.QueueDeclare(QueueTableHistory, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": QueueDeadLetter,
	}); err != nil {
		return fmt.Errorf("queue declare %s: %w", QueueTableHistory, err)
	}
	if err := c.pub.QueueBind(QueueTableHistory, "table.#", ExchangePOS, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", QueueTableHistory, err)
	}
	if _, err := c.pub.QueueDeclare(QueueDeadLetter, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", QueueDeadLetter, err)
	}
	if err := c.pub.QueueBind(QueueNotifications, "#", ExchangePOS, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", QueueNotifications, err)
	}
	if err := c.pub.QueueBind(QueueDeadLetter, QueueDeadLetter, ExchangeDeadLetter, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", QueueDeadLetter, err)
	}
	return nil
}
