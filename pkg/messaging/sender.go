package messaging

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

func topicName(prefix string, topic ChangeTopic) string {
	return fmt.Sprintf("%s_%s", prefix, topic)
}

// DefineTopic declares the topic exchange change events travel on. No
// standing queue is declared: invalidation events are only useful to
// instances that are up, so each listener binds its own transient queue.
func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := topicName(prefix, topic)
	if err := ch.ExchangeDeclare(
		name,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare %s exchange: %w", name, err)
	}
	return nil
}

// SendChange publishes one change event to the topic's exchange. A channel
// is opened per send; mutations are rare enough that pooling is not worth
// the bookkeeping.
func SendChange(conn *amqp.Connection, prefix string, topic ChangeTopic, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	name := topicName(prefix, topic)
	return ch.Publish(
		name,
		name,
		true, // mandatory
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
