package messaging

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := topicName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic consumes change events until the channel closes. Deliveries
// that fail to decode are acked and dropped; a handler error stops the
// consumer.
func ListenToTopic(ch *amqp.Channel, prefix string, topic ChangeTopic, handler func(ChangeEvent) error) error {
	fc, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		defer ch.Close()
		for d := range msgs {
			var ev ChangeEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("failed to unmarshal %s event: %v", topic, err)
				d.Ack(false)
				continue
			}
			if err := handler(ev); err != nil {
				log.Printf("error processing %s event: %v", topic, err)
				return
			}
			d.Ack(false)
		}
	}(fc)
	return nil
}
