package messaging

import (
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Bus is the process-wide change bus. Subscribers are invoked synchronously
// on Publish in registration order; handlers must be cheap (cache
// invalidation, snapshot refresh triggers).
type Bus struct {
	mu     sync.Mutex
	subs   map[ChangeTopic][]func(ChangeEvent)
	conn   *amqp.Connection
	prefix string
}

func NewBus() *Bus {
	return &Bus{subs: make(map[ChangeTopic][]func(ChangeEvent))}
}

// ConnectRabbit attaches a RabbitMQ transport: local publishes are mirrored
// to the exchange and remote deliveries are dispatched to local subscribers.
func (b *Bus) ConnectRabbit(amqpUrl, prefix string) error {
	conn, err := amqp.DialConfig(amqpUrl, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.conn = conn
	b.prefix = prefix
	b.mu.Unlock()

	for _, topic := range []ChangeTopic{ContractsChanged, PortfolioChanged} {
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		if err := DefineTopic(ch, prefix, topic); err != nil {
			return err
		}
		topic := topic
		err = ListenToTopic(ch, prefix, topic, func(ev ChangeEvent) error {
			b.dispatch(topic, ev)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Subscribe(topic ChangeTopic, fn func(ChangeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], fn)
}

// Publish dispatches locally and, when connected, to the exchange. Remote
// send failures are logged, not surfaced: local invalidation already
// happened and the mutation itself succeeded.
func (b *Bus) Publish(topic ChangeTopic, ev ChangeEvent) {
	b.dispatch(topic, ev)
	b.mu.Lock()
	conn, prefix := b.conn, b.prefix
	b.mu.Unlock()
	if conn != nil {
		if err := SendChange(conn, prefix, topic, ev); err != nil {
			log.Printf("failed to publish %s change: %v", topic, err)
		}
	}
}

func (b *Bus) dispatch(topic ChangeTopic, ev ChangeEvent) {
	b.mu.Lock()
	handlers := make([]func(ChangeEvent), len(b.subs[topic]))
	copy(handlers, b.subs[topic])
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}
