package tracking

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const trackingTopic = "desk_tracking"

// RabbitTracking publishes usage events to a shared tracking exchange.
// Send failures are logged and swallowed; tracking must never fail a user
// action.
type RabbitTracking struct {
	connection *amqp.Connection
}

func NewRabbitTracking(amqpUrl string) (*RabbitTracking, error) {
	conn, err := amqp.Dial(amqpUrl)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(trackingTopic, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitTracking{connection: conn}, nil
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

type baseEvent struct {
	SessionId string `json:"session_id"`
	Event     string `json:"event"`
}

type searchEvent struct {
	baseEvent
	Signature string `json:"signature"`
	Page      int    `json:"page"`
	Results   int    `json:"results"`
}

type contractEvent struct {
	baseEvent
	ContractId int `json:"contract_id"`
}

func (t *RabbitTracking) send(data any) {
	bytes, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal tracking event: %v", err)
		return
	}
	ch, err := t.connection.Channel()
	if err != nil {
		log.Printf("failed to open tracking channel: %v", err)
		return
	}
	defer ch.Close()
	err = ch.Publish(trackingTopic, trackingTopic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        bytes,
	})
	if err != nil {
		log.Printf("failed to publish tracking event: %v", err)
	}
}

func (t *RabbitTracking) TrackSearch(sessionId string, signature string, page int, results int) {
	go t.send(searchEvent{
		baseEvent: baseEvent{SessionId: sessionId, Event: "search"},
		Signature: signature,
		Page:      page,
		Results:   results,
	})
}

func (t *RabbitTracking) TrackContractView(sessionId string, contractId int) {
	go t.send(contractEvent{baseEvent{sessionId, "view"}, contractId})
}

func (t *RabbitTracking) TrackPortfolioAdd(sessionId string, contractId int) {
	go t.send(contractEvent{baseEvent{sessionId, "portfolio_add"}, contractId})
}

func (t *RabbitTracking) TrackPortfolioRemove(sessionId string, contractId int) {
	go t.send(contractEvent{baseEvent{sessionId, "portfolio_remove"}, contractId})
}
