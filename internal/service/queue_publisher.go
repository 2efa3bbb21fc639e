// Package queue_publisher publishes domain events to RabbitMQ. Errors are
// logged and returned so callers can decide whether a failed publish should
// fail the request.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/reading-practice/internal/queue"
)

// Publisher pushes recording.submitted events onto the broker. The zero
// value dials the environment-configured broker per publish, matching the
// short-lived-request model: no connection state to manage or tear down.
type Publisher struct{}

// PublishRecordingSubmitted publishes ev to the durable recording.submitted
// queue. Messages are marked persistent so a broker restart cannot drop an
// un-analyzed recording.
func (Publisher) PublishRecordingSubmitted(ctx context.Context, ev q.RecordingSubmittedEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.SubmittedQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		q.SubmittedQueueName, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
