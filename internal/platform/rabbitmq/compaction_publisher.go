package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// CompactionJob asks the background worker to run one compaction pass over a
// session.
type CompactionJob struct {
	SessionID string `json:"session_id"`
}

type CompactionPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCompactionPublisher(conn *amqp.Connection, queueName string) *CompactionPublisher {
	return &CompactionPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// Schedule enqueues a compaction job for the session.
func (p *CompactionPublisher) Schedule(ctx context.Context, sessionID string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(CompactionJob{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("marshal compaction job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish compaction job failed: %w", err)
	}
	return nil
}
