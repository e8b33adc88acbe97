package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"manabinote/internal/memory"
	"manabinote/internal/platform/rabbitmq"
)

// CompactionWorker consumes compaction jobs and runs the memory service on
// them, off the user-facing request path. A failed pass is logged and
// requeue-dropped; the next reply on the session schedules a fresh job
// anyway.
type CompactionWorker struct {
	conn      *amqp.Connection
	memory    *memory.Service
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCompactionWorker(conn *amqp.Connection, memorySvc *memory.Service, queueName string) *CompactionWorker {
	return &CompactionWorker{
		conn:      conn,
		memory:    memorySvc,
		queueName: queueName,
	}
}

func (w *CompactionWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *CompactionWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.CompactionJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode compaction job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	folded, err := w.memory.CompactSession(ctx, job.SessionID)
	if err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			log.Printf("worker drop compaction job for missing session %s", job.SessionID)
			_ = d.Ack(false)
			return
		}
		log.Printf("worker compact session %s failed: %v", job.SessionID, err)
		_ = d.Nack(false, false)
		return
	}

	if folded {
		log.Printf("worker compacted session %s", job.SessionID)
	}
	_ = d.Ack(false)
}

func (w *CompactionWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
