package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

const defaultRetryDelay = 2 * time.Second

// errMalformedEvent marks messages that can never be processed; they are dropped.
var errMalformedEvent = errors.New("malformed ingest event")

type CatalogWriter interface {
	Upsert(ctx context.Context, doc *model.IngestedDocument) error
	DeleteNotInRun(ctx context.Context, runID string) error
}

// CatalogWorker consumes ingest events: document events upsert catalog rows and a
// run completion removes rows left over from earlier runs.
type CatalogWorker struct {
	conn       *amqp.Connection
	repo       CatalogWriter
	queueName  string
	retryDelay time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCatalogWorker(conn *amqp.Connection, repo CatalogWriter, queueName string) *CatalogWorker {
	return &CatalogWorker{
		conn:       conn,
		repo:       repo,
		queueName:  queueName,
		retryDelay: defaultRetryDelay,
	}
}

func (w *CatalogWorker) Start(ctx context.Context) error {
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
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"catalog-worker",
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
				if err := w.handle(workerCtx, d.Type, d.Body); err != nil {
					requeue := shouldRequeue(err)
					log.Printf("catalog worker: %v (requeue=%t)", err, requeue)
					if requeue {
						select {
						case <-workerCtx.Done():
						case <-time.After(w.retryDelay):
						}
					}
					_ = d.Nack(false, requeue)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *CatalogWorker) handle(ctx context.Context, msgType string, body []byte) error {
	switch msgType {
	case model.EventDocumentIngested, "":
		var event model.DocumentIngestedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		if event.FileName == "" || event.RunID == "" {
			return fmt.Errorf("%w: document event without file name or run id", errMalformedEvent)
		}
		row := event.CatalogRow()
		if err := w.repo.Upsert(ctx, &row); err != nil {
			return fmt.Errorf("record %s failed: %w", event.FileName, err)
		}
	case model.EventRunCompleted:
		var event model.IngestRunCompletedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		if event.RunID == "" {
			return fmt.Errorf("%w: run completion without run id", errMalformedEvent)
		}
		if err := w.repo.DeleteNotInRun(ctx, event.RunID); err != nil {
			return fmt.Errorf("prune catalog for run %s failed: %w", event.RunID, err)
		}
		log.Printf("catalog pruned to run %s (%d documents)", event.RunID, event.DocumentsIngested)
	default:
		return fmt.Errorf("%w: unknown message type %q", errMalformedEvent, msgType)
	}
	return nil
}

// shouldRequeue keeps messages that failed for a transient reason such as the
// catalog database being unreachable.
func shouldRequeue(err error) bool {
	return err != nil && !errors.Is(err, errMalformedEvent)
}

func (w *CatalogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
