package importjob

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/outsource-importer/internal/domain"
	"github.com/outsource-importer/internal/domain/repository"
	"github.com/outsource-importer/internal/pkg/errors"
	"github.com/outsource-importer/internal/usecase"
	"github.com/outsource-importer/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxBatchSize    = 20                     // максимум сообщений за раз
	emptyQueueSleep = 100 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second
	retryBackoff    = 200 * time.Millisecond
)

// ImportWorker выполняет импорты из stream:outsource:import
// и публикует результаты в stream:outsource:done
type ImportWorker struct {
	*worker.BaseWorker
	streamRepo  repository.StreamRepository
	imports     usecase.ImportUseCase
	maxRetries  int
	concurrency int
}

func NewImportWorker(
	streamRepo repository.StreamRepository,
	imports usecase.ImportUseCase,
	consumerGroup string,
	maxRetries int,
	concurrency int,
	logger *zap.Logger,
) *ImportWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ImportWorker{
		BaseWorker:  worker.NewBaseWorker("outsource-import", consumerGroup, logger),
		streamRepo:  streamRepo,
		imports:     imports,
		maxRetries:  maxRetries,
		concurrency: concurrency,
	}
}

func (w *ImportWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting ImportWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.ConsumerName()),
		zap.Int("max_batch_size", maxBatchSize),
		zap.Int("concurrency", w.concurrency))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamImportRequest, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		default:
			processed, err := w.processBatch(ctx)
			if err != nil {
				logger.Error("Failed to process batch", zap.Error(err))
				w.sleep(ctx, errorSleep)
				continue
			}
			if processed == 0 {
				w.sleep(ctx, emptyQueueSleep)
			}
		}
	}
}

// processBatch возвращает количество прочитанных сообщений.
// Все прочитанные сообщения подтверждаются: ошибка импорта уходит в done событие.
func (w *ImportWorker) processBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamImportRequest, w.ConsumerGroup(), w.ConsumerName(), maxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger.Info("Processing batch", zap.Int("message_count", len(messages)))

	var (
		mu     sync.Mutex
		ackIDs = make([]string, 0, len(messages))
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, msg := range messages {
		event, err := parseMessage(msg)
		if err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			mu.Lock()
			ackIDs = append(ackIDs, msg.ID)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			done := w.handle(gctx, event)
			if err := w.streamRepo.PublishToStream(gctx, domain.StreamImportDone, done); err != nil {
				logger.Error("Failed to publish done event",
					zap.String("job_id", event.JobID.String()),
					zap.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			ackIDs = append(ackIDs, msg.ID)
			if done.Error != "" {
				failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := w.streamRepo.AckMessages(ctx, domain.StreamImportRequest, w.ConsumerGroup(), ackIDs); err != nil {
		// Не критично: сообщения будут переобработаны, upsert идемпотентен
		logger.Error("Failed to ack messages", zap.Error(err))
	}

	logger.Info("Batch processed",
		zap.Int("processed", len(messages)),
		zap.Int("failed", failed))

	return len(messages), nil
}

// handle выполняет импорт с повторами для временных ошибок источника и БД
func (w *ImportWorker) handle(ctx context.Context, event *domain.ImportRequestEvent) *domain.ImportDoneEvent {
	done := &domain.ImportDoneEvent{
		JobID:    event.JobID,
		SourceID: event.SourceID,
		Endpoint: event.Endpoint,
	}

	var (
		id  int64
		err error
	)
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			w.Logger().Debug("Retrying import",
				zap.String("source_id", event.SourceID),
				zap.Int("attempt", attempt))
			if !w.sleep(ctx, time.Duration(attempt)*retryBackoff) {
				break
			}
		}
		id, err = w.imports.Import(ctx, event.Job())
		if err == nil || !retryable(err) {
			break
		}
	}

	if err != nil {
		done.Error = err.Error()
		return done
	}
	done.FeatureID = &id
	return done
}

func retryable(err error) bool {
	return errors.Is(err, errors.ErrSourceFetch) || errors.Is(err, errors.ErrDatabaseError)
}

func parseMessage(msg domain.StreamMessage) (*domain.ImportRequestEvent, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var event domain.ImportRequestEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// sleep возвращает false, если воркер остановлен или контекст отменён
func (w *ImportWorker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.StopChan():
		return false
	}
}
