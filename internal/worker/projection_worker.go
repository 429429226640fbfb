package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"savings/internal/amqp"
	"savings/internal/api"
	"savings/internal/cache"
	"savings/internal/config"
	"savings/internal/log"
)

// Consumer delivers jobs to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, concurrency int, handler amqp.Handler) error
}

// ProjectionWorker answers projection jobs with the same operations the
// HTTP API serves. Replies are cached by message ID so a redelivered job
// gets the reply it already produced.
type ProjectionWorker struct {
	service *api.Service
	results cache.Cache[[]byte]
	logger  *log.StructuredLogger
}

func NewProjectionWorker(service *api.Service, results cache.Cache[[]byte], logger *log.Logger) *ProjectionWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ProjectionWorker{
		service: service,
		results: results,
		logger:  log.NewStructuredLogger(logger.WithComponent(log.ComponentWorker)),
	}
}

// Run consumes jobs until ctx is cancelled. Cancellation is a clean stop.
func (w *ProjectionWorker) Run(ctx context.Context, consumer Consumer, concurrency int) error {
	err := consumer.Consume(ctx, concurrency, w.HandleDelivery)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleDelivery turns one job into its reply body. Unknown kinds and
// invalid requests become error replies; only an unreadable envelope is
// returned as an error.
func (w *ProjectionWorker) HandleDelivery(ctx context.Context, d amqp.Delivery) ([]byte, error) {
	start := time.Now()
	key := cacheKey(d)

	if d.Redelivered && key != "" {
		if body, ok := w.results.Get(key); ok {
			slog.DebugContext(ctx, "Answering redelivered job from cache",
				log.FieldJobID, key,
				log.FieldCorrelationID, d.CorrelationID)
			return body, nil
		}
	}

	job, err := amqp.JobMessageFromJSON(d.Body)
	if err != nil {
		w.logger.LogError(ctx, "Rejecting job envelope", err, log.ErrorTypeMalformed,
			log.ComponentWorker, log.OpConsume,
			log.NewFields().WithJob(d.MessageID, d.CorrelationID, d.Redelivered))
		return nil, err
	}

	jobID := d.MessageID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	reply := w.run(ctx, jobID, job)
	body, err := reply.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}

	if key != "" {
		w.results.Set(key, body)
	}
	w.logger.LogJobCompleted(ctx, jobID, d.CorrelationID, job.Kind, d.Redelivered, time.Since(start).Milliseconds())
	return body, nil
}

func (w *ProjectionWorker) run(ctx context.Context, jobID string, job *amqp.JobMessage) *amqp.ReplyMessage {
	reply := &amqp.ReplyMessage{JobID: jobID, Kind: job.Kind}

	op, err := api.ParseOperation(job.Kind)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	result, err := w.service.Do(ctx, op, job.Request)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	body, err := json.Marshal(result)
	if err != nil {
		reply.Error = "internal error encoding result"
		w.logger.LogError(ctx, "Failed to encode job result", err, log.ErrorTypeInternal,
			log.ComponentWorker, log.OpProcess, log.NewFields().WithJob(jobID, "", false))
		return reply
	}
	reply.Result = body
	return reply
}

// cacheKey identifies a job across redeliveries.
func cacheKey(d amqp.Delivery) string {
	if d.MessageID != "" {
		return "msg:" + d.MessageID
	}
	if d.CorrelationID != "" {
		return "corr:" + d.CorrelationID
	}
	return ""
}

// Serve connects to the broker named in cfg and answers projection jobs
// until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	results := cache.NewLRUCache[[]byte](cfg.ResultCacheSize, cfg.ResultCacheTTL)
	cleaner := cache.NewManager()
	cleaner.Register(results)
	cleaner.StartCleanup(cfg.ResultCacheTTL)
	defer cleaner.Stop()

	logger.Info("Projection worker started",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"concurrency", cfg.WorkerConcurrency,
		"result_cache_size", cfg.ResultCacheSize)

	w := NewProjectionWorker(api.NewService(), results, logger)
	err = w.Run(ctx, client, cfg.WorkerConcurrency)

	s := results.Stats()
	logger.Info("Projection worker stopped",
		"cache_hits", s.Hits,
		"cache_misses", s.Misses,
		"cache_evictions", s.Evictions)
	return err
}
