package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/pkg/logger"
)

const (
	TaskTypeDonation = "donation:record"
)

// DonationTask carries a succeeded payment from the webhook to the ledger.
type DonationTask struct {
	EventID         string `json:"event_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ProjectID       uint   `json:"project_id"`
	DonorEmail      string `json:"donor_email,omitempty"`
	AmountMinor     int64  `json:"amount_minor"` // pence
	Currency        string `json:"currency"`
}

// DonationProcessor books a DonationTask. It must be idempotent per
// payment intent since both queues may deliver a task more than once.
type DonationProcessor func(ctx context.Context, task *DonationTask) error

// TaskQueue defines the interface for donation task processing
type TaskQueue interface {
	// Enqueue hands a task to the queue. Synchronous queues process it
	// before returning and report the processing error.
	Enqueue(ctx context.Context, task *DonationTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	Close() error
}

// NewTaskQueue picks the Redis-backed queue when enabled and reachable,
// falling back to in-request processing otherwise.
func NewTaskQueue(cfg *config.Config, processor DonationProcessor) TaskQueue {
	var queue TaskQueue
	if cfg.Redis.Enabled {
		async, err := NewAsyncQueue(&cfg.Redis)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			queue = NewSyncQueue(processor)
		} else {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
			queue = async
		}
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		queue = NewSyncQueue(processor)
	}
	metrics.SetQueueAsync(queue.IsAsync())
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	// Queue listing doubles as a connectivity check.
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue stores the task in Redis. The gateway event id is used as the
// task id, so a redelivered event that is still queued is not added twice.
func (q *AsyncQueue) Enqueue(ctx context.Context, task *DonationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	}
	if task.EventID != "" {
		opts = append(opts, asynq.TaskID(TaskTypeDonation+":"+task.EventID))
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeDonation, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Infof("[AsyncQueue] Event %s already queued", task.EventID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue by processing in the caller's goroutine.
type SyncQueue struct {
	processor DonationProcessor
}

func NewSyncQueue(processor DonationProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

// Enqueue processes the task immediately so the webhook can report failure
// to the gateway, which will then redeliver.
func (q *SyncQueue) Enqueue(ctx context.Context, task *DonationTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] No processor set, task for %s dropped", task.PaymentIntentID)
		return nil
	}
	return q.processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
