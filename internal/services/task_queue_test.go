package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/impactbridge/marketplace/internal/config"
)

func TestSyncQueue_ProcessesInline(t *testing.T) {
	var got *DonationTask
	q := NewSyncQueue(func(ctx context.Context, task *DonationTask) error {
		got = task
		return nil
	})

	task := &DonationTask{EventID: "evt_1", PaymentIntentID: "pi_1", ProjectID: 2, AmountMinor: 2500}
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if got != task {
		t.Error("processor did not receive the task before Enqueue returned")
	}
	if q.IsAsync() {
		t.Error("SyncQueue.IsAsync() should be false")
	}
}

func TestSyncQueue_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	q := NewSyncQueue(func(ctx context.Context, task *DonationTask) error {
		return boom
	})

	if err := q.Enqueue(context.Background(), &DonationTask{}); !errors.Is(err, boom) {
		t.Errorf("Enqueue() error = %v, expected %v", err, boom)
	}
}

func TestSyncQueue_NilProcessor(t *testing.T) {
	q := NewSyncQueue(nil)
	if err := q.Enqueue(context.Background(), &DonationTask{PaymentIntentID: "pi_1"}); err != nil {
		t.Errorf("Enqueue() with no processor error = %v, expected nil", err)
	}
}

func TestNewTaskQueue_RedisDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	q := NewTaskQueue(cfg, nil)
	if q.IsAsync() {
		t.Error("expected sync queue when Redis is disabled")
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewWorker_RedisDisabled(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}, nil); w != nil {
		t.Error("expected nil worker when Redis is disabled")
	}
}

func TestWorker_HandleDonationTask(t *testing.T) {
	var got DonationTask
	w := &Worker{processor: func(ctx context.Context, task *DonationTask) error {
		got = *task
		return nil
	}}

	payload, _ := json.Marshal(DonationTask{EventID: "evt_9", PaymentIntentID: "pi_9", ProjectID: 4, AmountMinor: 1000})
	if err := w.handleDonationTask(context.Background(), asynq.NewTask(TaskTypeDonation, payload)); err != nil {
		t.Fatalf("handleDonationTask() error = %v", err)
	}
	if got.PaymentIntentID != "pi_9" || got.AmountMinor != 1000 {
		t.Errorf("processor received %+v", got)
	}
}

func TestWorker_HandleMalformedTaskSkipsRetry(t *testing.T) {
	w := &Worker{}
	err := w.handleDonationTask(context.Background(), asynq.NewTask(TaskTypeDonation, []byte("{bad")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("handleDonationTask() error = %v, expected SkipRetry", err)
	}
}
