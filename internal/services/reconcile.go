package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	// reconcileTimeout bounds a single reconciliation run.
	reconcileTimeout = 10 * time.Minute
	reconcileLock    = "stats_reconcile"
)

// ReconcileStore is what the reconciler needs from storage.
type ReconcileStore interface {
	storage.StatsStore
	storage.Locker
}

// StatsReconciler periodically rebuilds every donor's stats from donation
// history, repairing any row that drifted from the ledger.
// Scheduled runs take a lease first, so with several instances only one
// does the work.
type StatsReconciler struct {
	store         ReconcileStore
	cfg           *config.ReconcileConfig
	holder        string
	cronScheduler *cron.Cron
}

func NewStatsReconciler(store ReconcileStore, cfg *config.ReconcileConfig) *StatsReconciler {
	host, _ := os.Hostname()
	return &StatsReconciler{
		store:  store,
		cfg:    cfg,
		holder: fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

// StartScheduler registers the reconcile job. It is a no-op when disabled.
func (r *StatsReconciler) StartScheduler() error {
	if !r.cfg.Enabled {
		logger.Infof("[Reconcile] Scheduler disabled")
		return nil
	}

	r.cronScheduler = cron.New()
	if _, err := r.cronScheduler.AddFunc(r.cfg.Cron, func() {
		if _, err := r.RunScheduled(context.Background()); err != nil {
			logger.Errorf("[Reconcile] Run failed: %v", err)
		}
	}); err != nil {
		return err
	}
	r.cronScheduler.Start()
	logger.Infof("[Reconcile] Scheduler started (cron: %s)", r.cfg.Cron)
	return nil
}

func (r *StatsReconciler) StopScheduler() {
	if r.cronScheduler != nil {
		<-r.cronScheduler.Stop().Done()
	}
}

// Run performs one reconciliation pass and returns the number of donors
// whose stats were rewritten.
func (r *StatsReconciler) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	start := time.Now()
	n, err := r.store.RecomputeUserStats(ctx)
	metrics.RecordReconcile(err == nil)
	if err != nil {
		return n, err
	}
	logger.Info().Int("donors", n).Dur("took", time.Since(start)).Msg("[Reconcile] user stats rebuilt")
	return n, nil
}

// RunScheduled runs a pass only if this instance wins the lease. It reports
// whether a pass ran.
func (r *StatsReconciler) RunScheduled(ctx context.Context) (bool, error) {
	ok, err := r.store.TryLock(ctx, reconcileLock, r.holder, reconcileTimeout)
	if err != nil {
		return false, fmt.Errorf("acquire %s lock: %w", reconcileLock, err)
	}
	if !ok {
		logger.Infof("[Reconcile] Another instance holds the lock, skipping")
		return false, nil
	}
	defer func() {
		if err := r.store.Unlock(context.Background(), reconcileLock, r.holder); err != nil {
			logger.Warn().Err(err).Msg("[Reconcile] failed to release lock")
		}
	}()

	_, err = r.Run(ctx)
	return err == nil, err
}
