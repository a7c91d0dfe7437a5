package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/wallet_ledger/internal/core/ports/services"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// runTimeout bounds a single scheduled reconciliation.
const runTimeout = 10 * time.Minute

// ReconcileJob returns a cron job that runs one reconciliation pass.
func ReconcileJob(svc portssvc.ReconciliationSvc, logger *slog.Logger) cron.Job {
	return cron.FuncJob(func() {
		runLogger := logger.With(slog.String("run_id", uuid.NewString()))
		ctx, cancel := context.WithTimeout(middleware.WithLogger(context.Background(), runLogger), runTimeout)
		defer cancel()

		report, err := svc.Reconcile(ctx)
		if err != nil {
			runLogger.Error("Scheduled reconciliation failed", slog.String("error", err.Error()))
			return
		}
		if !report.Consistent() {
			runLogger.Error("Scheduled reconciliation found mismatches", slog.Int("mismatches", len(report.Mismatches)))
		}
	})
}

// StartReconciliation schedules ReconcileJob on schedule (standard five-field cron
// or a descriptor such as "@every 5m") and starts the scheduler. Overlapping
// runs are skipped. The caller must Stop the returned scheduler.
func StartReconciliation(schedule string, svc portssvc.ReconciliationSvc, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddJob(schedule, ReconcileJob(svc, logger)); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.Info("Reconciliation scheduled", slog.String("schedule", schedule))
	return c, nil
}
