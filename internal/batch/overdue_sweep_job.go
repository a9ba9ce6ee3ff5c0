package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"sync"
	"sync/atomic"
	"time"
)

// OverdueSweepJob persists PENDING to OVERDUE transitions for every open
// loan. Late-fee assessments mark lapsed installments overdue in memory, but
// GetLoan returns stored statuses, so installment and loan OVERDUE status only
// becomes visible on reads once the sweep has run.
type OverdueSweepJob struct {
	service loan.ScheduleService
	workers int
	now     func() time.Time
	logger  *slog.Logger
}

func NewOverdueSweepJob(service loan.ScheduleService, workers int, logger *slog.Logger) *OverdueSweepJob {
	if service == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	if workers < 1 {
		workers = 1
	}
	return &OverdueSweepJob{
		service: service,
		workers: workers,
		now:     time.Now,
		logger:  logger.With("job", "OverdueSweep"),
	}
}

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	asOf := j.now()
	j.logger.InfoContext(ctx, "Starting overdue sweep job.", slog.Time("as_of", asOf))

	loanIDs, err := j.service.ListActiveLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting job.", slog.Any("error", err))
		monitoring.RecordOverdueSweep("failed", 0)
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(loanIDs)))

	var (
		wg                          sync.WaitGroup
		processed, refreshed, fails atomic.Int32
		ids                         = make(chan int64)
	)

	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loanID := range ids {
				logCtx := j.logger.With(slog.Int64("loanID", loanID))
				changed, err := j.service.RefreshOverdue(ctx, loanID, asOf)
				switch {
				case errors.Is(err, apperrors.ErrNotFound):
					logCtx.WarnContext(ctx, "Loan disappeared before it could be swept", slog.Any("error", err))
				case err != nil:
					logCtx.ErrorContext(ctx, "Failed to refresh overdue state", slog.Any("error", err))
					fails.Add(1)
				case changed:
					logCtx.DebugContext(ctx, "Overdue state refreshed.")
					refreshed.Add(1)
				}
				processed.Add(1)
			}
		}()
	}

feed:
	for _, id := range loanIDs {
		select {
		case ids <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(ids)
	wg.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total_active_loans", len(loanIDs)),
		slog.Int("loans_processed", int(processed.Load())),
		slog.Int("loans_refreshed", int(refreshed.Load())),
		slog.Int("errors_encountered", int(fails.Load())),
	)

	if ctx.Err() != nil {
		summaryLog.WarnContext(ctx, "Overdue sweep job interrupted.", slog.Any("error", ctx.Err()))
		monitoring.RecordOverdueSweep("interrupted", int(refreshed.Load()))
		return fmt.Errorf("overdue sweep interrupted: %w", ctx.Err())
	}
	if n := fails.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Overdue sweep job finished with errors.")
		monitoring.RecordOverdueSweep("partial", int(refreshed.Load()))
		return fmt.Errorf("job completed with %d errors", n)
	}
	summaryLog.InfoContext(ctx, "Overdue sweep job finished successfully.")
	monitoring.RecordOverdueSweep("success", int(refreshed.Load()))
	return nil
}
