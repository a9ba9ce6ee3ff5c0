package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"time"
)

const (
	maxSaveAttempts = 2

	DefaultUpcomingDays = 30
	MaxUpcomingDays     = 365

	opLoanCreated      = "loan_created"
	opOverdueRefreshed = "overdue_refreshed"
)

type ScheduleService interface {
	CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, Schedule, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, Schedule, error)

	Apply(ctx context.Context, loanID int64, req MutationRequest) (*MutationResult, error)

	LateFees(ctx context.Context, loanID int64, asOf time.Time) (*LateFeeAssessment, error)

	RefreshOverdue(ctx context.Context, loanID int64, asOf time.Time) (bool, error)

	ListActiveLoanIDs(ctx context.Context) ([]int64, error)

	UpcomingInstallments(ctx context.Context, asOf time.Time, days int) ([]UpcomingInstallment, error)
}

type scheduleServiceImpl struct {
	repo      Repository
	locker    Locker
	publisher EventPublisher
	validator *Validator
	mutator   *Mutator
	lateFees  *LateFeeCalculator
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*scheduleServiceImpl)

// WithClock replaces time.Now for validation, settlement and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *scheduleServiceImpl) {
		s.now = now
	}
}

func NewScheduleService(repo Repository, locker Locker, publisher EventPublisher, policy Policy, logger *slog.Logger, opts ...Option) ScheduleService {
	s := &scheduleServiceImpl{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "schedule_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(policy, s.now)
	s.mutator = NewMutator(s.now)
	s.lateFees = NewLateFeeCalculator(policy.LateFeeRate)
	return s
}

func (s *scheduleServiceImpl) CreateLoan(ctx context.Context, params NewLoanParams) (*Loan, Schedule, error) {
	s.logger.Info("Creating new loan", "principal", params.Principal.String(), "term", params.Term, "method", params.InterestMethod)
	if err := s.validator.ValidateNewLoan(params); err != nil {
		s.logger.Warn("Rejected loan parameters", "error", err)
		return nil, nil, err
	}

	financed := params.Principal.Sub(params.DownPayment)
	schedule := Generate(GenerateParams{
		Principal:    financed,
		AnnualRate:   params.AnnualRate,
		Term:         params.Term,
		Method:       params.InterestMethod,
		FirstDueDate: params.FirstDueDate,
		Frequency:    params.PaymentFrequency,
	})
	if err := CheckGeneratedSchedule(schedule, financed); err != nil {
		s.logger.Error("Generated schedule failed invariant check", "error", err)
		return nil, nil, err
	}

	now := s.now()
	disbursed := now
	total := schedule.TotalAmount()
	loan := &Loan{
		Principal:        params.Principal,
		DownPayment:      params.DownPayment,
		ProcessingFee:    params.ProcessingFee,
		AnnualRate:       params.AnnualRate,
		Term:             len(schedule),
		MonthlyPayment:   schedule[0].Total,
		TotalAmount:      total,
		RemainingBalance: total,
		Status:           StatusActive,
		Purpose:          params.Purpose,
		InterestMethod:   params.InterestMethod,
		PaymentFrequency: params.PaymentFrequency,
		AppliedAt:        now,
		ApprovedAt:       &now,
		DisbursedAt:      &disbursed,
		Revision:         1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := CheckLoanInvariants(*loan, schedule); err != nil {
		s.logger.Error("New loan failed invariant check", "error", err)
		return nil, nil, err
	}

	created, err := s.repo.CreateLoan(ctx, loan, schedule)
	if err != nil {
		s.logger.Error("Failed to save loan and schedule", "error", err)
		return nil, nil, fmt.Errorf("%w: failed to save loan and schedule: %w", apperrors.ErrInternalServer, err)
	}
	for i := range schedule {
		schedule[i].LoanID = created.ID
	}

	s.publish(ctx, opLoanCreated, created, ImpactSummary{
		InstallmentsAdded: len(schedule),
		TotalAmountChange: total,
		TermChange:        len(schedule),
	})
	s.logger.Info("Loan created successfully", "loanID", created.ID, "installments", len(schedule))
	return created, schedule, nil
}

func (s *scheduleServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, Schedule, error) {
	s.logger.Info("Getting loan details", "loanID", loanID)
	return s.load(ctx, loanID)
}

func (s *scheduleServiceImpl) ListActiveLoanIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListActiveLoanIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list active loans", "error", err)
		return nil, fmt.Errorf("%w: failed to list active loans: %w", apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// UpcomingInstallments lists what open loans owe within days of asOf.
func (s *scheduleServiceImpl) UpcomingInstallments(ctx context.Context, asOf time.Time, days int) ([]UpcomingInstallment, error) {
	if days < 1 || days > MaxUpcomingDays {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Days must be between 1 and %d", MaxUpcomingDays))
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	from := DateOf(asOf)
	to := from.AddDate(0, 0, days)

	upcoming, err := s.repo.ListUpcomingInstallments(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list upcoming installments", "from", from.Format(DateLayout), "to", to.Format(DateLayout), "error", err)
		return nil, fmt.Errorf("%w: failed to list upcoming installments: %w", apperrors.ErrInternalServer, err)
	}
	for i := range upcoming {
		upcoming[i].DaysUntilDue = LateDays(from, upcoming[i].DueDate)
	}
	return upcoming, nil
}

// Apply validates, mutates and persists one schedule operation. A stale
// revision on save triggers one full reload and retry.
func (s *scheduleServiceImpl) Apply(ctx context.Context, loanID int64, req MutationRequest) (result *MutationResult, err error) {
	op := string(req.Kind())
	s.logger.Info("Applying schedule operation", "loanID", loanID, "operation", op)
	defer func() {
		monitoring.RecordMutation(op, outcomeOf(err))
	}()

	if err = s.validator.Validate(req); err != nil {
		s.logger.Warn("Schedule operation rejected by validation", "loanID", loanID, "operation", op, "error", err)
		return nil, err
	}

	result, err = s.readModifyWrite(ctx, loanID, op, func(loan *Loan, schedule Schedule) (*MutationResult, error) {
		return s.mutator.Apply(*loan, schedule, req)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, op, &result.Loan, result.Impact)
	s.logger.Info("Schedule operation applied", "loanID", loanID, "operation", op,
		"installmentsAdded", result.Impact.InstallmentsAdded,
		"installmentsRemoved", result.Impact.InstallmentsRemoved,
		"totalAmountChange", result.Impact.TotalAmountChange.String())
	return result, nil
}

// LateFees assesses fees without persisting anything. Installments already
// past due are treated as overdue even if the sweep has not marked them yet.
func (s *scheduleServiceImpl) LateFees(ctx context.Context, loanID int64, asOf time.Time) (*LateFeeAssessment, error) {
	loan, schedule, err := s.load(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	_, view, _, err := s.mutator.MarkOverdue(*loan, schedule, asOf)
	if err != nil {
		return nil, err
	}
	assessment := s.lateFees.Assess(loan.ID, view, asOf)
	monitoring.RecordLateFees(len(assessment.Fees), assessment.Total.Decimal().InexactFloat64())
	return &assessment, nil
}

// RefreshOverdue persists the overdue transitions due as of asOf and reports
// whether the loan changed.
func (s *scheduleServiceImpl) RefreshOverdue(ctx context.Context, loanID int64, asOf time.Time) (bool, error) {
	result, err := s.readModifyWrite(ctx, loanID, opOverdueRefreshed, func(loan *Loan, schedule Schedule) (*MutationResult, error) {
		if !loan.Status.AcceptsScheduleChanges() {
			return nil, nil
		}
		updated, next, changed, err := s.mutator.MarkOverdue(*loan, schedule, asOf)
		if err != nil || !changed {
			return nil, err
		}
		if err := CheckLoanInvariants(updated, next); err != nil {
			return nil, err
		}
		return &MutationResult{Loan: updated, Schedule: next, Impact: DiffImpact(*loan, schedule, updated, next)}, nil
	})
	if err != nil {
		monitoring.RecordMutation(opOverdueRefreshed, outcomeOf(err))
		return false, err
	}
	if result == nil {
		return false, nil
	}

	monitoring.RecordMutation(opOverdueRefreshed, "success")
	s.publish(ctx, opOverdueRefreshed, &result.Loan, result.Impact)
	return true, nil
}

// readModifyWrite runs fn under the loan lock against a fresh load and saves
// its result with the loaded revision. fn returning a nil result means there
// is nothing to save.
func (s *scheduleServiceImpl) readModifyWrite(ctx context.Context, loanID int64, op string, fn func(*Loan, Schedule) (*MutationResult, error)) (*MutationResult, error) {
	unlock, err := s.locker.Lock(ctx, loanID)
	if err != nil {
		s.logger.Warn("Failed to acquire loan lock", "loanID", loanID, "operation", op, "error", err)
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: could not lock loan %d: %w", apperrors.ErrInternalServer, loanID, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		loan, schedule, err := s.load(ctx, loanID)
		if err != nil {
			return nil, err
		}

		result, err := fn(loan, schedule)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvariantViolation) {
				s.logger.Error("Computed schedule broke an invariant, nothing persisted",
					"loanID", loanID, "operation", op, "revision", loan.Revision, "error", err)
			}
			return nil, err
		}
		if result == nil {
			return nil, nil
		}

		result.Loan.UpdatedAt = s.now()
		err = s.repo.Save(ctx, &result.Loan, result.Schedule, loan.Revision)
		if err == nil {
			result.Loan.Revision = loan.Revision + 1
			return result, nil
		}
		if !errors.Is(err, apperrors.ErrConcurrencyConflict) {
			s.logger.Error("Failed to save schedule", "loanID", loanID, "operation", op, "error", err)
			return nil, fmt.Errorf("%w: failed to save schedule for loan %d: %w", apperrors.ErrInternalServer, loanID, err)
		}

		monitoring.RecordConcurrencyConflict()
		if attempt >= maxSaveAttempts {
			s.logger.Warn("Concurrent modification persisted after retry", "loanID", loanID, "operation", op)
			return nil, err
		}
		s.logger.Warn("Concurrent modification detected, reloading", "loanID", loanID, "operation", op, "revision", loan.Revision)
	}
}

func (s *scheduleServiceImpl) load(ctx context.Context, loanID int64) (*Loan, Schedule, error) {
	loan, schedule, err := s.repo.Load(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Loan not found", "loanID", loanID)
			return nil, nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.Error("Failed to load loan", "loanID", loanID, "error", err)
		return nil, nil, fmt.Errorf("%w: failed to load loan %d: %w", apperrors.ErrInternalServer, loanID, err)
	}
	return loan, schedule, nil
}

// publish never fails the caller: the change is already committed.
func (s *scheduleServiceImpl) publish(ctx context.Context, op string, loan *Loan, impact ImpactSummary) {
	if s.publisher == nil {
		return
	}
	event := ScheduleChangedEvent{
		LoanID:               loan.ID,
		Operation:            op,
		Revision:             loan.Revision,
		LoanStatus:           loan.Status,
		Term:                 loan.Term,
		RemainingBalance:     loan.RemainingBalance.String(),
		InstallmentsAdded:    impact.InstallmentsAdded,
		InstallmentsRemoved:  impact.InstallmentsRemoved,
		TotalAmountChange:    impact.TotalAmountChange.String(),
		MonthlyPaymentChange: impact.MonthlyPaymentChange.String(),
		OccurredAt:           s.now(),
	}
	if err := s.publisher.PublishScheduleChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish schedule event", "loanID", loan.ID, "operation", op, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "failure_validation"
	case errors.Is(err, apperrors.ErrImmutableInstallment):
		return "failure_immutable"
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		return "failure_conflict"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		return "failure_invariant"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrLoanClosed):
		return "failure_closed"
	}
	return "failure_internal"
}
