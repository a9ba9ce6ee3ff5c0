package loan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLoanParams() NewLoanParams {
	return NewLoanParams{
		Principal:        money.MustParse("12000"),
		AnnualRate:       decimal.NewFromInt(6),
		Term:             12,
		Purpose:          "Home improvement",
		InterestMethod:   MethodAmortized,
		PaymentFrequency: FrequencyMonthly,
		FirstDueDate:     date(2024, time.January, 15),
	}
}

func quietPublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("PublishScheduleChanged", mock.Anything, mock.Anything).Return(nil)
	return p
}

func newTestService(repo Repository, publisher EventPublisher) ScheduleService {
	return NewScheduleService(repo, &mutexLocker{}, publisher, DefaultPolicy(), logger, WithClock(clock))
}

func seedLoan(t *testing.T, svc ScheduleService) (*Loan, Schedule) {
	t.Helper()
	created, schedule, err := svc.CreateLoan(context.Background(), newLoanParams())
	require.NoError(t, err)
	return created, schedule
}

func TestScheduleService_CreateLoan(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &MockPublisher{}
	publisher.On("PublishScheduleChanged", mock.Anything, mock.MatchedBy(func(e ScheduleChangedEvent) bool {
		return e.Operation == "loan_created" && e.InstallmentsAdded == 12
	})).Return(nil).Once()
	svc := newTestService(repo, publisher)

	params := newLoanParams()
	params.DownPayment = money.MustParse("2000")
	created, schedule, err := svc.CreateLoan(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, int64(101), created.ID)
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, 12, created.Term)
	assert.Equal(t, "10000.00", schedule.TotalPrincipal().String())
	assert.True(t, created.RemainingBalance.Equal(schedule.TotalAmount()))
	assert.Equal(t, fixedNow, *created.DisbursedAt)
	for _, inst := range schedule {
		assert.Equal(t, created.ID, inst.LoanID)
	}
	publisher.AssertExpectations(t)
}

func TestScheduleService_CreateLoanValidation(t *testing.T) {
	repo := &MockRepository{}
	svc := newTestService(repo, nil)

	params := newLoanParams()
	params.Term = 0
	_, _, err := svc.CreateLoan(context.Background(), params)

	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	repo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleService_ApplyPersistsAndPublishes(t *testing.T) {
	repo := newMemoryRepository()
	publisher := quietPublisher()
	svc := newTestService(repo, publisher)
	created, _ := seedLoan(t, svc)

	res, err := svc.Apply(context.Background(), created.ID, AddCustomInstallments{
		StartingNumber: 13,
		NumberOfMonths: 3,
		FirstDueDate:   date(2025, time.January, 15),
		MonthlyPayment: money.MustParse("1200"),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Impact.InstallmentsAdded)
	assert.Equal(t, "3600.00", res.Impact.TotalAmountChange.String())
	assert.Equal(t, int64(2), res.Loan.Revision)

	stored, schedule := repo.snapshot(created.ID)
	assert.Len(t, schedule, 15)
	assert.Equal(t, 15, stored.Term)
	assert.Equal(t, int64(2), stored.Revision)
	assert.Equal(t, fixedNow, stored.UpdatedAt)

	publisher.AssertCalled(t, "PublishScheduleChanged", mock.Anything, mock.MatchedBy(func(e ScheduleChangedEvent) bool {
		return e.Operation == string(KindAddCustom) && e.LoanID == created.ID && e.TotalAmountChange == "3600.00"
	}))
}

func TestScheduleService_ApplyValidationNeverTouchesStore(t *testing.T) {
	repo := &MockRepository{}
	svc := newTestService(repo, nil)

	_, err := svc.Apply(context.Background(), 1, MarkAsPaid{})

	require.Error(t, err)
	assert.Len(t, apperrors.Violations(err), 5)
	repo.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestScheduleService_RegenerateRoundTrip(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, quietPublisher())
	created, _ := seedLoan(t, svc)

	_, err := svc.Apply(context.Background(), created.ID, RegenerateSchedule{
		NewMonthlyPayment: money.MustParse("750"),
		NewTerm:           18,
		StartDate:         date(2024, time.August, 1),
	})
	require.NoError(t, err)

	loaded, schedule, err := svc.GetLoan(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, schedule, 18)
	assert.Equal(t, "750.00", loaded.MonthlyPayment.String())
}

func TestScheduleService_DeletePaidLeavesStoreUnchanged(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, quietPublisher())
	created, schedule := seedLoan(t, svc)

	_, err := svc.Apply(context.Background(), created.ID, MarkAsPaid{
		InstallmentID: schedule[0].ID, Amount: schedule[0].Total,
		Method: "CARD", Reference: "TX-1", PaymentDate: date(2024, time.January, 15),
	})
	require.NoError(t, err)
	_, before := repo.snapshot(created.ID)
	savesBefore := repo.saves

	_, err = svc.Apply(context.Background(), created.ID, DeleteInstallment{InstallmentID: schedule[0].ID})

	assert.True(t, errors.Is(err, apperrors.ErrImmutableInstallment))
	_, after := repo.snapshot(created.ID)
	assert.Equal(t, before, after)
	assert.Equal(t, savesBefore, repo.saves)
}

func TestScheduleService_ConflictIsRetriedOnce(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, quietPublisher())
	created, _ := seedLoan(t, svc)

	repo.injectConflicts = 1
	res, err := svc.Apply(context.Background(), created.ID, ExtendTerm{AdditionalMonths: 2})

	require.NoError(t, err)
	assert.Equal(t, 2, repo.saves)
	assert.Equal(t, int64(3), res.Loan.Revision)
	_, schedule := repo.snapshot(created.ID)
	assert.Len(t, schedule, 14)
}

func TestScheduleService_SecondConflictSurfaces(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &MockPublisher{}
	publisher.On("PublishScheduleChanged", mock.Anything, mock.Anything).Return(nil).Once()
	svc := newTestService(repo, publisher)
	created, _ := seedLoan(t, svc)

	repo.injectConflicts = 2
	_, err := svc.Apply(context.Background(), created.ID, ExtendTerm{AdditionalMonths: 2})

	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.Equal(t, 2, repo.saves)
	_, schedule := repo.snapshot(created.ID)
	assert.Len(t, schedule, 12)
	publisher.AssertNumberOfCalls(t, "PublishScheduleChanged", 1)
}

func TestScheduleService_ConcurrentAppliesDoNotLoseUpdates(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, quietPublisher())
	created, _ := seedLoan(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(context.Background(), created.ID, ExtendTerm{AdditionalMonths: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, schedule := repo.snapshot(created.ID)
	assert.Len(t, schedule, 20)
	assert.Equal(t, int64(9), stored.Revision)
	assert.NoError(t, CheckInvariants(schedule))
}

func TestScheduleService_PublishFailureDoesNotFailApply(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &MockPublisher{}
	publisher.On("PublishScheduleChanged", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := newTestService(repo, publisher)
	created, _ := seedLoan(t, svc)

	_, err := svc.Apply(context.Background(), created.ID, ExtendTerm{AdditionalMonths: 1})

	assert.NoError(t, err)
}

func TestScheduleService_NotFound(t *testing.T) {
	svc := newTestService(newMemoryRepository(), nil)

	_, err := svc.Apply(context.Background(), 404, ExtendTerm{AdditionalMonths: 1})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, _, err = svc.GetLoan(context.Background(), 404)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestScheduleService_StoreFailureIsInternal(t *testing.T) {
	l, s := fixture(date(2024, time.January, 15))
	repo := &MockRepository{}
	repo.On("Load", mock.Anything, int64(7)).Return(&l, s, nil)
	repo.On("Save", mock.Anything, mock.Anything, mock.Anything, int64(1)).Return(errors.New("connection reset"))
	svc := newTestService(repo, nil)

	_, err := svc.Apply(context.Background(), 7, ExtendTerm{AdditionalMonths: 1})

	assert.True(t, errors.Is(err, apperrors.ErrInternalServer))
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestScheduleService_LateFeesAreLazy(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, nil)
	created, _ := seedLoan(t, svc)

	assessment, err := svc.LateFees(context.Background(), created.ID, date(2024, time.February, 19))

	require.NoError(t, err)
	require.Len(t, assessment.Fees, 2)
	assert.Equal(t, 35, assessment.Fees[0].DaysLate)
	assert.Equal(t, "103.28", assessment.Fees[0].Fee.String())
	assert.Equal(t, 4, assessment.Fees[1].DaysLate)
	assert.Equal(t, "51.64", assessment.Fees[1].Fee.String())
	assert.Equal(t, "154.92", assessment.Total.String())

	_, schedule := repo.snapshot(created.ID)
	assert.Equal(t, InstallmentPending, schedule[0].Status, "assessment must not persist")
}

func TestScheduleService_RefreshOverdue(t *testing.T) {
	repo := newMemoryRepository()
	publisher := quietPublisher()
	svc := newTestService(repo, publisher)
	created, _ := seedLoan(t, svc)

	changed, err := svc.RefreshOverdue(context.Background(), created.ID, date(2024, time.March, 1))
	require.NoError(t, err)
	assert.True(t, changed)

	stored, schedule := repo.snapshot(created.ID)
	assert.Equal(t, StatusOverdue, stored.Status)
	assert.Equal(t, InstallmentOverdue, schedule[0].Status)
	assert.Equal(t, InstallmentOverdue, schedule[1].Status)
	assert.Equal(t, InstallmentPending, schedule[2].Status)

	changed, err = svc.RefreshOverdue(context.Background(), created.ID, date(2024, time.March, 1))
	require.NoError(t, err)
	assert.False(t, changed)

	ids, err := svc.ListActiveLoanIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, ids)
}

func TestScheduleService_UpcomingInstallments(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, quietPublisher())
	created, schedule := seedLoan(t, svc)

	_, err := svc.Apply(context.Background(), created.ID, MarkAsPaid{
		InstallmentID: schedule[0].ID,
		Amount:        schedule[0].Total,
		Method:        "bank_transfer",
		Reference:     "TRX-0001",
		PaymentDate:   date(2024, time.January, 12),
	})
	require.NoError(t, err)

	upcoming, err := svc.UpcomingInstallments(context.Background(), date(2024, time.January, 10), 40)

	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, created.ID, upcoming[0].LoanID)
	assert.Equal(t, "Home improvement", upcoming[0].LoanPurpose)
	assert.Equal(t, 2, upcoming[0].InstallmentNumber)
	assert.Equal(t, schedule[1].ID, upcoming[0].InstallmentID)
	assert.Equal(t, schedule[1].Total, upcoming[0].AmountDue)
	assert.Equal(t, 36, upcoming[0].DaysUntilDue)
}

func TestScheduleService_UpcomingInstallmentsDaysBounds(t *testing.T) {
	repo := &MockRepository{}
	svc := newTestService(repo, nil)

	for _, days := range []int{0, -3, MaxUpcomingDays + 1} {
		_, err := svc.UpcomingInstallments(context.Background(), fixedNow, days)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), "days=%d", days)
	}
	repo.AssertNotCalled(t, "ListUpcomingInstallments", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleService_UpcomingInstallmentsDefaultsToNow(t *testing.T) {
	repo := &MockRepository{}
	from := DateOf(fixedNow)
	to := from.AddDate(0, 0, DefaultUpcomingDays)
	repo.On("ListUpcomingInstallments", mock.Anything, from, to).Return([]UpcomingInstallment{
		{LoanID: 3, InstallmentNumber: 4, DueDate: from.AddDate(0, 0, 11)},
	}, nil)
	svc := newTestService(repo, nil)

	upcoming, err := svc.UpcomingInstallments(context.Background(), time.Time{}, DefaultUpcomingDays)

	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, 11, upcoming[0].DaysUntilDue)
	repo.AssertExpectations(t)
}

func TestScheduleService_UpcomingInstallmentsStoreFailure(t *testing.T) {
	repo := &MockRepository{}
	repo.On("ListUpcomingInstallments", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := newTestService(repo, nil)

	_, err := svc.UpcomingInstallments(context.Background(), fixedNow, 7)

	assert.True(t, errors.Is(err, apperrors.ErrInternalServer))
}
