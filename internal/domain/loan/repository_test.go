package loan

import (
	"context"
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateLoan(ctx context.Context, loan *Loan, schedule Schedule) (*Loan, error) {
	args := m.Called(ctx, loan, schedule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) Load(ctx context.Context, loanID int64) (*Loan, Schedule, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*Loan), args.Get(1).(Schedule), args.Error(2)
}

func (m *MockRepository) Save(ctx context.Context, loan *Loan, schedule Schedule, expectedRevision int64) error {
	args := m.Called(ctx, loan, schedule, expectedRevision)
	return args.Error(0)
}

func (m *MockRepository) ListActiveLoanIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]UpcomingInstallment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UpcomingInstallment), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishScheduleChanged(ctx context.Context, event ScheduleChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) Lock(ctx context.Context, loanID int64) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// memoryRepository mimics the revision-checked store. injectConflicts makes
// the next n saves fail as if another writer had committed first.
type memoryRepository struct {
	mu              sync.Mutex
	nextID          int64
	loans           map[int64]Loan
	schedules       map[int64]Schedule
	saves           int
	injectConflicts int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		nextID:    100,
		loans:     map[int64]Loan{},
		schedules: map[int64]Schedule{},
	}
}

func (r *memoryRepository) CreateLoan(ctx context.Context, loan *Loan, schedule Schedule) (*Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	created := *loan
	created.ID = r.nextID
	stored := schedule.Clone()
	for i := range stored {
		stored[i].LoanID = created.ID
	}
	r.loans[created.ID] = created
	r.schedules[created.ID] = stored
	return &created, nil
}

func (r *memoryRepository) Load(ctx context.Context, loanID int64) (*Loan, Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.loans[loanID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
	}
	return &l, r.schedules[loanID].Clone(), nil
}

func (r *memoryRepository) Save(ctx context.Context, loan *Loan, schedule Schedule, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	stored := r.loans[loan.ID]
	if r.injectConflicts > 0 {
		r.injectConflicts--
		stored.Revision++
		r.loans[loan.ID] = stored
	}
	if stored.Revision != expectedRevision {
		return fmt.Errorf("%w: loan %d is at revision %d", apperrors.ErrConcurrencyConflict, loan.ID, stored.Revision)
	}

	saved := *loan
	saved.Revision = expectedRevision + 1
	r.loans[loan.ID] = saved
	r.schedules[loan.ID] = schedule.Clone()
	return nil
}

func (r *memoryRepository) ListActiveLoanIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []int64
	for id, l := range r.loans {
		if l.Status.AcceptsScheduleChanges() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]UpcomingInstallment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var upcoming []UpcomingInstallment
	for id, l := range r.loans {
		if !l.Status.AcceptsScheduleChanges() {
			continue
		}
		for _, inst := range r.schedules[id] {
			if inst.Status == InstallmentPaid || inst.DueDate.Before(from) || inst.DueDate.After(to) {
				continue
			}
			upcoming = append(upcoming, UpcomingInstallment{
				LoanID:            id,
				LoanPurpose:       l.Purpose,
				InstallmentID:     inst.ID,
				InstallmentNumber: inst.Number,
				DueDate:           inst.DueDate,
				AmountDue:         inst.Total.Sub(inst.PaidAmount),
				Status:            inst.Status,
			})
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		a, b := upcoming[i], upcoming[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.LoanID != b.LoanID {
			return a.LoanID < b.LoanID
		}
		return a.InstallmentNumber < b.InstallmentNumber
	})
	return upcoming, nil
}

func (r *memoryRepository) snapshot(loanID int64) (Loan, Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loans[loanID], r.schedules[loanID].Clone()
}
