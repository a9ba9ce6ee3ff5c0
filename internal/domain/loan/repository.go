package loan

import (
	"context"
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
)

// Repository persists a loan together with its schedule. Save must write both
// or neither, and fail with apperrors.ErrConcurrencyConflict when the stored
// revision no longer equals expectedRevision.
type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan, schedule Schedule) (*Loan, error)

	Load(ctx context.Context, loanID int64) (*Loan, Schedule, error)

	Save(ctx context.Context, loan *Loan, schedule Schedule, expectedRevision int64) error

	ListActiveLoanIDs(ctx context.Context) ([]int64, error)

	// ListUpcomingInstallments returns unpaid installments of open loans due
	// on or between from and to, earliest first.
	ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]UpcomingInstallment, error)
}

// UpcomingInstallment is an installment still owed within a look-ahead window.
type UpcomingInstallment struct {
	LoanID            int64
	LoanPurpose       string
	InstallmentID     uuid.UUID
	InstallmentNumber int
	DueDate           time.Time
	AmountDue         money.Money
	Status            InstallmentStatus
	DaysUntilDue      int
}

// Locker serialises read-modify-write cycles on one loan.
type Locker interface {
	Lock(ctx context.Context, loanID int64) (unlock func(), err error)
}

type ScheduleChangedEvent struct {
	LoanID               int64      `json:"loanId"`
	Operation            string     `json:"operation"`
	Revision             int64      `json:"revision"`
	LoanStatus           LoanStatus `json:"loanStatus"`
	Term                 int        `json:"term"`
	RemainingBalance     string     `json:"remainingBalance"`
	InstallmentsAdded    int        `json:"installmentsAdded"`
	InstallmentsRemoved  int        `json:"installmentsRemoved"`
	TotalAmountChange    string     `json:"totalAmountChange"`
	MonthlyPaymentChange string     `json:"monthlyPaymentChange"`
	OccurredAt           time.Time  `json:"occurredAt"`
}

type EventPublisher interface {
	PublishScheduleChanged(ctx context.Context, event ScheduleChangedEvent) error
}
