package loan

import (
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusPending  LoanStatus = "PENDING"
	StatusApproved LoanStatus = "APPROVED"
	StatusActive   LoanStatus = "ACTIVE"
	StatusOverdue  LoanStatus = "OVERDUE"
	StatusClosed   LoanStatus = "CLOSED"
	StatusRejected LoanStatus = "REJECTED"
)

// IsClosed reports the terminal status in which the balance is zero.
func (s LoanStatus) IsClosed() bool {
	return s == StatusClosed
}

// AcceptsScheduleChanges is true only for disbursed, still-open loans.
func (s LoanStatus) AcceptsScheduleChanges() bool {
	return s == StatusActive || s == StatusOverdue
}

type InterestMethod string

const (
	MethodFlatRate  InterestMethod = "FLAT_RATE"
	MethodAmortized InterestMethod = "AMORTIZED"
)

func (m InterestMethod) Valid() bool {
	return m == MethodFlatRate || m == MethodAmortized
}

type PaymentFrequency string

const (
	FrequencyMonthly   PaymentFrequency = "MONTHLY"
	FrequencyBiweekly  PaymentFrequency = "BIWEEKLY"
	FrequencyWeekly    PaymentFrequency = "WEEKLY"
	FrequencyQuarterly PaymentFrequency = "QUARTERLY"
)

func (f PaymentFrequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyBiweekly, FrequencyWeekly, FrequencyQuarterly:
		return true
	}
	return false
}

// PeriodsPerYear is the divisor that turns an annual rate into a periodic one.
func (f PaymentFrequency) PeriodsPerYear() int64 {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyQuarterly:
		return 4
	default:
		return 12
	}
}

// DueDate returns the due date `period` periods after first. Month based
// frequencies keep first's day-of-month and clamp to the last day of shorter
// months, so a schedule anchored on the 31st lands on Feb 28/29, Mar 31, Apr 30.
func (f PaymentFrequency) DueDate(first time.Time, period int) time.Time {
	first = DateOf(first)
	switch f {
	case FrequencyWeekly:
		return first.AddDate(0, 0, 7*period)
	case FrequencyBiweekly:
		return first.AddDate(0, 0, 14*period)
	case FrequencyQuarterly:
		return addMonthsClamped(first, 3*period)
	default:
		return addMonthsClamped(first, period)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysInMonth(target); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// DateOf strips the clock and location, keeping the calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Loan struct {
	ID               int64
	Principal        money.Money
	DownPayment      money.Money
	ProcessingFee    money.Money
	AnnualRate       decimal.Decimal // percent, 6 means 6%
	Term             int
	MonthlyPayment   money.Money
	TotalAmount      money.Money
	RemainingBalance money.Money
	Status           LoanStatus
	Purpose          string
	InterestMethod   InterestMethod
	PaymentFrequency PaymentFrequency
	AppliedAt        time.Time
	ApprovedAt       *time.Time
	DisbursedAt      *time.Time
	CompletedAt      *time.Time
	Revision         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FinancedAmount is principal minus down payment: the amount actually amortized.
func (l Loan) FinancedAmount() money.Money {
	return l.Principal.Sub(l.DownPayment)
}

type Installment struct {
	ID               uuid.UUID
	LoanID           int64
	Number           int
	DueDate          time.Time
	Principal        money.Money
	Interest         money.Money
	Total            money.Money
	PaidAmount       money.Money
	Status           InstallmentStatus
	PaidDate         *time.Time
	PaymentMethod    string
	PaymentReference string
	Notes            string
}

// Schedule is an ordered installment sequence. It is treated as an immutable
// value: operations build and return a new slice.
type Schedule []Installment

func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	for i, inst := range s {
		if inst.PaidDate != nil {
			d := *inst.PaidDate
			inst.PaidDate = &d
		}
		out[i] = inst
	}
	return out
}

// Find returns the index of the installment with the given id.
func (s Schedule) Find(id uuid.UUID) (int, bool) {
	for i := range s {
		if s[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s Schedule) Last() (Installment, bool) {
	if len(s) == 0 {
		return Installment{}, false
	}
	return s[len(s)-1], true
}

func (s Schedule) TotalAmount() money.Money {
	total := money.Zero
	for _, inst := range s {
		total = total.Add(inst.Total)
	}
	return total
}

func (s Schedule) TotalPrincipal() money.Money {
	total := money.Zero
	for _, inst := range s {
		total = total.Add(inst.Principal)
	}
	return total
}

func (s Schedule) TotalInterest() money.Money {
	total := money.Zero
	for _, inst := range s {
		total = total.Add(inst.Interest)
	}
	return total
}

// PaidPrefix counts the leading run of PAID installments.
func (s Schedule) PaidPrefix() int {
	n := 0
	for _, inst := range s {
		if inst.Status != InstallmentPaid {
			break
		}
		n++
	}
	return n
}

func (s Schedule) HasOverdue() bool {
	for _, inst := range s {
		if inst.Status == InstallmentOverdue {
			return true
		}
	}
	return false
}

// renumbered returns a copy with numbers reassigned 1..n in slice order.
func (s Schedule) renumbered() Schedule {
	out := s.Clone()
	for i := range out {
		out[i].Number = i + 1
	}
	return out
}
