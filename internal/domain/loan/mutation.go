package loan

import (
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
)

type MutationKind string

const (
	KindAddCustom     MutationKind = "add_custom"
	KindExtendTerm    MutationKind = "extend_term"
	KindRegenerate    MutationKind = "regenerate"
	KindMarkAsPaid    MutationKind = "mark_as_paid"
	KindUpdateDueDate MutationKind = "update_due_date"
	KindDelete        MutationKind = "delete_installment"
	KindUpdate        MutationKind = "update_installment"
)

// MutationRequest is one of the schedule operations. The set is closed:
// only types in this package implement it.
type MutationRequest interface {
	Kind() MutationKind
	mutation()
}

type AddCustomInstallments struct {
	StartingNumber int
	NumberOfMonths int
	FirstDueDate   time.Time
	MonthlyPayment money.Money
	Reason         string
}

type ExtendTerm struct {
	AdditionalMonths int
	Reason           string
}

// RegenerateSchedule replaces every unpaid installment.
type RegenerateSchedule struct {
	NewMonthlyPayment money.Money
	NewTerm           int
	StartDate         time.Time
	Reason            string
}

type MarkAsPaid struct {
	InstallmentID uuid.UUID
	Amount        money.Money
	Method        string
	Reference     string
	PaymentDate   time.Time
	Notes         string
}

type UpdateDueDate struct {
	InstallmentID uuid.UUID
	NewDueDate    time.Time
}

type DeleteInstallment struct {
	InstallmentID uuid.UUID
}

// UpdateInstallment edits one unpaid installment in place. Nil fields are
// left as they are. Amount replaces the installment total; Status may only
// move along the installment transition table, and PAID settles whatever is
// still owed.
type UpdateInstallment struct {
	InstallmentID    uuid.UUID
	Amount           *money.Money
	Status           *InstallmentStatus
	DueDate          *time.Time
	PaidDate         *time.Time
	PaymentMethod    *string
	PaymentReference *string
	Notes            *string
}

func (r UpdateInstallment) empty() bool {
	return r.Amount == nil && r.Status == nil && r.DueDate == nil && r.PaidDate == nil &&
		r.PaymentMethod == nil && r.PaymentReference == nil && r.Notes == nil
}

func (AddCustomInstallments) Kind() MutationKind { return KindAddCustom }
func (ExtendTerm) Kind() MutationKind            { return KindExtendTerm }
func (RegenerateSchedule) Kind() MutationKind    { return KindRegenerate }
func (MarkAsPaid) Kind() MutationKind            { return KindMarkAsPaid }
func (UpdateDueDate) Kind() MutationKind         { return KindUpdateDueDate }
func (DeleteInstallment) Kind() MutationKind     { return KindDelete }
func (UpdateInstallment) Kind() MutationKind     { return KindUpdate }

func (AddCustomInstallments) mutation() {}
func (ExtendTerm) mutation()            {}
func (RegenerateSchedule) mutation()    {}
func (MarkAsPaid) mutation()            {}
func (UpdateDueDate) mutation()         {}
func (DeleteInstallment) mutation()     {}
func (UpdateInstallment) mutation()     {}
