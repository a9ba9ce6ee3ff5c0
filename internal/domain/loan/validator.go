package loan

import (
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateScale is the number of decimal places an annual rate is stored with.
const RateScale = 4

// Policy holds the business bounds that are configuration, not law.
type Policy struct {
	LateFeeRate       decimal.Decimal
	MaxMonthlyPayment money.Money
	MaxPrincipal      money.Money
	MinTermMonths     int
	MaxTermMonths     int
}

func DefaultPolicy() Policy {
	return Policy{
		LateFeeRate:       decimal.RequireFromString("0.05"),
		MaxMonthlyPayment: money.MustParse("50000"),
		MaxPrincipal:      money.MustParse("10000000"),
		MinTermMonths:     1,
		MaxTermMonths:     60,
	}
}

// Validator checks request shape before anything touches a schedule. It
// reports every violation, not just the first.
type Validator struct {
	policy Policy
	now    func() time.Time
}

func NewValidator(policy Policy, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{policy: policy, now: now}
}

func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate dispatches on the request type and returns a *apperrors.ValidationError
// when anything is wrong.
func (v *Validator) Validate(req MutationRequest) error {
	var violations []string
	switch r := req.(type) {
	case AddCustomInstallments:
		violations = v.AddCustom(r)
	case ExtendTerm:
		violations = v.Extend(r)
	case RegenerateSchedule:
		violations = v.Regenerate(r)
	case MarkAsPaid:
		violations = v.MarkAsPaid(r)
	case UpdateDueDate:
		violations = v.UpdateDueDate(r)
	case DeleteInstallment:
		violations = v.Delete(r)
	case UpdateInstallment:
		violations = v.UpdateInstallment(r)
	default:
		violations = []string{fmt.Sprintf("Unsupported operation %T", req)}
	}
	if len(violations) > 0 {
		return apperrors.NewValidationError(violations...)
	}
	return nil
}

func (v *Validator) AddCustom(r AddCustomInstallments) []string {
	var errs []string
	if r.StartingNumber < 1 {
		errs = append(errs, "Starting installment number must be greater than 0")
	}
	if !v.termInBounds(r.NumberOfMonths) {
		errs = append(errs, fmt.Sprintf("Number of months must be between %d and %d", v.policy.MinTermMonths, v.policy.MaxTermMonths))
	}
	if r.FirstDueDate.IsZero() {
		errs = append(errs, "First due date is required")
	} else if !v.inFuture(r.FirstDueDate) {
		errs = append(errs, "First due date must be in the future")
	}
	errs = append(errs, v.checkPayment("Monthly payment", r.MonthlyPayment)...)
	return errs
}

func (v *Validator) Extend(r ExtendTerm) []string {
	if !v.termInBounds(r.AdditionalMonths) {
		return []string{fmt.Sprintf("Additional months must be between %d and %d", v.policy.MinTermMonths, v.policy.MaxTermMonths)}
	}
	return nil
}

func (v *Validator) Regenerate(r RegenerateSchedule) []string {
	errs := v.checkPayment("New monthly payment", r.NewMonthlyPayment)
	if !v.termInBounds(r.NewTerm) {
		errs = append(errs, fmt.Sprintf("New term must be between %d and %d months", v.policy.MinTermMonths, v.policy.MaxTermMonths))
	}
	if r.StartDate.IsZero() {
		errs = append(errs, "Start date is required")
	} else if !v.inFuture(r.StartDate) {
		errs = append(errs, "Start date must be in the future")
	}
	return errs
}

func (v *Validator) MarkAsPaid(r MarkAsPaid) []string {
	var errs []string
	if r.InstallmentID == uuid.Nil {
		errs = append(errs, "Installment id is required")
	}
	errs = append(errs, v.checkPayment("Payment amount", r.Amount)...)
	if strings.TrimSpace(r.Method) == "" {
		errs = append(errs, "Payment method is required")
	}
	if strings.TrimSpace(r.Reference) == "" {
		errs = append(errs, "Payment reference is required")
	}
	if r.PaymentDate.IsZero() {
		errs = append(errs, "Payment date is required")
	} else if DateOf(r.PaymentDate).After(v.today()) {
		errs = append(errs, "Payment date cannot be in the future")
	}
	return errs
}

func (v *Validator) UpdateDueDate(r UpdateDueDate) []string {
	var errs []string
	if r.InstallmentID == uuid.Nil {
		errs = append(errs, "Installment id is required")
	}
	if r.NewDueDate.IsZero() {
		errs = append(errs, "New due date is required")
	}
	return errs
}

func (v *Validator) Delete(r DeleteInstallment) []string {
	if r.InstallmentID == uuid.Nil {
		return []string{"Installment id is required"}
	}
	return nil
}

func (v *Validator) UpdateInstallment(r UpdateInstallment) []string {
	var errs []string
	if r.InstallmentID == uuid.Nil {
		errs = append(errs, "Installment id is required")
	}
	if r.empty() {
		return append(errs, "At least one field must be provided")
	}
	if r.Amount != nil {
		errs = append(errs, v.checkPayment("Amount", *r.Amount)...)
	}
	if r.DueDate != nil && r.DueDate.IsZero() {
		errs = append(errs, "Due date must be a valid date")
	}
	if r.PaidDate != nil {
		if r.PaidDate.IsZero() {
			errs = append(errs, "Paid date must be a valid date")
		} else if DateOf(*r.PaidDate).After(v.today()) {
			errs = append(errs, "Paid date cannot be in the future")
		}
	}
	if r.Status != nil {
		if !r.Status.Valid() {
			errs = append(errs, fmt.Sprintf("Status %q is not supported", *r.Status))
		} else if *r.Status == InstallmentPaid && (r.PaidDate == nil || r.PaymentMethod == nil || strings.TrimSpace(*r.PaymentMethod) == "") {
			errs = append(errs, "Paid date and payment method are required when marking as paid")
		}
	}
	return errs
}

// NewLoanParams describes a loan at disbursement.
type NewLoanParams struct {
	Principal        money.Money
	DownPayment      money.Money
	ProcessingFee    money.Money
	AnnualRate       decimal.Decimal
	Term             int
	Purpose          string
	InterestMethod   InterestMethod
	PaymentFrequency PaymentFrequency
	FirstDueDate     time.Time
}

func (v *Validator) NewLoan(p NewLoanParams) []string {
	var errs []string
	if !p.Principal.IsPositive() {
		errs = append(errs, "Principal must be greater than 0")
	} else if p.Principal.GreaterThan(v.policy.MaxPrincipal) {
		errs = append(errs, fmt.Sprintf("Principal cannot exceed %s", v.policy.MaxPrincipal))
	}
	if p.DownPayment.IsNegative() {
		errs = append(errs, "Down payment cannot be negative")
	} else if p.Principal.IsPositive() && !p.DownPayment.LessThan(p.Principal) {
		errs = append(errs, "Down payment must be less than the principal")
	}
	if p.ProcessingFee.IsNegative() {
		errs = append(errs, "Processing fee cannot be negative")
	} else if p.ProcessingFee.GreaterThan(v.policy.MaxPrincipal) {
		errs = append(errs, fmt.Sprintf("Processing fee cannot exceed %s", v.policy.MaxPrincipal))
	}
	if !p.AnnualRate.IsPositive() {
		errs = append(errs, "Interest rate must be greater than 0")
	} else if !p.AnnualRate.Equal(p.AnnualRate.Round(RateScale)) {
		errs = append(errs, fmt.Sprintf("Interest rate cannot have more than %d decimal places", RateScale))
	}
	if !v.termInBounds(p.Term) {
		errs = append(errs, fmt.Sprintf("Term must be between %d and %d months", v.policy.MinTermMonths, v.policy.MaxTermMonths))
	}
	if !p.InterestMethod.Valid() {
		errs = append(errs, fmt.Sprintf("Interest method %q is not supported", p.InterestMethod))
	}
	if !p.PaymentFrequency.Valid() {
		errs = append(errs, fmt.Sprintf("Payment frequency %q is not supported", p.PaymentFrequency))
	}
	if p.FirstDueDate.IsZero() {
		errs = append(errs, "First due date is required")
	}
	return errs
}

// ValidateNewLoan is NewLoan wrapped as an error.
func (v *Validator) ValidateNewLoan(p NewLoanParams) error {
	if errs := v.NewLoan(p); len(errs) > 0 {
		return apperrors.NewValidationError(errs...)
	}
	return nil
}

func (v *Validator) checkPayment(label string, amount money.Money) []string {
	var errs []string
	if !amount.IsPositive() {
		errs = append(errs, label+" must be greater than 0")
	}
	if amount.GreaterThan(v.policy.MaxMonthlyPayment) {
		errs = append(errs, fmt.Sprintf("%s cannot exceed %s", label, v.policy.MaxMonthlyPayment))
	}
	return errs
}

func (v *Validator) termInBounds(months int) bool {
	return months >= v.policy.MinTermMonths && months <= v.policy.MaxTermMonths
}

func (v *Validator) today() time.Time {
	return DateOf(v.now())
}

func (v *Validator) inFuture(t time.Time) bool {
	return DateOf(t).After(v.today())
}
