package loan

import (
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MutationResult is the complete outcome of one schedule operation.
type MutationResult struct {
	Loan     Loan
	Schedule Schedule
	Impact   ImpactSummary
}

// Mutator applies schedule operations as pure functions: the input loan and
// schedule are never modified, and a result is only returned once every
// post-condition holds.
type Mutator struct {
	now func() time.Time
}

func NewMutator(now func() time.Time) *Mutator {
	if now == nil {
		now = time.Now
	}
	return &Mutator{now: now}
}

// outcome is what a single operation hands to settle.
type outcome struct {
	schedule       Schedule
	paid           money.Money
	monthlyPayment *money.Money
	settledAt      time.Time
}

func (m *Mutator) Apply(l Loan, s Schedule, req MutationRequest) (*MutationResult, error) {
	if !l.Status.AcceptsScheduleChanges() {
		return nil, fmt.Errorf("%w: loan %d is %s", apperrors.ErrLoanClosed, l.ID, l.Status)
	}

	before := s.Clone()
	var (
		out outcome
		err error
	)
	switch r := req.(type) {
	case AddCustomInstallments:
		out, err = m.addCustom(l, before, r)
	case ExtendTerm:
		out, err = m.extend(l, before, r)
	case RegenerateSchedule:
		out, err = m.regenerate(l, before, r)
	case MarkAsPaid:
		out, err = m.markAsPaid(before, r)
	case UpdateDueDate:
		out, err = m.updateDueDate(before, r)
	case DeleteInstallment:
		out, err = m.delete(before, r)
	case UpdateInstallment:
		out, err = m.updateInstallment(before, r)
	default:
		return nil, fmt.Errorf("%w: unsupported operation %T", apperrors.ErrInvalidArgument, req)
	}
	if err != nil {
		return nil, err
	}
	if out.settledAt.IsZero() {
		out.settledAt = m.now()
	}

	next := out.schedule
	for i := range next {
		next[i].LoanID = l.ID
	}
	updated := settle(l, before, next, out)

	if err := CheckInvariants(next); err != nil {
		return nil, err
	}
	if err := checkPaidUntouched(before, next); err != nil {
		return nil, err
	}
	if err := CheckLoanInvariants(updated, next); err != nil {
		return nil, err
	}

	return &MutationResult{
		Loan:     updated,
		Schedule: next,
		Impact:   DiffImpact(l, before, updated, next),
	}, nil
}

func (m *Mutator) addCustom(l Loan, s Schedule, r AddCustomInstallments) (outcome, error) {
	if r.StartingNumber < 1 || r.NumberOfMonths < 1 {
		return outcome{}, apperrors.NewValidationError("Starting installment number and number of months must be greater than 0")
	}
	if r.StartingNumber > len(s)+1 {
		return outcome{}, apperrors.NewValidationError(fmt.Sprintf(
			"Starting installment number %d is beyond the end of the schedule (%d installments)", r.StartingNumber, len(s)))
	}
	if r.StartingNumber <= s.PaidPrefix() {
		return outcome{}, &apperrors.ImmutableInstallmentError{
			InstallmentID: s[r.StartingNumber-1].ID.String(),
			Operation:     "insert before",
		}
	}

	added := GenerateFixedPayment(FixedPaymentParams{
		Payment:      r.MonthlyPayment,
		Balance:      l.RemainingBalance,
		AnnualRate:   l.AnnualRate,
		Count:        r.NumberOfMonths,
		Method:       l.InterestMethod,
		FirstDueDate: r.FirstDueDate,
		Frequency:    l.PaymentFrequency,
		StartNumber:  r.StartingNumber,
	})

	at := r.StartingNumber - 1
	if at > 0 && !added[0].DueDate.After(s[at-1].DueDate) {
		return outcome{}, apperrors.NewValidationError(fmt.Sprintf(
			"First due date must be after installment %d due %s", s[at-1].Number, s[at-1].DueDate.Format(DateLayout)))
	}
	if last := added[len(added)-1]; at < len(s) && !s[at].DueDate.After(last.DueDate) {
		return outcome{}, apperrors.NewValidationError(fmt.Sprintf(
			"Inserted installments must fall before installment %d due %s", s[at].Number, s[at].DueDate.Format(DateLayout)))
	}

	next := make(Schedule, 0, len(s)+len(added))
	next = append(next, s[:at]...)
	next = append(next, added...)
	next = append(next, s[at:]...)
	return outcome{schedule: next.renumbered()}, nil
}

func (m *Mutator) extend(l Loan, s Schedule, r ExtendTerm) (outcome, error) {
	last, ok := s.Last()
	if !ok {
		return outcome{}, apperrors.NewValidationError("Schedule has no installments to extend; regenerate it instead")
	}

	payment := l.MonthlyPayment
	if !payment.IsPositive() {
		payment = last.Total
	}

	anchor, offset := continuation(s, l.PaymentFrequency)
	added := GenerateFixedPayment(FixedPaymentParams{
		Payment:      payment,
		Balance:      l.RemainingBalance,
		AnnualRate:   l.AnnualRate,
		Count:        r.AdditionalMonths,
		Method:       l.InterestMethod,
		FirstDueDate: anchor,
		Frequency:    l.PaymentFrequency,
		StartNumber:  len(s) + 1,
		PeriodOffset: offset,
	})

	next := make(Schedule, 0, len(s)+len(added))
	next = append(next, s...)
	next = append(next, added...)
	return outcome{schedule: next}, nil
}

// continuation picks the anchor date and period offset for installments
// appended after s. The schedule's own day-of-month anchor is kept when it
// lands right after the last installment, so a run clamped into February
// returns to the 31st afterwards.
func continuation(s Schedule, freq PaymentFrequency) (time.Time, int) {
	last := s[len(s)-1]
	step := freq.DueDate(last.DueDate, 1)
	if candidate := freq.DueDate(s[0].DueDate, len(s)); candidate.After(last.DueDate) && !candidate.After(step.AddDate(0, 0, 3)) {
		return s[0].DueDate, len(s)
	}
	return step, 0
}

func (m *Mutator) regenerate(l Loan, s Schedule, r RegenerateSchedule) (outcome, error) {
	retained := make(Schedule, 0, len(s))
	for _, inst := range s {
		if inst.Status == InstallmentPaid || inst.Status == InstallmentPartial {
			retained = append(retained, inst)
		}
	}

	start := DateOf(r.StartDate)
	if last, ok := retained.Last(); ok && !start.After(last.DueDate) {
		return outcome{}, apperrors.NewValidationError(fmt.Sprintf(
			"Start date must be after installment %d due %s", last.Number, last.DueDate.Format(DateLayout)))
	}

	added := GenerateFixedPayment(FixedPaymentParams{
		Payment:      r.NewMonthlyPayment,
		Balance:      l.RemainingBalance,
		AnnualRate:   l.AnnualRate,
		Count:        r.NewTerm,
		Method:       l.InterestMethod,
		FirstDueDate: start,
		Frequency:    l.PaymentFrequency,
		StartNumber:  len(retained) + 1,
	})

	next := append(retained, added...)
	payment := r.NewMonthlyPayment
	return outcome{schedule: next.renumbered(), monthlyPayment: &payment}, nil
}

func (m *Mutator) markAsPaid(s Schedule, r MarkAsPaid) (outcome, error) {
	idx, err := find(s, r.InstallmentID)
	if err != nil {
		return outcome{}, err
	}

	inst := s[idx]
	paidSoFar := inst.PaidAmount.Add(r.Amount)
	target := InstallmentPartial
	if !paidSoFar.LessThan(inst.Total) {
		target = InstallmentPaid
	}
	inst, err = transition(inst, target, "mark as paid")
	if err != nil {
		return outcome{}, err
	}

	paidDate := DateOf(r.PaymentDate)
	inst.PaidAmount = paidSoFar
	inst.PaidDate = &paidDate
	inst.PaymentMethod = r.Method
	inst.PaymentReference = r.Reference
	if r.Notes != "" {
		inst.Notes = r.Notes
	}

	next := s.Clone()
	next[idx] = inst
	return outcome{schedule: next, paid: r.Amount, settledAt: r.PaymentDate}, nil
}

func (m *Mutator) updateDueDate(s Schedule, r UpdateDueDate) (outcome, error) {
	idx, err := find(s, r.InstallmentID)
	if err != nil {
		return outcome{}, err
	}
	if err := guardEditable(s[idx], "move the due date of"); err != nil {
		return outcome{}, err
	}

	due := DateOf(r.NewDueDate)
	if violations := dueDateViolations(s, idx, due, "New due date"); len(violations) > 0 {
		return outcome{}, apperrors.NewValidationError(violations...)
	}

	next := s.Clone()
	next[idx].DueDate = due
	return outcome{schedule: next}, nil
}

// dueDateViolations keeps due dates strictly increasing around position idx.
func dueDateViolations(s Schedule, idx int, due time.Time, label string) []string {
	var violations []string
	if idx > 0 && !due.After(s[idx-1].DueDate) {
		violations = append(violations, fmt.Sprintf("%s must be after installment %d due %s",
			label, s[idx-1].Number, s[idx-1].DueDate.Format(DateLayout)))
	}
	if idx < len(s)-1 && !s[idx+1].DueDate.After(due) {
		violations = append(violations, fmt.Sprintf("%s must be before installment %d due %s",
			label, s[idx+1].Number, s[idx+1].DueDate.Format(DateLayout)))
	}
	return violations
}

func (m *Mutator) updateInstallment(s Schedule, r UpdateInstallment) (outcome, error) {
	idx, err := find(s, r.InstallmentID)
	if err != nil {
		return outcome{}, err
	}
	inst := s[idx]
	if err := guardEditable(inst, "edit"); err != nil {
		return outcome{}, err
	}

	var violations []string
	if r.DueDate != nil {
		due := DateOf(*r.DueDate)
		violations = append(violations, dueDateViolations(s, idx, due, "Due date")...)
		inst.DueDate = due
	}
	if r.Amount != nil {
		amount := *r.Amount
		if amount.LessThan(inst.PaidAmount) {
			violations = append(violations, fmt.Sprintf("Amount cannot be less than the %s already paid", inst.PaidAmount))
		} else {
			inst.Interest = money.Min(inst.Interest, amount)
			inst.Principal = amount.Sub(inst.Interest)
			inst.Total = amount
		}
	}
	target := inst.Status
	if r.Status != nil {
		target = *r.Status
	}
	if target == InstallmentPartial && inst.Status != InstallmentPartial {
		violations = append(violations, "Partial payments must be recorded with the pay operation")
	}
	if r.PaidDate != nil && target != InstallmentPaid && target != InstallmentPartial {
		violations = append(violations, "Paid date can only be set on a paid or partially paid installment")
	}
	if len(violations) > 0 {
		return outcome{}, apperrors.NewValidationError(violations...)
	}

	if r.PaymentMethod != nil {
		inst.PaymentMethod = strings.TrimSpace(*r.PaymentMethod)
	}
	if r.PaymentReference != nil {
		inst.PaymentReference = strings.TrimSpace(*r.PaymentReference)
	}
	if r.Notes != nil {
		inst.Notes = *r.Notes
	}
	if r.PaidDate != nil {
		paidDate := DateOf(*r.PaidDate)
		inst.PaidDate = &paidDate
	}

	// A partial installment whose total was lowered to what has been paid is settled.
	if target == InstallmentPartial && !inst.PaidAmount.LessThan(inst.Total) {
		target = InstallmentPaid
	}

	out := outcome{}
	if target != inst.Status {
		if inst, err = transition(inst, target, "edit"); err != nil {
			return outcome{}, err
		}
	}
	if inst.Status == InstallmentPaid {
		out.paid = inst.Total.Sub(inst.PaidAmount)
		inst.PaidAmount = inst.Total
		if inst.PaidDate == nil {
			paidDate := DateOf(m.now())
			inst.PaidDate = &paidDate
		}
		out.settledAt = *inst.PaidDate
	}

	next := s.Clone()
	next[idx] = inst
	out.schedule = next
	return out, nil
}

func (m *Mutator) delete(s Schedule, r DeleteInstallment) (outcome, error) {
	idx, err := find(s, r.InstallmentID)
	if err != nil {
		return outcome{}, err
	}
	inst := s[idx]
	if err := guardEditable(inst, "delete"); err != nil {
		return outcome{}, err
	}
	if !inst.Status.Deletable() {
		return outcome{}, apperrors.NewValidationError(fmt.Sprintf(
			"Installment %d is %s and cannot be deleted", inst.Number, inst.Status))
	}

	next := make(Schedule, 0, len(s)-1)
	next = append(next, s[:idx]...)
	next = append(next, s[idx+1:]...)
	return outcome{schedule: next.renumbered()}, nil
}

// MarkOverdue moves every PENDING installment due before asOf to OVERDUE and
// resyncs the loan status. It reports whether anything changed.
func (m *Mutator) MarkOverdue(l Loan, s Schedule, asOf time.Time) (Loan, Schedule, bool, error) {
	today := DateOf(asOf)
	next := s.Clone()
	changed := false
	for i, inst := range next {
		if inst.Status != InstallmentPending || !inst.DueDate.Before(today) {
			continue
		}
		moved, err := transition(inst, InstallmentOverdue, "mark overdue")
		if err != nil {
			return l, s, false, err
		}
		next[i] = moved
		changed = true
	}

	if l.Status.AcceptsScheduleChanges() {
		status := StatusActive
		if next.HasOverdue() {
			status = StatusOverdue
		}
		if status != l.Status {
			l.Status = status
			changed = true
		}
	}
	return l, next, changed, nil
}

func find(s Schedule, id uuid.UUID) (int, error) {
	idx, ok := s.Find(id)
	if !ok {
		return -1, fmt.Errorf("%w: installment %s", apperrors.ErrNotFound, id)
	}
	return idx, nil
}

// settle brings the loan bookkeeping in line with a new schedule. The
// remaining balance moves with the schedule total and drops by any payment.
func settle(l Loan, before, after Schedule, out outcome) Loan {
	l.Term = len(after)
	l.TotalAmount = after.TotalAmount()
	if out.monthlyPayment != nil {
		l.MonthlyPayment = *out.monthlyPayment
	}

	remaining := l.RemainingBalance.Add(l.TotalAmount.Sub(before.TotalAmount())).Sub(out.paid)
	l.RemainingBalance = money.Min(money.Max(remaining, money.Zero), l.TotalAmount)

	switch {
	case l.RemainingBalance.IsZero():
		l.Status = StatusClosed
		completed := out.settledAt
		l.CompletedAt = &completed
	case after.HasOverdue():
		l.Status = StatusOverdue
	default:
		l.Status = StatusActive
	}
	return l
}
