package loan

import (
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"

	"github.com/google/uuid"
)

const (
	RuleContiguousNumbers   = "contiguous-numbers"
	RuleIncreasingDueDates  = "increasing-due-dates"
	RuleSplitSumsToTotal    = "principal-plus-interest"
	RuleNonNegativeSplit    = "non-negative-split"
	RuleKnownStatus         = "known-status"
	RulePrincipalFinanced   = "principal-equals-financed"
	RulePaidImmutable       = "paid-immutable"
	RuleBalanceBounds       = "balance-bounds"
	RuleClosedIffZero       = "closed-iff-zero-balance"
	RuleTermMatchesSchedule = "term-matches-schedule"
)

func violation(rule, format string, args ...any) error {
	return &apperrors.InvariantViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

// CheckInvariants verifies the structural post-conditions every schedule must
// satisfy after any operation.
func CheckInvariants(s Schedule) error {
	for i, inst := range s {
		if inst.Number != i+1 {
			return violation(RuleContiguousNumbers, "position %d holds installment %d", i+1, inst.Number)
		}
		if i > 0 && !inst.DueDate.After(s[i-1].DueDate) {
			return violation(RuleIncreasingDueDates, "installment %d due %s is not after %s",
				inst.Number, inst.DueDate.Format(DateLayout), s[i-1].DueDate.Format(DateLayout))
		}
		if !inst.Principal.Add(inst.Interest).Equal(inst.Total) {
			return violation(RuleSplitSumsToTotal, "installment %d: %s + %s != %s",
				inst.Number, inst.Principal, inst.Interest, inst.Total)
		}
		if inst.Principal.IsNegative() || inst.Interest.IsNegative() {
			return violation(RuleNonNegativeSplit, "installment %d has a negative portion", inst.Number)
		}
		if !inst.Status.Valid() {
			return violation(RuleKnownStatus, "installment %d has status %q", inst.Number, inst.Status)
		}
	}
	return nil
}

// CheckGeneratedSchedule adds the creation-time rule that principal portions
// sum exactly to the financed amount.
func CheckGeneratedSchedule(s Schedule, financed money.Money) error {
	if err := CheckInvariants(s); err != nil {
		return err
	}
	if sum := s.TotalPrincipal(); !sum.Equal(financed) {
		return violation(RulePrincipalFinanced, "principal sums to %s, financed amount is %s", sum, financed)
	}
	return nil
}

// CheckLoanInvariants verifies the loan bookkeeping against its schedule.
func CheckLoanInvariants(l Loan, s Schedule) error {
	if l.Term != len(s) {
		return violation(RuleTermMatchesSchedule, "term %d, schedule has %d installments", l.Term, len(s))
	}
	if l.RemainingBalance.IsNegative() || l.RemainingBalance.GreaterThan(l.TotalAmount) {
		return violation(RuleBalanceBounds, "remaining %s outside [0, %s]", l.RemainingBalance, l.TotalAmount)
	}
	if l.RemainingBalance.IsZero() != l.Status.IsClosed() {
		return violation(RuleClosedIffZero, "remaining %s with status %s", l.RemainingBalance, l.Status)
	}
	return nil
}

// checkPaidUntouched verifies every PAID installment of before survives in
// after with only its number possibly changed.
func checkPaidUntouched(before, after Schedule) error {
	index := make(map[uuid.UUID]Installment, len(after))
	for _, inst := range after {
		index[inst.ID] = inst
	}
	for _, old := range before {
		if old.Status != InstallmentPaid {
			continue
		}
		cur, ok := index[old.ID]
		if !ok {
			return violation(RulePaidImmutable, "paid installment %s was removed", old.ID)
		}
		cur.Number = old.Number
		if !samePaidInstallment(old, cur) {
			return violation(RulePaidImmutable, "paid installment %s was modified", old.ID)
		}
	}
	return nil
}

func samePaidInstallment(a, b Installment) bool {
	if (a.PaidDate == nil) != (b.PaidDate == nil) {
		return false
	}
	if a.PaidDate != nil && !a.PaidDate.Equal(*b.PaidDate) {
		return false
	}
	return a.Number == b.Number &&
		a.DueDate.Equal(b.DueDate) &&
		a.Principal.Equal(b.Principal) &&
		a.Interest.Equal(b.Interest) &&
		a.Total.Equal(b.Total) &&
		a.PaidAmount.Equal(b.PaidAmount) &&
		a.Status == b.Status &&
		a.PaymentMethod == b.PaymentMethod &&
		a.PaymentReference == b.PaymentReference &&
		a.Notes == b.Notes
}
