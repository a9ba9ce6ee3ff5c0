package loan

import (
	"repayment-engine/internal/pkg/money"

	"github.com/google/uuid"
)

// ImpactSummary is the before/after delta of one mutation.
type ImpactSummary struct {
	InstallmentsAdded    int
	InstallmentsRemoved  int
	TotalAmountChange    money.Money
	TermChange           int
	MonthlyPaymentChange money.Money
}

// DiffImpact compares two loan/schedule states. Installments are matched by
// id, so a renumbered installment counts as neither added nor removed.
func DiffImpact(beforeLoan Loan, before Schedule, afterLoan Loan, after Schedule) ImpactSummary {
	seen := make(map[uuid.UUID]struct{}, len(before))
	for _, inst := range before {
		seen[inst.ID] = struct{}{}
	}

	var impact ImpactSummary
	for _, inst := range after {
		if _, ok := seen[inst.ID]; ok {
			delete(seen, inst.ID)
			continue
		}
		impact.InstallmentsAdded++
	}
	impact.InstallmentsRemoved = len(seen)
	impact.TotalAmountChange = after.TotalAmount().Sub(before.TotalAmount())
	impact.TermChange = afterLoan.Term - beforeLoan.Term
	impact.MonthlyPaymentChange = afterLoan.MonthlyPayment.Sub(beforeLoan.MonthlyPayment)
	return impact
}
