package loan

import (
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const lateFeeBlockDays = 30

// LateFeeCalculator charges a flat rate of the installment total for every
// started 30-day block past due. Blocks do not compound on each other and no
// daily accrual happens inside a block; both are policy, not finance.
type LateFeeCalculator struct {
	rate decimal.Decimal
}

func NewLateFeeCalculator(rate decimal.Decimal) *LateFeeCalculator {
	return &LateFeeCalculator{rate: rate}
}

// LateDays is the whole-day distance from the due date to asOf.
func LateDays(due, asOf time.Time) int {
	return int(DateOf(asOf).Sub(DateOf(due)).Hours() / 24)
}

// LateFee is zero unless the installment is OVERDUE and asOf is past its due date.
func (c *LateFeeCalculator) LateFee(inst Installment, asOf time.Time) money.Money {
	if inst.Status != InstallmentOverdue {
		return money.Zero
	}
	days := LateDays(inst.DueDate, asOf)
	if days <= 0 {
		return money.Zero
	}
	blocks := int64((days + lateFeeBlockDays - 1) / lateFeeBlockDays)
	return inst.Total.Mul(c.rate.Mul(decimal.NewFromInt(blocks)))
}

type InstallmentLateFee struct {
	InstallmentID uuid.UUID
	Number        int
	DaysLate      int
	Fee           money.Money
}

type LateFeeAssessment struct {
	LoanID int64
	AsOf   time.Time
	Fees   []InstallmentLateFee
	Total  money.Money
}

// Assess computes the fee of every overdue installment in s.
func (c *LateFeeCalculator) Assess(loanID int64, s Schedule, asOf time.Time) LateFeeAssessment {
	assessment := LateFeeAssessment{LoanID: loanID, AsOf: DateOf(asOf), Fees: []InstallmentLateFee{}, Total: money.Zero}
	for _, inst := range s {
		fee := c.LateFee(inst, asOf)
		if fee.IsZero() {
			continue
		}
		assessment.Fees = append(assessment.Fees, InstallmentLateFee{
			InstallmentID: inst.ID,
			Number:        inst.Number,
			DaysLate:      LateDays(inst.DueDate, asOf),
			Fee:           fee,
		})
		assessment.Total = assessment.Total.Add(fee)
	}
	return assessment
}
