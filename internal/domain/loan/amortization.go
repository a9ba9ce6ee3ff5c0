package loan

import (
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ratePrecision = 30

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// GenerateParams describes a fresh schedule. Inputs are assumed validated:
// Term >= 1 and a positive Principal.
type GenerateParams struct {
	Principal    money.Money
	AnnualRate   decimal.Decimal // percent
	Term         int
	Method       InterestMethod
	FirstDueDate time.Time
	Frequency    PaymentFrequency
}

// FixedPaymentParams describes installments whose total is a given level
// payment, split against an outstanding balance.
type FixedPaymentParams struct {
	Payment      money.Money
	Balance      money.Money
	AnnualRate   decimal.Decimal
	Count        int
	Method       InterestMethod
	FirstDueDate time.Time
	Frequency    PaymentFrequency
	StartNumber  int
	// PeriodOffset shifts due dates: installment i falls PeriodOffset+i
	// periods after FirstDueDate.
	PeriodOffset int
}

// periodInterest is balance x annualRate / (100 x periods per year), rounded once.
func periodInterest(balance money.Money, annualRate decimal.Decimal, freq PaymentFrequency) money.Money {
	return balance.MulFrac(annualRate, hundred.Mul(decimal.NewFromInt(freq.PeriodsPerYear())))
}

// LevelPayment is the amortized payment P*r / (1 - (1+r)^-n), rounded half-up.
func LevelPayment(principal money.Money, annualRate decimal.Decimal, term int, freq PaymentFrequency) money.Money {
	if term < 1 {
		return money.Zero
	}
	if annualRate.IsZero() {
		return principal.DivInt(int64(term))
	}
	r := annualRate.DivRound(hundred.Mul(decimal.NewFromInt(freq.PeriodsPerYear())), ratePrecision)
	onePlusR := one.Add(r)
	growth := one
	for i := 0; i < term; i++ {
		growth = growth.Mul(onePlusR).Round(ratePrecision)
	}
	factor := r.Mul(growth).DivRound(growth.Sub(one), ratePrecision)
	return principal.Mul(factor)
}

// FlatTotalInterest is principal x rate/100 x term/periodsPerYear, rounded once.
func FlatTotalInterest(principal money.Money, annualRate decimal.Decimal, term int, freq PaymentFrequency) money.Money {
	num := annualRate.Mul(decimal.NewFromInt(int64(term)))
	den := hundred.Mul(decimal.NewFromInt(freq.PeriodsPerYear()))
	return principal.MulFrac(num, den)
}

// Generate produces a complete schedule numbered from 1. The final
// installment absorbs every rounding remainder: amortized schedules sum
// exactly to the principal, flat-rate schedules to both the principal and
// the precise total interest.
func Generate(p GenerateParams) Schedule {
	if p.Term < 1 {
		return Schedule{}
	}
	if p.Method == MethodFlatRate {
		return generateFlat(p)
	}
	return generateAmortized(p)
}

func generateAmortized(p GenerateParams) Schedule {
	payment := LevelPayment(p.Principal, p.AnnualRate, p.Term, p.Frequency)
	schedule := make(Schedule, 0, p.Term)
	balance := p.Principal

	for n := 1; n <= p.Term; n++ {
		interest := periodInterest(balance, p.AnnualRate, p.Frequency)
		principal := payment.Sub(interest)
		if n == p.Term || principal.GreaterThan(balance) {
			principal = balance
		}
		if principal.IsNegative() {
			principal = money.Zero
		}
		balance = balance.Sub(principal)
		schedule = append(schedule, newInstallment(n, p.Frequency.DueDate(p.FirstDueDate, n-1), principal, interest))
	}
	return schedule
}

func generateFlat(p GenerateParams) Schedule {
	totalInterest := FlatTotalInterest(p.Principal, p.AnnualRate, p.Term, p.Frequency)
	term := int64(p.Term)
	// Shares are floored so the final installment's remainder is never negative.
	perInterest := totalInterest.DivFloor(term)
	perPrincipal := p.Principal.DivFloor(term)

	schedule := make(Schedule, 0, p.Term)
	for n := 1; n <= p.Term; n++ {
		principal, interest := perPrincipal, perInterest
		if n == p.Term {
			principal = p.Principal.Sub(perPrincipal.MulInt(term - 1))
			interest = totalInterest.Sub(perInterest.MulInt(term - 1))
		}
		schedule = append(schedule, newInstallment(n, p.Frequency.DueDate(p.FirstDueDate, n-1), principal, interest))
	}
	return schedule
}

// GenerateFixedPayment builds Count installments, each totalling exactly
// Payment. Amortized interest runs on the declining balance; flat-rate
// interest is fixed from the starting balance. Interest never exceeds the
// payment.
func GenerateFixedPayment(p FixedPaymentParams) Schedule {
	if p.Count < 1 {
		return Schedule{}
	}
	start := p.StartNumber
	if start < 1 {
		start = 1
	}

	flatInterest := money.Min(periodInterest(money.Max(p.Balance, money.Zero), p.AnnualRate, p.Frequency), p.Payment)
	balance := money.Max(p.Balance, money.Zero)

	schedule := make(Schedule, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		interest := flatInterest
		if p.Method == MethodAmortized {
			interest = money.Min(periodInterest(balance, p.AnnualRate, p.Frequency), p.Payment)
		}
		principal := p.Payment.Sub(interest)
		balance = money.Max(balance.Sub(principal), money.Zero)
		schedule = append(schedule, newInstallment(start+i, p.Frequency.DueDate(p.FirstDueDate, p.PeriodOffset+i), principal, interest))
	}
	return schedule
}

func newInstallment(number int, due time.Time, principal, interest money.Money) Installment {
	return Installment{
		ID:         uuid.New(),
		Number:     number,
		DueDate:    DateOf(due),
		Principal:  principal,
		Interest:   interest,
		Total:      principal.Add(interest),
		PaidAmount: money.Zero,
		Status:     InstallmentPending,
	}
}
