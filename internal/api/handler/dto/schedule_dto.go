package dto

import (
	"fmt"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dateFields collects every malformed date in a request before reporting.
type dateFields struct {
	violations []string
}

// parse accepts a calendar date or an RFC 3339 timestamp. An empty value
// yields the zero time so the domain validator reports it as missing.
func (d *dateFields) parse(field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(loan.DateLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return loan.DateOf(t)
	}
	d.violations = append(d.violations, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field))
	return time.Time{}
}

func (d *dateFields) parseOptional(field string, value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	t := d.parse(field, *value)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (d *dateFields) err() error {
	if len(d.violations) == 0 {
		return nil
	}
	return apperrors.NewValidationError(d.violations...)
}

type CreateLoanRequest struct {
	Principal        money.Money     `json:"principal"`
	DownPayment      money.Money     `json:"downPayment"`
	ProcessingFee    money.Money     `json:"processingFee"`
	AnnualRate       decimal.Decimal `json:"annualRate"`
	Term             int             `json:"term"`
	Purpose          string          `json:"purpose"`
	InterestMethod   string          `json:"interestMethod"`
	PaymentFrequency string          `json:"paymentFrequency"`
	FirstDueDate     string          `json:"firstDueDate"`
}

// ToParams defaults the interest method to AMORTIZED and the frequency to MONTHLY.
func (r *CreateLoanRequest) ToParams() (loan.NewLoanParams, error) {
	var dates dateFields
	params := loan.NewLoanParams{
		Principal:        r.Principal,
		DownPayment:      r.DownPayment,
		ProcessingFee:    r.ProcessingFee,
		AnnualRate:       r.AnnualRate,
		Term:             r.Term,
		Purpose:          strings.TrimSpace(r.Purpose),
		InterestMethod:   loan.InterestMethod(strings.ToUpper(strings.TrimSpace(r.InterestMethod))),
		PaymentFrequency: loan.PaymentFrequency(strings.ToUpper(strings.TrimSpace(r.PaymentFrequency))),
		FirstDueDate:     dates.parse("firstDueDate", r.FirstDueDate),
	}
	if params.InterestMethod == "" {
		params.InterestMethod = loan.MethodAmortized
	}
	if params.PaymentFrequency == "" {
		params.PaymentFrequency = loan.FrequencyMonthly
	}
	return params, dates.err()
}

type AddInstallmentsRequest struct {
	StartingInstallmentNumber int         `json:"startingInstallmentNumber"`
	NumberOfMonths            int         `json:"numberOfMonths"`
	FirstDueDate              string      `json:"firstDueDate"`
	MonthlyPayment            money.Money `json:"monthlyPayment"`
	Reason                    string      `json:"reason"`
}

func (r *AddInstallmentsRequest) ToMutation() (loan.AddCustomInstallments, error) {
	var dates dateFields
	m := loan.AddCustomInstallments{
		StartingNumber: r.StartingInstallmentNumber,
		NumberOfMonths: r.NumberOfMonths,
		FirstDueDate:   dates.parse("firstDueDate", r.FirstDueDate),
		MonthlyPayment: r.MonthlyPayment,
		Reason:         r.Reason,
	}
	return m, dates.err()
}

type ExtendTermRequest struct {
	AdditionalMonths int    `json:"additionalMonths"`
	Reason           string `json:"reason"`
}

func (r *ExtendTermRequest) ToMutation() loan.ExtendTerm {
	return loan.ExtendTerm{AdditionalMonths: r.AdditionalMonths, Reason: r.Reason}
}

type RegenerateScheduleRequest struct {
	NewMonthlyPayment money.Money `json:"newMonthlyPayment"`
	NewTerm           int         `json:"newTerm"`
	StartDate         string      `json:"startDate"`
	Reason            string      `json:"reason"`
}

func (r *RegenerateScheduleRequest) ToMutation() (loan.RegenerateSchedule, error) {
	var dates dateFields
	m := loan.RegenerateSchedule{
		NewMonthlyPayment: r.NewMonthlyPayment,
		NewTerm:           r.NewTerm,
		StartDate:         dates.parse("startDate", r.StartDate),
		Reason:            r.Reason,
	}
	return m, dates.err()
}

type MarkAsPaidRequest struct {
	Amount      money.Money `json:"amount"`
	Method      string      `json:"method"`
	Reference   string      `json:"reference"`
	PaymentDate string      `json:"paymentDate"`
	Notes       string      `json:"notes"`
}

func (r *MarkAsPaidRequest) ToMutation(installmentID uuid.UUID) (loan.MarkAsPaid, error) {
	var dates dateFields
	m := loan.MarkAsPaid{
		InstallmentID: installmentID,
		Amount:        r.Amount,
		Method:        r.Method,
		Reference:     r.Reference,
		PaymentDate:   dates.parse("paymentDate", r.PaymentDate),
		Notes:         r.Notes,
	}
	return m, dates.err()
}

type UpdateDueDateRequest struct {
	NewDueDate string `json:"newDueDate"`
}

func (r *UpdateDueDateRequest) ToMutation(installmentID uuid.UUID) (loan.UpdateDueDate, error) {
	var dates dateFields
	m := loan.UpdateDueDate{
		InstallmentID: installmentID,
		NewDueDate:    dates.parse("newDueDate", r.NewDueDate),
	}
	return m, dates.err()
}

// UpdateInstallmentRequest edits only the fields that are present. Blank
// dates are treated as absent.
type UpdateInstallmentRequest struct {
	Amount           *money.Money `json:"amount"`
	Status           *string      `json:"status"`
	DueDate          *string      `json:"dueDate"`
	PaidDate         *string      `json:"paidDate"`
	PaymentMethod    *string      `json:"paymentMethod"`
	PaymentReference *string      `json:"paymentReference"`
	Notes            *string      `json:"notes"`
}

func (r *UpdateInstallmentRequest) ToMutation(installmentID uuid.UUID) (loan.UpdateInstallment, error) {
	var dates dateFields
	m := loan.UpdateInstallment{
		InstallmentID:    installmentID,
		Amount:           r.Amount,
		DueDate:          dates.parseOptional("dueDate", r.DueDate),
		PaidDate:         dates.parseOptional("paidDate", r.PaidDate),
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		Notes:            r.Notes,
	}
	if r.Status != nil {
		status := loan.InstallmentStatus(strings.ToUpper(strings.TrimSpace(*r.Status)))
		m.Status = &status
	}
	return m, dates.err()
}

type TokenRequest struct {
	Username string `json:"username"`
}

// Envelope is the body of every schedule endpoint, successful or not.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type ScheduleData struct {
	Loan     *LoanResponse         `json:"loan,omitempty"`
	Schedule []InstallmentResponse `json:"schedule"`
	Impact   *ImpactResponse       `json:"impact,omitempty"`
}

type LoanResponse struct {
	ID               string      `json:"id"`
	Principal        money.Money `json:"principal"`
	DownPayment      money.Money `json:"downPayment"`
	ProcessingFee    money.Money `json:"processingFee"`
	AnnualRate       string      `json:"annualRate"`
	Term             int         `json:"term"`
	MonthlyPayment   money.Money `json:"monthlyPayment"`
	TotalAmount      money.Money `json:"totalAmount"`
	RemainingBalance money.Money `json:"remainingBalance"`
	Status           string      `json:"status"`
	Purpose          string      `json:"purpose,omitempty"`
	InterestMethod   string      `json:"interestMethod"`
	PaymentFrequency string      `json:"paymentFrequency"`
	AppliedAt        time.Time   `json:"appliedAt"`
	ApprovedAt       *time.Time  `json:"approvedAt,omitempty"`
	DisbursedAt      *time.Time  `json:"disbursedAt,omitempty"`
	CompletedAt      *time.Time  `json:"completedAt,omitempty"`
	Revision         int64       `json:"revision"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

type InstallmentResponse struct {
	ID                string      `json:"id"`
	LoanID            string      `json:"loanId"`
	InstallmentNumber int         `json:"installmentNumber"`
	DueDate           string      `json:"dueDate"`
	PrincipalAmount   money.Money `json:"principalAmount"`
	InterestAmount    money.Money `json:"interestAmount"`
	TotalAmount       money.Money `json:"totalAmount"`
	PaidAmount        money.Money `json:"paidAmount"`
	Status            string      `json:"status"`
	PaidAt            *string     `json:"paidAt"`
	PaymentMethod     string      `json:"paymentMethod,omitempty"`
	PaymentReference  string      `json:"paymentReference,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

type ImpactResponse struct {
	InstallmentsAdded    int         `json:"installmentsAdded"`
	InstallmentsRemoved  int         `json:"installmentsRemoved"`
	TotalAmountChange    money.Money `json:"totalAmountChange"`
	TermChange           int         `json:"termChange"`
	MonthlyPaymentChange money.Money `json:"monthlyPaymentChange"`
}

type LateFeeEntryResponse struct {
	InstallmentID     string      `json:"installmentId"`
	InstallmentNumber int         `json:"installmentNumber"`
	DaysLate          int         `json:"daysLate"`
	Fee               money.Money `json:"fee"`
}

type LateFeeResponse struct {
	LoanID string                 `json:"loanId"`
	AsOf   string                 `json:"asOf"`
	Fees   []LateFeeEntryResponse `json:"fees"`
	Total  money.Money            `json:"total"`
}

type UpcomingInstallmentResponse struct {
	LoanID            string      `json:"loanId"`
	LoanPurpose       string      `json:"loanPurpose,omitempty"`
	InstallmentID     string      `json:"installmentId"`
	InstallmentNumber int         `json:"installmentNumber"`
	DueDate           string      `json:"dueDate"`
	Amount            money.Money `json:"amount"`
	Status            string      `json:"status"`
	DaysUntilDue      int         `json:"daysUntilDue"`
}

func NewUpcomingInstallmentsResponse(upcoming []loan.UpcomingInstallment) []UpcomingInstallmentResponse {
	out := make([]UpcomingInstallmentResponse, 0, len(upcoming))
	for _, u := range upcoming {
		out = append(out, UpcomingInstallmentResponse{
			LoanID:            strconv.FormatInt(u.LoanID, 10),
			LoanPurpose:       u.LoanPurpose,
			InstallmentID:     u.InstallmentID.String(),
			InstallmentNumber: u.InstallmentNumber,
			DueDate:           u.DueDate.Format(loan.DateLayout),
			Amount:            u.AmountDue,
			Status:            string(u.Status),
			DaysUntilDue:      u.DaysUntilDue,
		})
	}
	return out
}

func NewLoanResponse(l *loan.Loan) *LoanResponse {
	return &LoanResponse{
		ID:               strconv.FormatInt(l.ID, 10),
		Principal:        l.Principal,
		DownPayment:      l.DownPayment,
		ProcessingFee:    l.ProcessingFee,
		AnnualRate:       l.AnnualRate.String(),
		Term:             l.Term,
		MonthlyPayment:   l.MonthlyPayment,
		TotalAmount:      l.TotalAmount,
		RemainingBalance: l.RemainingBalance,
		Status:           string(l.Status),
		Purpose:          l.Purpose,
		InterestMethod:   string(l.InterestMethod),
		PaymentFrequency: string(l.PaymentFrequency),
		AppliedAt:        l.AppliedAt,
		ApprovedAt:       l.ApprovedAt,
		DisbursedAt:      l.DisbursedAt,
		CompletedAt:      l.CompletedAt,
		Revision:         l.Revision,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

func NewInstallmentResponse(inst loan.Installment) InstallmentResponse {
	resp := InstallmentResponse{
		ID:                inst.ID.String(),
		LoanID:            strconv.FormatInt(inst.LoanID, 10),
		InstallmentNumber: inst.Number,
		DueDate:           inst.DueDate.Format(loan.DateLayout),
		PrincipalAmount:   inst.Principal,
		InterestAmount:    inst.Interest,
		TotalAmount:       inst.Total,
		PaidAmount:        inst.PaidAmount,
		Status:            string(inst.Status),
		PaymentMethod:     inst.PaymentMethod,
		PaymentReference:  inst.PaymentReference,
		Notes:             inst.Notes,
	}
	if inst.PaidDate != nil {
		paidAt := inst.PaidDate.Format(loan.DateLayout)
		resp.PaidAt = &paidAt
	}
	return resp
}

func NewScheduleResponse(s loan.Schedule) []InstallmentResponse {
	out := make([]InstallmentResponse, 0, len(s))
	for _, inst := range s {
		out = append(out, NewInstallmentResponse(inst))
	}
	return out
}

func NewImpactResponse(i loan.ImpactSummary) *ImpactResponse {
	return &ImpactResponse{
		InstallmentsAdded:    i.InstallmentsAdded,
		InstallmentsRemoved:  i.InstallmentsRemoved,
		TotalAmountChange:    i.TotalAmountChange,
		TermChange:           i.TermChange,
		MonthlyPaymentChange: i.MonthlyPaymentChange,
	}
}

func NewLateFeeResponse(a *loan.LateFeeAssessment) LateFeeResponse {
	fees := make([]LateFeeEntryResponse, 0, len(a.Fees))
	for _, f := range a.Fees {
		fees = append(fees, LateFeeEntryResponse{
			InstallmentID:     f.InstallmentID.String(),
			InstallmentNumber: f.Number,
			DaysLate:          f.DaysLate,
			Fee:               f.Fee,
		})
	}
	return LateFeeResponse{
		LoanID: strconv.FormatInt(a.LoanID, 10),
		AsOf:   a.AsOf.Format(loan.DateLayout),
		Fees:   fees,
		Total:  a.Total,
	}
}
