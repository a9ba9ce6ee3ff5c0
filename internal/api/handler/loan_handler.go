package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/pkg/apperrors"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type LoanHandler struct {
	service loan.ScheduleService
	now     func() time.Time
	logger  *slog.Logger
}

func NewLoanHandler(s loan.ScheduleService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		now:     time.Now,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"success":false,"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, "An unexpected error occurred."
	var errs []string

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status, message, errs = http.StatusBadRequest, "Validation failed", apperrors.Violations(err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status, message, errs = http.StatusBadRequest, "Invalid request", []string{err.Error()}
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrImmutableInstallment):
		status, message, errs = http.StatusConflict, "Paid installments cannot be modified", []string{err.Error()}
	case errors.Is(err, apperrors.ErrLoanClosed):
		status, message, errs = http.StatusConflict, "Loan does not accept schedule changes", []string{err.Error()}
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		status, message = http.StatusConflict, "The loan was modified concurrently, please retry"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		status, message = http.StatusUnprocessableEntity, "The change would produce an invalid schedule"
		slog.Default().Error("Schedule invariant violated", "error", err)
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.Envelope{Success: false, Message: message, Errors: errs})
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("%w: loanID not found in URL path", apperrors.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid loan ID %q", apperrors.ErrInvalidArgument, idStr)
	}
	return id, nil
}

func getInstallmentIDFromURL(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "installmentID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid installment ID %q", apperrors.ErrInvalidArgument, idStr)
	}
	return id, nil
}

func scheduleEnvelope(message string, l *loan.Loan, s loan.Schedule, impact *loan.ImpactSummary) dto.Envelope {
	data := dto.ScheduleData{
		Loan:     dto.NewLoanResponse(l),
		Schedule: dto.NewScheduleResponse(s),
	}
	if impact != nil {
		data.Impact = dto.NewImpactResponse(*impact)
	}
	return dto.Envelope{Success: true, Message: message, Data: data}
}

// CreateLoan creates and disburses a loan with its generated schedule.
//
// @Summary Create a new loan
// @Description Creates an ACTIVE loan and generates its repayment schedule using the requested interest method.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.Envelope "Loan successfully created"
// @Failure 400 {object} dto.Envelope "Invalid request payload or validation error"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	params, err := req.ToParams()
	if err != nil {
		respondError(w, err)
		return
	}

	created, schedule, err := h.service.CreateLoan(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	h.logger.Info("Loan created", "loanID", created.ID, "term", created.Term)
	respondJSON(w, http.StatusCreated, scheduleEnvelope("Loan created successfully", created, schedule, nil))
}

// GetLoan retrieves a loan together with its repayment schedule.
//
// @Summary Retrieve loan details
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.Envelope "Loan and schedule"
// @Failure 400 {object} dto.Envelope "Invalid loan ID"
// @Failure 404 {object} dto.Envelope "Loan not found"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	l, schedule, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, scheduleEnvelope("Loan retrieved successfully", l, schedule, nil))
}

// GetLateFees assesses late fees for every overdue installment. Nothing is persisted.
//
// @Summary Assess late fees
// @Description Computes the late fee of each overdue installment as of the given date (default today).
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param asOf query string false "Assessment date (YYYY-MM-DD)"
// @Success 200 {object} dto.Envelope "Late fee assessment"
// @Failure 400 {object} dto.Envelope "Invalid loan ID or date"
// @Failure 404 {object} dto.Envelope "Loan not found"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/late-fees [get]
// @Security BearerAuth
func (h *LoanHandler) GetLateFees(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	asOf := loan.DateOf(h.now())
	if raw := strings.TrimSpace(r.URL.Query().Get("asOf")); raw != "" {
		asOf, err = time.Parse(loan.DateLayout, raw)
		if err != nil {
			respondError(w, apperrors.NewValidationError("asOf must be a date in YYYY-MM-DD format"))
			return
		}
	}

	assessment, err := h.service.LateFees(r.Context(), loanID, asOf)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Late fees assessed successfully",
		Data:    dto.NewLateFeeResponse(assessment),
	})
}

// GetUpcomingInstallments lists unpaid installments of open loans falling due
// within the next days (default 30).
//
// @Summary List upcoming installments
// @Tags Loans
// @Produce json
// @Param days query int false "Window in days (1-365, default 30)"
// @Success 200 {object} dto.Envelope "Upcoming installments"
// @Failure 400 {object} dto.Envelope "Invalid days"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/upcoming [get]
// @Security BearerAuth
func (h *LoanHandler) GetUpcomingInstallments(w http.ResponseWriter, r *http.Request) {
	days := loan.DefaultUpcomingDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, fmt.Errorf("%w: days must be an integer", apperrors.ErrInvalidArgument))
			return
		}
		days = parsed
	}

	upcoming, err := h.service.UpcomingInstallments(r.Context(), h.now(), days)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.Envelope{
		Success: true,
		Message: "Upcoming installments retrieved successfully",
		Data:    dto.NewUpcomingInstallmentsResponse(upcoming),
	})
}
