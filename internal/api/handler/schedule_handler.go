package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/pkg/apperrors"
)

// ScheduleHandler exposes the schedule mutations. Every response carries
// the resulting schedule and the impact of the change.
type ScheduleHandler struct {
	service loan.ScheduleService
	logger  *slog.Logger
}

func NewScheduleHandler(s loan.ScheduleService, l *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: s,
		logger:  l.With("component", "ScheduleHandler"),
	}
}

func (h *ScheduleHandler) apply(w http.ResponseWriter, r *http.Request, loanID int64, req loan.MutationRequest, status int, message string) {
	res, err := h.service.Apply(r.Context(), loanID, req)
	if err != nil {
		h.logger.Warn("Schedule change rejected", "loanID", loanID, "operation", req.Kind(), "error", err)
		respondError(w, err)
		return
	}

	h.logger.Info("Schedule changed", "loanID", loanID, "operation", req.Kind(), "revision", res.Loan.Revision)
	respondJSON(w, status, scheduleEnvelope(message, &res.Loan, res.Schedule, &res.Impact))
}

// AddInstallments appends custom installments to the schedule.
//
// @Summary Add custom installments
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.AddInstallmentsRequest true "Installments to add"
// @Success 201 {object} dto.Envelope "Installments added"
// @Failure 400 {object} dto.Envelope "Validation error"
// @Failure 404 {object} dto.Envelope "Loan not found"
// @Failure 409 {object} dto.Envelope "Loan closed or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/installments [post]
// @Security BearerAuth
func (h *ScheduleHandler) AddInstallments(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.AddInstallmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	m, err := req.ToMutation()
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, m, http.StatusCreated, "Payment schedules added successfully")
}

// ExtendTerm appends installments after the current last one.
//
// @Summary Extend the loan term
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ExtendTermRequest true "Additional months"
// @Success 200 {object} dto.Envelope "Term extended"
// @Failure 400 {object} dto.Envelope "Validation error"
// @Failure 404 {object} dto.Envelope "Loan not found"
// @Failure 409 {object} dto.Envelope "Loan closed or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/extend [post]
// @Security BearerAuth
func (h *ScheduleHandler) ExtendTerm(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.ExtendTermRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	h.apply(w, r, loanID, req.ToMutation(), http.StatusOK, "Loan term extended successfully")
}

// RegenerateSchedule replaces every unpaid installment with a new level plan.
//
// @Summary Regenerate the unpaid schedule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.RegenerateScheduleRequest true "New payment plan"
// @Success 200 {object} dto.Envelope "Schedule regenerated"
// @Failure 400 {object} dto.Envelope "Validation error"
// @Failure 404 {object} dto.Envelope "Loan not found"
// @Failure 409 {object} dto.Envelope "Loan closed or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/regenerate [post]
// @Security BearerAuth
func (h *ScheduleHandler) RegenerateSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.RegenerateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	m, err := req.ToMutation()
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, m, http.StatusOK, "Payment schedule regenerated successfully")
}

// MarkAsPaid records a payment against one installment.
//
// @Summary Mark an installment as paid
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param installmentID path string true "Installment ID"
// @Param request body dto.MarkAsPaidRequest true "Payment details"
// @Success 200 {object} dto.Envelope "Payment recorded"
// @Failure 400 {object} dto.Envelope "Validation error"
// @Failure 404 {object} dto.Envelope "Loan or installment not found"
// @Failure 409 {object} dto.Envelope "Installment already paid or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/{installmentID}/pay [post]
// @Security BearerAuth
func (h *ScheduleHandler) MarkAsPaid(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	installmentID, err := getInstallmentIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.MarkAsPaidRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	m, err := req.ToMutation(installmentID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, m, http.StatusOK, "Installment marked as paid")
}

// UpdateDueDate moves the due date of one unpaid installment.
//
// @Summary Update an installment due date
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param installmentID path string true "Installment ID"
// @Param request body dto.UpdateDueDateRequest true "New due date"
// @Success 200 {object} dto.Envelope "Due date updated"
// @Failure 400 {object} dto.Envelope "Validation error or due date not between its neighbours"
// @Failure 404 {object} dto.Envelope "Loan or installment not found"
// @Failure 409 {object} dto.Envelope "Installment already paid or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/{installmentID}/due-date [put]
// @Security BearerAuth
func (h *ScheduleHandler) UpdateDueDate(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	installmentID, err := getInstallmentIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.UpdateDueDateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	m, err := req.ToMutation(installmentID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, m, http.StatusOK, "Due date updated successfully")
}

// UpdateInstallment edits the fields present in the request on one unpaid
// installment.
//
// @Summary Update an installment
// @Description Edits amount, status, due date, paid date, payment method, reference or notes. Absent fields are left unchanged.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param installmentID path string true "Installment ID"
// @Param request body dto.UpdateInstallmentRequest true "Fields to change"
// @Success 200 {object} dto.Envelope "Installment updated"
// @Failure 400 {object} dto.Envelope "Validation error"
// @Failure 404 {object} dto.Envelope "Loan or installment not found"
// @Failure 409 {object} dto.Envelope "Installment already paid or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/{installmentID} [put]
// @Security BearerAuth
func (h *ScheduleHandler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	installmentID, err := getInstallmentIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req dto.UpdateInstallmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	m, err := req.ToMutation(installmentID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, m, http.StatusOK, "Payment schedule updated successfully")
}

// DeleteInstallment removes one unpaid installment and renumbers the rest.
//
// @Summary Delete an installment
// @Tags Schedule
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param installmentID path string true "Installment ID"
// @Success 200 {object} dto.Envelope "Installment deleted"
// @Failure 400 {object} dto.Envelope "Invalid ID"
// @Failure 404 {object} dto.Envelope "Loan or installment not found"
// @Failure 409 {object} dto.Envelope "Installment already paid or concurrent modification"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /loans/{loanID}/schedule/{installmentID} [delete]
// @Security BearerAuth
func (h *ScheduleHandler) DeleteInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}
	installmentID, err := getInstallmentIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	h.apply(w, r, loanID, loan.DeleteInstallment{InstallmentID: installmentID}, http.StatusOK, "Installment deleted successfully")
}
