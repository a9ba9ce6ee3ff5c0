package loan

import (
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// installmentTransitions is the single transition table every mutation goes
// through. PAID has no outgoing edges. PARTIAL -> PARTIAL records a further
// payment that still leaves the installment short.
var installmentTransitions = map[InstallmentStatus]map[InstallmentStatus]bool{
	InstallmentPending: {InstallmentPaid: true, InstallmentPartial: true, InstallmentOverdue: true},
	InstallmentOverdue: {InstallmentPaid: true, InstallmentPartial: true},
	InstallmentPartial: {InstallmentPaid: true, InstallmentPartial: true},
}

func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentPartial, InstallmentOverdue:
		return true
	}
	return false
}

// Editable reports whether the installment may still be moved or edited.
func (s InstallmentStatus) Editable() bool {
	return s != InstallmentPaid
}

// Deletable reports whether the installment may be removed from a schedule.
func (s InstallmentStatus) Deletable() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

func CanTransition(from, to InstallmentStatus) bool {
	return installmentTransitions[from][to]
}

// transition moves inst to the target status or explains why it cannot.
func transition(inst Installment, to InstallmentStatus, operation string) (Installment, error) {
	if inst.Status == InstallmentPaid {
		return inst, &apperrors.ImmutableInstallmentError{InstallmentID: inst.ID.String(), Operation: operation}
	}
	if !CanTransition(inst.Status, to) {
		return inst, apperrors.NewValidationError(
			fmt.Sprintf("Installment %d cannot move from %s to %s", inst.Number, inst.Status, to))
	}
	inst.Status = to
	return inst, nil
}

// guardEditable rejects any change to a PAID installment.
func guardEditable(inst Installment, operation string) error {
	if !inst.Status.Editable() {
		return &apperrors.ImmutableInstallmentError{InstallmentID: inst.ID.String(), Operation: operation}
	}
	return nil
}
