package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/infrastructure/monitoring"
	"repayment-engine/internal/pkg/apperrors"
	"repayment-engine/internal/pkg/money"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ loan.Repository = (*LoanRepository)(nil)

var errMsgFormat = "%w: %w"

const (
	insertLoanSQL = `
        INSERT INTO loans (principal, down_payment, processing_fee, annual_rate, term, monthly_payment,
            total_amount, remaining_balance, status, purpose, interest_method, payment_frequency,
            applied_at, approved_at, disbursed_at, revision, created_at, updated_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        RETURNING id`

	selectLoanSQL = `
        SELECT id, principal, down_payment, processing_fee, annual_rate::text, term, monthly_payment,
            total_amount, remaining_balance, status, purpose, interest_method, payment_frequency,
            applied_at, approved_at, disbursed_at, completed_at, revision, created_at, updated_at
        FROM loans
        WHERE id = $1`

	selectScheduleSQL = `
        SELECT id::text, loan_id, installment_number, due_date, principal_amount, interest_amount,
            total_amount, paid_amount, status, paid_date, payment_method, payment_reference, notes
        FROM repayment_schedule
        WHERE loan_id = $1
        ORDER BY installment_number`

	updateLoanSQL = `
        UPDATE loans
        SET term = $2, monthly_payment = $3, total_amount = $4, remaining_balance = $5, status = $6,
            completed_at = $7, updated_at = $8, revision = revision + 1
        WHERE id = $1 AND revision = $9`

	deleteMissingInstallmentsSQL = `
        DELETE FROM repayment_schedule
        WHERE loan_id = $1 AND NOT (id = ANY($2::uuid[]))`

	upsertInstallmentSQL = `
        INSERT INTO repayment_schedule (id, loan_id, installment_number, due_date, principal_amount,
            interest_amount, total_amount, paid_amount, status, paid_date, payment_method, payment_reference, notes)
        VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (id) DO UPDATE
        SET installment_number = EXCLUDED.installment_number,
            due_date = EXCLUDED.due_date,
            principal_amount = EXCLUDED.principal_amount,
            interest_amount = EXCLUDED.interest_amount,
            total_amount = EXCLUDED.total_amount,
            paid_amount = EXCLUDED.paid_amount,
            status = EXCLUDED.status,
            paid_date = EXCLUDED.paid_date,
            payment_method = EXCLUDED.payment_method,
            payment_reference = EXCLUDED.payment_reference,
            notes = EXCLUDED.notes`

	selectActiveLoanIDsSQL = `
        SELECT id FROM loans
        WHERE status IN ('ACTIVE', 'OVERDUE')
        ORDER BY id`

	selectUpcomingInstallmentsSQL = `
        SELECT s.id::text, s.loan_id, l.purpose, s.installment_number, s.due_date,
            s.total_amount, s.paid_amount, s.status
        FROM repayment_schedule s
        JOIN loans l ON l.id = s.loan_id
        WHERE l.status IN ('ACTIVE', 'OVERDUE')
            AND s.status IN ('PENDING', 'PARTIAL', 'OVERDUE')
            AND s.due_date BETWEEN $1 AND $2
        ORDER BY s.due_date, s.loan_id, s.installment_number`
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) commitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) rollbackTx(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
	}
}

// CreateLoan inserts the loan and its schedule in one transaction and returns
// the loan with its database id. Installments are stamped with that id.
func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan, schedule loan.Schedule) (created *loan.Loan, err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordDBQuery("CreateLoan", queryStatus(err), time.Since(startTime)) }()

	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			r.rollbackTx(ctx, tx)
		}
	}()

	out := *l
	err = tx.QueryRow(ctx, insertLoanSQL,
		l.Principal.Minor(), l.DownPayment.Minor(), l.ProcessingFee.Minor(), l.AnnualRate.String(), l.Term,
		l.MonthlyPayment.Minor(), l.TotalAmount.Minor(), l.RemainingBalance.Minor(), string(l.Status), l.Purpose,
		string(l.InterestMethod), string(l.PaymentFrequency), l.AppliedAt, l.ApprovedAt, l.DisbursedAt,
		l.Revision, l.CreatedAt, l.UpdatedAt,
	).Scan(&out.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	for i := range schedule {
		schedule[i].LoanID = out.ID
		if err = r.upsertInstallment(ctx, tx, schedule[i]); err != nil {
			return nil, err
		}
	}

	if err = r.commitTx(ctx, tx); err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", out.ID, "installments", len(schedule))
	return &out, nil
}

func (r *LoanRepository) Load(ctx context.Context, loanID int64) (l *loan.Loan, s loan.Schedule, err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordDBQuery("LoadLoan", queryStatus(err), time.Since(startTime)) }()

	l, err = r.loadLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, selectScheduleSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query schedule", "loan_id", loanID, "error", err)
		return nil, nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	s = make(loan.Schedule, 0, l.Term)
	for rows.Next() {
		inst, scanErr := scanInstallment(rows)
		if scanErr != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", loanID, "error", scanErr)
			return nil, nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, scanErr)
		}
		s = append(s, inst)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating schedule rows", "loan_id", loanID, "error", err)
		return nil, nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, s, nil
}

func (r *LoanRepository) loadLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	var (
		l                                                   loan.Loan
		principal, downPayment, fee, monthly, total, remain int64
		rate, status, method, frequency                     string
	)
	err := r.db.QueryRow(ctx, selectLoanSQL, loanID).Scan(
		&l.ID, &principal, &downPayment, &fee, &rate, &l.Term, &monthly,
		&total, &remain, &status, &l.Purpose, &method, &frequency,
		&l.AppliedAt, &l.ApprovedAt, &l.DisbursedAt, &l.CompletedAt, &l.Revision, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	l.AnnualRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("%w: loan %d has unreadable rate %q: %w", apperrors.ErrDatabase, loanID, rate, err)
	}
	l.Principal = money.FromMinor(principal)
	l.DownPayment = money.FromMinor(downPayment)
	l.ProcessingFee = money.FromMinor(fee)
	l.MonthlyPayment = money.FromMinor(monthly)
	l.TotalAmount = money.FromMinor(total)
	l.RemainingBalance = money.FromMinor(remain)
	l.Status = loan.LoanStatus(status)
	l.InterestMethod = loan.InterestMethod(method)
	l.PaymentFrequency = loan.PaymentFrequency(frequency)
	return &l, nil
}

func scanInstallment(rows pgx.Rows) (loan.Installment, error) {
	var (
		inst                                  loan.Installment
		id, status                            string
		principal, interest, total, paidMinor int64
	)
	err := rows.Scan(
		&id, &inst.LoanID, &inst.Number, &inst.DueDate, &principal, &interest,
		&total, &paidMinor, &status, &inst.PaidDate, &inst.PaymentMethod, &inst.PaymentReference, &inst.Notes,
	)
	if err != nil {
		return inst, err
	}
	if inst.ID, err = uuid.Parse(id); err != nil {
		return inst, err
	}
	inst.DueDate = loan.DateOf(inst.DueDate)
	inst.Principal = money.FromMinor(principal)
	inst.Interest = money.FromMinor(interest)
	inst.Total = money.FromMinor(total)
	inst.PaidAmount = money.FromMinor(paidMinor)
	inst.Status = loan.InstallmentStatus(status)
	return inst, nil
}

// Save replaces the stored schedule with s and updates the loan row, but only
// if the stored revision still equals expectedRevision. A lost race returns
// apperrors.ErrConcurrencyConflict and leaves the store untouched.
func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan, s loan.Schedule, expectedRevision int64) (err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordDBQuery("SaveSchedule", queryStatus(err), time.Since(startTime)) }()

	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			r.rollbackTx(ctx, tx)
		}
	}()

	tag, err := tx.Exec(ctx, updateLoanSQL, l.ID, l.Term, l.MonthlyPayment.Minor(), l.TotalAmount.Minor(),
		l.RemainingBalance.Minor(), string(l.Status), l.CompletedAt, l.UpdatedAt, expectedRevision)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Loan revision moved underneath us", "loan_id", l.ID, "expected_revision", expectedRevision)
		err = fmt.Errorf("%w: loan %d is no longer at revision %d", apperrors.ErrConcurrencyConflict, l.ID, expectedRevision)
		return err
	}

	ids := make([]string, len(s))
	for i, inst := range s {
		ids[i] = inst.ID.String()
	}
	if _, err = tx.Exec(ctx, deleteMissingInstallmentsSQL, l.ID, ids); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete removed installments", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	for _, inst := range s {
		if err = r.upsertInstallment(ctx, tx, inst); err != nil {
			return err
		}
	}

	return r.commitTx(ctx, tx)
}

func (r *LoanRepository) upsertInstallment(ctx context.Context, tx pgx.Tx, inst loan.Installment) error {
	_, err := tx.Exec(ctx, upsertInstallmentSQL,
		inst.ID.String(), inst.LoanID, inst.Number, inst.DueDate, inst.Principal.Minor(), inst.Interest.Minor(),
		inst.Total.Minor(), inst.PaidAmount.Minor(), string(inst.Status), inst.PaidDate,
		inst.PaymentMethod, inst.PaymentReference, inst.Notes,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to write installment", "loan_id", inst.LoanID, "installment_number", inst.Number, "error", err)
		return fmt.Errorf("%w: failed writing installment %d: %w", apperrors.ErrDatabase, inst.Number, err)
	}
	return nil
}

func (r *LoanRepository) ListActiveLoanIDs(ctx context.Context) (ids []int64, err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordDBQuery("ListActiveLoanIDs", queryStatus(err), time.Since(startTime)) }()

	rows, err := r.db.Query(ctx, selectActiveLoanIDsSQL)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query active loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return ids, nil
}

// ListUpcomingInstallments returns the unpaid installments of open loans due
// between from and to inclusive.
func (r *LoanRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) (upcoming []loan.UpcomingInstallment, err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordDBQuery("ListUpcomingInstallments", queryStatus(err), time.Since(startTime)) }()

	rows, err := r.db.Query(ctx, selectUpcomingInstallmentsSQL, from, to)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query upcoming installments", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u           loan.UpcomingInstallment
			id, status  string
			total, paid int64
		)
		if err = rows.Scan(&id, &u.LoanID, &u.LoanPurpose, &u.InstallmentNumber, &u.DueDate, &total, &paid, &status); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		if u.InstallmentID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		u.DueDate = loan.DateOf(u.DueDate)
		u.AmountDue = money.FromMinor(total - paid)
		u.Status = loan.InstallmentStatus(status)
		upcoming = append(upcoming, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return upcoming, nil
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
