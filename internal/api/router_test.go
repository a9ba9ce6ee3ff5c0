package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	mw "repayment-engine/internal/api/middleware"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/pkg/apperrors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// recordingService answers every call with not-found and remembers what was routed to it.
type recordingService struct {
	calls []string
	kinds []loan.MutationKind
}

func (s *recordingService) CreateLoan(ctx context.Context, params loan.NewLoanParams) (*loan.Loan, loan.Schedule, error) {
	s.calls = append(s.calls, "CreateLoan")
	return nil, nil, apperrors.NewValidationError("Principal must be greater than 0")
}

func (s *recordingService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, loan.Schedule, error) {
	s.calls = append(s.calls, "GetLoan")
	return nil, nil, apperrors.ErrNotFound
}

func (s *recordingService) Apply(ctx context.Context, loanID int64, req loan.MutationRequest) (*loan.MutationResult, error) {
	s.calls = append(s.calls, "Apply")
	s.kinds = append(s.kinds, req.Kind())
	return nil, apperrors.ErrNotFound
}

func (s *recordingService) LateFees(ctx context.Context, loanID int64, asOf time.Time) (*loan.LateFeeAssessment, error) {
	s.calls = append(s.calls, "LateFees")
	return nil, apperrors.ErrNotFound
}

func (s *recordingService) RefreshOverdue(ctx context.Context, loanID int64, asOf time.Time) (bool, error) {
	return false, nil
}

func (s *recordingService) ListActiveLoanIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (s *recordingService) UpcomingInstallments(ctx context.Context, asOf time.Time, days int) ([]loan.UpcomingInstallment, error) {
	s.calls = append(s.calls, "UpcomingInstallments")
	return nil, nil
}

func newTestRouter(t *testing.T, cfg *config.Config) (http.Handler, *recordingService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger)
	t.Cleanup(limiter.Stop)
	svc := &recordingService{}
	return SetupRouter(svc, limiter, cfg, logger), svc
}

func TestSetupRouter_Routes(t *testing.T) {
	router, svc := newTestRouter(t, &config.Config{})
	id := uuid.NewString()

	tests := []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodPost, "/loans", `{"principal":0}`, http.StatusBadRequest},
		{http.MethodGet, "/loans/upcoming?days=14", "", http.StatusOK},
		{http.MethodGet, "/loans/7", "", http.StatusNotFound},
		{http.MethodGet, "/loans/7/late-fees?asOf=2024-03-01", "", http.StatusNotFound},
		{http.MethodPost, "/loans/7/schedule/installments", `{"startingInstallmentNumber":3}`, http.StatusNotFound},
		{http.MethodPost, "/loans/7/schedule/extend", `{"additionalMonths":1}`, http.StatusNotFound},
		{http.MethodPost, "/loans/7/schedule/regenerate", `{"newTerm":3}`, http.StatusNotFound},
		{http.MethodPost, "/loans/7/schedule/" + id + "/pay", `{"amount":1}`, http.StatusNotFound},
		{http.MethodPut, "/loans/7/schedule/" + id + "/due-date", `{"newDueDate":"2024-05-01"}`, http.StatusNotFound},
		{http.MethodPut, "/loans/7/schedule/" + id, `{"notes":"call back"}`, http.StatusNotFound},
		{http.MethodDelete, "/loans/7/schedule/" + id, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	assert.Equal(t, []string{
		"CreateLoan", "UpcomingInstallments", "GetLoan", "LateFees",
		"Apply", "Apply", "Apply", "Apply", "Apply", "Apply", "Apply",
	}, svc.calls)
	assert.Equal(t, []loan.MutationKind{
		loan.KindAddCustom, loan.KindExtendTerm, loan.KindRegenerate,
		loan.KindMarkAsPaid, loan.KindUpdateDueDate, loan.KindUpdate, loan.KindDelete,
	}, svc.kinds)
}

func TestSetupRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, &config.Config{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSetupRouter_AuthEnabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Auth = config.AuthConfig{Enabled: true, JWTSecret: "secret"}
	router, svc := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans/7", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.calls)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"ops"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRouter_AuthRouteHiddenWhenDisabled(t *testing.T) {
	router, _ := newTestRouter(t, &config.Config{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"ops"}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
