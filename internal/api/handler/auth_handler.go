package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/config"
	"repayment-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	cfg    config.AuthConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:    cfg,
		now:    time.Now,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues an HS256 token signed with the configured secret.
//
// @Summary Generate a JWT bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "username"
// @Success 200 {object} map[string]string "Token successfully generated"
// @Failure 400 {object} dto.Envelope "Invalid request parameters"
// @Failure 500 {object} dto.Envelope "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Error("failed to decode request body", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		respondError(w, apperrors.NewValidationError("username is required"))
		return
	}

	claims := jwt.MapClaims{
		"sub": req.Username,
		"exp": h.now().Add(tokenTTL).Unix(),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("failed to sign token", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInternalServer, err))
		return
	}

	h.logger.Info("Bearer token issued", "username", req.Username)
	respondJSON(w, http.StatusOK, map[string]string{"token": "Bearer " + tokenString})
}
