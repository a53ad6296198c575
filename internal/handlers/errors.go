package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/fleet_ledger/internal/apperrors"
	"github.com/SscSPs/fleet_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUnknownTemplate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrStateTransition),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrUnbalancedConstruction),
		errors.Is(err, apperrors.ErrInvalidAccountCode):
		return http.StatusBadRequest
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 600 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Client errors echo the
// message; server errors only return failMsg.
func respondError(c *gin.Context, err error, failMsg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error(failMsg, slog.String("error", err.Error()), slog.Int("status", status))
		c.JSON(status, gin.H{"error": failMsg})
		return
	}
	logger.Warn(failMsg, slog.String("error", err.Error()), slog.Int("status", status))
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireIdentity returns the tenant and user set by the auth middleware.
func requireIdentity(c *gin.Context) (tenantID, userID string, ok bool) {
	userID, uok := middleware.GetUserIDFromContext(c)
	tenantID, tok := middleware.GetTenantIDFromContext(c)
	if !uok || !tok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Identity not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	return tenantID, userID, true
}

func badRequest(c *gin.Context, msg string, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn(msg, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": msg + ": " + err.Error()})
}
