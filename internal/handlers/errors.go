package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/wallet_ledger/internal/apperrors"
	"github.com/SscSPs/wallet_ledger/internal/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// retryAfterSeconds is sent with 503 responses caused by write contention.
const retryAfterSeconds = "1"

// respondServiceError maps a service error onto an HTTP status and body.
// action is used in the generic 500 message, e.g. "deposit funds".
func respondServiceError(c *gin.Context, logger *slog.Logger, err error, action string) {
	var incomplete *apperrors.TransferIncompleteError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &incomplete):
		logger.Error("Transfer incomplete",
			slog.String("transfer_id", incomplete.TransferID),
			slog.String("state", incomplete.State),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.TransferIncompleteResponse{
			Error:        "Transfer could not be completed",
			TransferID:   incomplete.TransferID,
			FromWalletID: incomplete.SourceID,
			ToWalletID:   incomplete.DestinationID,
			State:        incomplete.State,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		logger.Warn("Insufficient funds", slog.String("error", err.Error()))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate resource", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConcurrencyExhausted):
		logger.Warn("Write contention, asking client to retry", slog.String("error", err.Error()))
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Wallet is busy, please retry"})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Request timed out", slog.String("error", err.Error()))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	case errors.As(err, &appErr):
		logger.Error("Failed to "+action, slog.Int("code", appErr.Code), slog.String("error", err.Error()))
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
	default:
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// respondBindError reports a request that failed binding or validation.
func respondBindError(c *gin.Context, logger *slog.Logger, err error, what string) {
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what, "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + ": " + err.Error()})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a UUID"
	case "email":
		return "must be a valid email address"
	case "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return strings.TrimSpace("failed " + fe.Tag() + " " + fe.Param())
	}
}
