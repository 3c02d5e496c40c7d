// Package api contains the HTTP handlers and routing for the checkout bridge.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
)

// StatusProcessor applies gateway payment statuses.
type StatusProcessor interface {
	OnStatusReceived(ctx context.Context, env liqpay.Envelope) (*liqpay.PaymentStatus, error)
	RefreshStatus(ctx context.Context, orderID string) (*liqpay.PaymentStatus, error)
}

// Handler contains the HTTP handlers of the bridge.
type Handler struct {
	statuses StatusProcessor
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(statuses StatusProcessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		statuses: statuses,
		logger:   logger,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// HandlePaymentStatus handles POST /webhooks/liqpay
// Applies the signed status sent by LiqPay, then re-reads the current status
// from the gateway and applies it again, since webhooks may carry stale state.
func (h *Handler) HandlePaymentStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var env liqpay.Envelope
	if err := c.ShouldBind(&env); err != nil {
		h.logger.Error("error handling payment status", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    liqpay.CodeBadArgument,
		})
		return
	}
	h.logger.Info("handling payment status", "data", env.Data)

	status, err := h.statuses.OnStatusReceived(ctx, env)
	if err != nil {
		h.logger.Error("error handling payment status", "error", err)
		handleServiceError(c, err)
		return
	}

	if _, err := h.statuses.RefreshStatus(ctx, status.OrderID); err != nil {
		h.logger.Error("error handling payment status", "invoice_id", status.OrderID, "error", err)
		handleServiceError(c, err)
		return
	}

	c.String(http.StatusOK, "OK")
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "checkout-bridge",
	})
}

// handleServiceError renders err. The gateway treats any non-200 answer as a
// failed delivery, so every error is a 500.
func handleServiceError(c *gin.Context, err error) {
	resp := ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    "INTERNAL_ERROR",
	}

	var serviceErr *domain.ServiceError
	if lerr, ok := liqpay.AsError(err); ok {
		resp.Code = lerr.Code
	} else if errors.As(err, &serviceErr) {
		resp.Code = serviceErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		resp.Code = liqpay.CodeInvalidSignature
	case errors.Is(err, domain.ErrInvoiceNotFound):
		resp.Code = "INVOICE_NOT_FOUND"
	}

	c.JSON(http.StatusInternalServerError, resp)
}
