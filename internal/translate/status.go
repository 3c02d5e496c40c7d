package translate

import (
	"errors"

	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
)

// StatusOf maps a gateway payment status onto a session status.
func StatusOf(status *liqpay.PaymentStatus) domain.SessionStatus {
	switch status.Status {
	case "success", "subscribed":
		return domain.StatusSuccess
	case "error", "failure":
		return domain.StatusFailure
	case "reversed", "unsubscribed":
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}

// ErrorOf returns the error carried by a payment status, or nil.
func ErrorOf(status *liqpay.PaymentStatus) *domain.SessionError {
	if status.ErrCode == "" {
		return nil
	}
	return &domain.SessionError{
		Code:    status.ErrCode,
		Message: status.ErrDescription,
		Details: status.Info,
	}
}

// UpdateOf builds the partial session written for a payment status.
func UpdateOf(status *liqpay.PaymentStatus) domain.StatusUpdate {
	return domain.StatusUpdate{
		Status:        StatusOf(status),
		TransactionID: string(status.TransactionID),
		Error:         ErrorOf(status),
	}
}

// Session error codes for failures the gateway did not classify.
const (
	CodeTranslationFailed = "TRANSLATION_FAILED"
	CodeUnknown           = "UNKNOWN"
)

// FailureOf describes err as the error of a failed checkout session.
func FailureOf(err error) domain.SessionError {
	if lerr, ok := liqpay.AsError(err); ok {
		return domain.SessionError{
			Code:    lerr.Code,
			Message: lerr.Message,
			Details: lerr.Details,
		}
	}
	if errors.Is(err, domain.ErrTranslation) {
		return domain.SessionError{Code: CodeTranslationFailed, Message: err.Error()}
	}
	return domain.SessionError{Code: CodeUnknown, Message: err.Error()}
}
