package translate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := map[string]domain.SessionStatus{
		"success":      domain.StatusSuccess,
		"subscribed":   domain.StatusSuccess,
		"error":        domain.StatusFailure,
		"failure":      domain.StatusFailure,
		"reversed":     domain.StatusCancelled,
		"unsubscribed": domain.StatusCancelled,
		"processing":   domain.StatusPending,
		"3ds_verify":   domain.StatusPending,
		"wait_accept":  domain.StatusPending,
		"":             domain.StatusPending,
	}
	for gateway, want := range tests {
		t.Run(gateway, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, StatusOf(&liqpay.PaymentStatus{Status: gateway}))
		})
	}
}

func TestErrorOf(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ErrorOf(&liqpay.PaymentStatus{Status: "success"}))
	assert.Nil(t, ErrorOf(&liqpay.PaymentStatus{Status: "failure", ErrDescription: "no code"}))

	assert.Equal(t, &domain.SessionError{Code: "limit", Message: "Limit exceeded", Details: "card"},
		ErrorOf(&liqpay.PaymentStatus{ErrCode: "limit", ErrDescription: "Limit exceeded", Info: "card"}))
	assert.Equal(t, &domain.SessionError{Code: "9859"},
		ErrorOf(&liqpay.PaymentStatus{ErrCode: "9859"}))
}

func TestUpdateOf(t *testing.T) {
	t.Parallel()

	got := UpdateOf(&liqpay.PaymentStatus{Status: "failure", TransactionID: "42", ErrCode: "limit"})
	assert.Equal(t, domain.StatusUpdate{
		Status:        domain.StatusFailure,
		TransactionID: "42",
		Error:         &domain.SessionError{Code: "limit"},
	}, got)
}

func TestFailureOf(t *testing.T) {
	t.Parallel()

	gatewayErr := &liqpay.Error{Message: "No redirect location", Code: liqpay.CodeNoRedirectLocation, Details: "missing header"}
	assert.Equal(t, domain.SessionError{Code: "NO_REDIRECT_LOCATION", Message: "No redirect location", Details: "missing header"},
		FailureOf(fmt.Errorf("checkout: %w", gatewayErr)))

	translation := fmt.Errorf("%w: bad expression", domain.ErrTranslation)
	assert.Equal(t, CodeTranslationFailed, FailureOf(translation).Code)

	assert.Equal(t, domain.SessionError{Code: CodeUnknown, Message: "boom"}, FailureOf(errors.New("boom")))
}
