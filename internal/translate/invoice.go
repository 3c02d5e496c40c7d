// Package translate converts between invoice, gateway and checkout session shapes.
package translate

import (
	"context"
	"time"

	"github.com/fitstack/checkout-bridge/internal/domain"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
)

// DateLayout is the gateway's date format. Dates are always rendered in UTC.
const DateLayout = "2006-01-02 15:04:05"

// Request defaults applied when the translated request leaves them unset.
const (
	DefaultAction   = "pay"
	DefaultLanguage = "en"
	APIVersion      = 3
)

// InvoiceTranslator builds checkout requests from invoices.
type InvoiceTranslator struct {
	eval       Evaluator
	webhookURL string
}

// NewInvoiceTranslator creates a translator. A nil evaluator passes the
// invoice through unchanged.
func NewInvoiceTranslator(eval Evaluator, webhookURL string) *InvoiceTranslator {
	return &InvoiceTranslator{eval: eval, webhookURL: webhookURL}
}

// Translate converts invoice into a checkout request for invoiceID.
// order_id and server_url always reflect invoiceID and the webhook URL.
func (t *InvoiceTranslator) Translate(ctx context.Context, invoice domain.Invoice, invoiceID string) (liqpay.CheckoutRequest, error) {
	converted, _ := ConvertTimestamps(map[string]any(invoice)).(map[string]any)
	if converted == nil {
		converted = map[string]any{}
	}

	result := converted
	if t.eval != nil {
		out, err := t.eval.Evaluate(ctx, converted)
		if err != nil {
			return nil, err
		}
		result = out
	}

	request := make(liqpay.CheckoutRequest, len(result)+5)
	for k, v := range result {
		request[k] = v
	}
	request["order_id"] = invoiceID
	request["server_url"] = t.webhookURL
	if request["action"] == nil {
		request["action"] = DefaultAction
	}
	request["version"] = APIVersion
	if request["language"] == nil {
		request["language"] = DefaultLanguage
	}
	return request, nil
}

// ConvertTimestamps replaces every time value in v, at any depth, with its
// DateLayout rendering. Other values are returned as they are.
func ConvertTimestamps(v any) any {
	switch t := v.(type) {
	case time.Time:
		return FormatDate(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatDate(*t)
	case domain.Invoice:
		return ConvertTimestamps(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = ConvertTimestamps(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ConvertTimestamps(e)
		}
		return out
	default:
		return v
	}
}

// FormatDate renders t in UTC using DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
