package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstack/checkout-bridge/internal/domain"
)

func TestJSONataEvaluate(t *testing.T) {
	t.Parallel()

	expr, err := CompileJSONata(`{
		"amount": total,
		"currency": "UAH",
		"description": title,
		"sender_first_name": customer.firstName
	}`)
	require.NoError(t, err)

	got, err := expr.Evaluate(context.Background(), map[string]any{
		"total":    250,
		"title":    "Monthly plan",
		"customer": map[string]any{"firstName": "Olena"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"amount":            float64(250),
		"currency":          "UAH",
		"description":       "Monthly plan",
		"sender_first_name": "Olena",
	}, got)
}

func TestJSONataErrors(t *testing.T) {
	t.Parallel()

	_, err := CompileJSONata(`{ "amount": `)
	assert.ErrorIs(t, err, domain.ErrTranslation)

	tests := map[string]string{
		"not an object": `total`,
		"undefined":     `missing`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			expr, err := CompileJSONata(src)
			require.NoError(t, err)
			_, err = expr.Evaluate(context.Background(), map[string]any{"total": 1})
			assert.ErrorIs(t, err, domain.ErrTranslation)
		})
	}
}

func TestTranslateWithJSONata(t *testing.T) {
	t.Parallel()

	expr, err := CompileJSONata(`{ "amount": price, "currency": currency, "description": "Invoice " & number }`)
	require.NoError(t, err)

	tr := NewInvoiceTranslator(expr, testWebhookURL)
	got, err := tr.Translate(context.Background(), domain.Invoice{"price": 100, "currency": "USD", "number": "A-1"}, "inv1")
	require.NoError(t, err)

	assert.Equal(t, float64(100), got["amount"])
	assert.Equal(t, "Invoice A-1", got["description"])
	assert.Equal(t, "pay", got["action"])
	assert.Equal(t, 3, got["version"])
}
