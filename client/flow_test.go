package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstack/checkout-bridge/client"
	"github.com/fitstack/checkout-bridge/docstore/memory"
	"github.com/fitstack/checkout-bridge/internal/api"
	"github.com/fitstack/checkout-bridge/internal/checkout"
	"github.com/fitstack/checkout-bridge/internal/events"
	"github.com/fitstack/checkout-bridge/internal/platform/liqpay"
	"github.com/fitstack/checkout-bridge/internal/session"
	"github.com/fitstack/checkout-bridge/internal/translate"
)

const flowPrivateKey = "sandbox_priv"

// fakeLiqPay answers checkouts with a redirect to a per-order page and
// reports every order as paid.
func fakeLiqPay(t *testing.T) *httptest.Server {
	t.Helper()
	signer := liqpay.NewSigner(flowPrivateKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		env := liqpay.Envelope{Data: r.PostForm.Get("data"), Signature: r.PostForm.Get("signature")}
		assert.True(t, signer.Verify(env.Data, env.Signature))

		decoder := liqpay.NewClient(liqpay.ClientConfig{PublicKey: "sandbox_pub", PrivateKey: flowPrivateKey})
		payload, err := decoder.DecodePaymentStatus(env)
		require.NoError(t, err)

		switch r.URL.Path {
		case "/3/checkout":
			w.Header().Set("Location", "https://www.liqpay.ua/checkout/"+payload.OrderID)
			w.WriteHeader(http.StatusFound)
		case "/request":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"order_id":       payload.OrderID,
				"action":         "pay",
				"status":         "success",
				"transaction_id": 987654,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlaceInvoiceCheckoutAndWebhook(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := memory.New()
	recorder := events.NewRecorder(events.Nop{}, nil)
	gateway := liqpay.NewClient(liqpay.ClientConfig{
		PublicKey:  "sandbox_pub",
		PrivateKey: flowPrivateKey,
		BaseURL:    fakeLiqPay(t).URL,
	})
	orch := checkout.NewOrchestrator(checkout.Deps{
		Gateway:            gateway,
		Translator:         translate.NewInvoiceTranslator(nil, "https://bridge.example/webhooks/liqpay"),
		Sessions:           session.NewStore(docs, "users/{userId}/checkout-sessions", recorder, nil),
		Docs:               docs,
		InvoicesCollection: "invoices",
		Recorder:           recorder,
	})

	listener := checkout.NewListener(docs, "invoices", orch, nil)
	errc := make(chan error, 1)
	go func() { errc <- listener.Run(ctx) }()

	c := client.New(docs, client.WithSessionsCollection("users/{userId}/checkout-sessions"))
	got, err := c.Payments.PlaceInvoiceAndWait(ctx, client.Invoice{
		"userId":      "u1",
		"amount":      100,
		"currency":    "UAH",
		"description": "Order",
	}, client.Timeout(5*time.Second))
	require.NoError(t, err)
	require.NotEmpty(t, got.InvoiceID)
	assert.Equal(t, client.StatusPending, got.Status)
	assert.Equal(t, "https://www.liqpay.ua/checkout/"+got.InvoiceID, got.PaymentPageURL)

	// LiqPay reports the payment to the webhook.
	env, err := liqpay.NewSigner(flowPrivateKey).Seal(map[string]any{
		"order_id": got.InvoiceID,
		"status":   "success",
	})
	require.NoError(t, err)
	router := api.SetupRouter(api.NewHandler(orch, nil), gin.TestMode, nil)
	req := httptest.NewRequest(http.MethodPost, api.WebhookPath, strings.NewReader(env.Values().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	paid, err := c.Payments.FetchCheckoutSession(ctx, got.InvoiceID, map[string]string{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, client.StatusSuccess, paid.Status)
	assert.Equal(t, "987654", paid.TransactionID)
	assert.Equal(t, "https://www.liqpay.ua/checkout/"+got.InvoiceID, paid.PaymentPageURL)

	audit, err := docs.Query(ctx, "invoices/"+got.InvoiceID+"/statuses")
	require.NoError(t, err)
	assert.Len(t, audit, 2)

	cancel()
	require.NoError(t, <-errc)
}
