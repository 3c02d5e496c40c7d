package liqpay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstack/checkout-bridge/internal/domain"
)

const (
	testPublicKey  = "sandbox_pub"
	testPrivateKey = "sandbox_priv"
)

type capturedRequest struct {
	Path    string
	Payload map[string]any
}

// gatewayServer verifies the envelope of every request and hands the decoded
// payload to respond.
func gatewayServer(t *testing.T, respond func(w http.ResponseWriter, path string, payload map[string]any)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	signer := NewSigner(testPrivateKey)
	var captured []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())

		data, signature := r.PostForm.Get("data"), r.PostForm.Get("signature")
		assert.True(t, signer.Verify(data, signature), "bad request signature")

		raw, err := base64.StdEncoding.DecodeString(data)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))

		captured = append(captured, capturedRequest{Path: r.URL.Path, Payload: payload})
		respond(w, r.URL.Path, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		PublicKey:  testPublicKey,
		PrivateKey: testPrivateKey,
		BaseURL:    baseURL,
	})
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		respond  func(w http.ResponseWriter)
		wantURL  string
		wantCode string
		wantMsg  string
	}{
		"redirect": {
			respond: func(w http.ResponseWriter) {
				w.Header().Set("Location", "https://www.liqpay.ua/checkout/abc")
				w.WriteHeader(http.StatusFound)
			},
			wantURL: "https://www.liqpay.ua/checkout/abc",
		},
		"see other": {
			respond: func(w http.ResponseWriter) {
				w.Header().Set("Location", "https://www.liqpay.ua/checkout/def")
				w.WriteHeader(http.StatusSeeOther)
			},
			wantURL: "https://www.liqpay.ua/checkout/def",
		},
		"redirect without location": {
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusFound)
			},
			wantCode: CodeNoRedirectLocation,
			wantMsg:  "No redirect location",
		},
		"non redirect": {
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("invalid amount"))
			},
			wantCode: "HTTP_400",
			wantMsg:  "invalid amount",
		},
		"ok is not a redirect": {
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<html>"))
			},
			wantCode: "HTTP_200",
			wantMsg:  "<html>",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv, captured := gatewayServer(t, func(w http.ResponseWriter, _ string, _ map[string]any) {
				tt.respond(w)
			})
			client := newTestClient(srv.URL)

			url, err := client.Checkout(context.Background(), CheckoutRequest{
				"amount":   100,
				"currency": "USD",
				"order_id": "inv1",
			})

			require.Len(t, *captured, 1)
			req := (*captured)[0]
			assert.Equal(t, "/3/checkout", req.Path)
			assert.Equal(t, testPublicKey, req.Payload["public_key"])
			assert.Equal(t, "inv1", req.Payload["order_id"])

			if tt.wantCode != "" {
				lerr, ok := AsError(err)
				require.True(t, ok, "expected liqpay error, got %v", err)
				assert.Equal(t, tt.wantCode, lerr.Code)
				assert.Equal(t, tt.wantMsg, lerr.Message)
				assert.NotEmpty(t, lerr.Details)
				assert.ErrorIs(t, err, domain.ErrGateway)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestCheckoutNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := newTestClient(baseURL).Checkout(context.Background(), CheckoutRequest{"order_id": "inv1"})
	lerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeRequestFailed, lerr.Code)
	assert.NotNil(t, lerr.Cause)
}

func TestPaymentStatus(t *testing.T) {
	t.Parallel()

	srv, captured := gatewayServer(t, func(w http.ResponseWriter, _ string, payload map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order_id":       payload["order_id"],
			"status":         "success",
			"payment_id":     1234567,
			"transaction_id": 7654321,
			"amount":         100.5,
			"currency":       "USD",
		})
	})

	status, err := newTestClient(srv.URL).PaymentStatus(context.Background(), "inv1")
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	assert.Equal(t, "/request", (*captured)[0].Path)
	assert.Equal(t, map[string]any{
		"action":     "status",
		"version":    float64(3),
		"order_id":   "inv1",
		"public_key": testPublicKey,
	}, (*captured)[0].Payload)

	assert.Equal(t, "inv1", status.OrderID)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, ID("7654321"), status.TransactionID)
	assert.Equal(t, ID("1234567"), status.PaymentID)
	assert.Equal(t, 100.5, status.Amount.Float64())
	assert.Equal(t, int64(7654321), status.Raw["transaction_id"])
	assert.Equal(t, 100.5, status.Raw["amount"])
}

func TestPaymentStatusHTTPError(t *testing.T) {
	t.Parallel()

	srv, _ := gatewayServer(t, func(w http.ResponseWriter, _ string, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("down"))
	})

	_, err := newTestClient(srv.URL).PaymentStatus(context.Background(), "inv1")
	lerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "HTTP_500", lerr.Code)
	assert.Equal(t, "down", lerr.Message)
}

func TestDecodePaymentStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient("")

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		status, err := client.DecodePaymentStatus(Envelope{Data: testData, Signature: testSignature})
		require.NoError(t, err)
		assert.Equal(t, "inv1", status.OrderID)
		assert.Equal(t, "success", status.Status)
		assert.Equal(t, map[string]any{"order_id": "inv1", "status": "success"}, status.Raw)
	})

	t.Run("string ids", func(t *testing.T) {
		t.Parallel()
		env, err := client.Signer().Seal(map[string]any{"order_id": "inv2", "transaction_id": "42", "status": "failure", "err_code": "limit"})
		require.NoError(t, err)
		status, err := client.DecodePaymentStatus(env)
		require.NoError(t, err)
		assert.Equal(t, ID("42"), status.TransactionID)
		assert.Equal(t, "limit", status.ErrCode)
	})

	t.Run("loosely typed numbers", func(t *testing.T) {
		t.Parallel()
		env, err := client.Signer().Seal(map[string]any{
			"order_id":    "inv3",
			"status":      "success",
			"amount":      "100.50",
			"version":     "3",
			"create_date": "1729325228000",
			"end_date":    true,
		})
		require.NoError(t, err)
		status, err := client.DecodePaymentStatus(env)
		require.NoError(t, err)
		assert.Equal(t, "inv3", status.OrderID)
		assert.Equal(t, 100.5, status.Amount.Float64())
		assert.Equal(t, int64(3), status.Version.Int64())
		assert.Equal(t, int64(1729325228000), status.CreateDate.Int64())
		assert.Equal(t, int64(0), status.EndDate.Int64())
		assert.Equal(t, "100.50", status.Raw["amount"])
	})

	t.Run("invalid signature", func(t *testing.T) {
		t.Parallel()
		_, err := client.DecodePaymentStatus(Envelope{Data: testData, Signature: "tampered"})
		lerr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, CodeInvalidSignature, lerr.Code)
		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
	})

	t.Run("empty envelope", func(t *testing.T) {
		t.Parallel()
		_, err := client.DecodePaymentStatus(Envelope{})
		lerr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, CodeBadArgument, lerr.Code)
	})

	t.Run("signed garbage", func(t *testing.T) {
		t.Parallel()
		data := base64.StdEncoding.EncodeToString([]byte("not json"))
		_, err := client.DecodePaymentStatus(Envelope{Data: data, Signature: client.Signer().Sign(data)})
		lerr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, CodeBadArgument, lerr.Code)
	})
}
