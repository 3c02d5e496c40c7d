// Package liqpay is an HTTP client for the LiqPay checkout and status APIs.
package liqpay

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fitstack/checkout-bridge/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://www.liqpay.ua/api"

// ClientConfig configures a Client.
type ClientConfig struct {
	PublicKey  string
	PrivateKey string
	BaseURL    string        // Defaults to DefaultBaseURL
	Timeout    time.Duration // Defaults to 10s
	HTTPClient *http.Client  // Optional; its redirect policy is replaced
	Logger     *slog.Logger
}

// Client talks to LiqPay.
type Client struct {
	publicKey  string
	baseURL    string
	signer     *Signer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new LiqPay client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = timeout
	}
	// Checkout answers with a redirect to the payment page; it must not be followed.
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		publicKey:  cfg.PublicKey,
		baseURL:    baseURL,
		signer:     NewSigner(cfg.PrivateKey),
		httpClient: &httpClient,
		logger:     logger,
	}
}

// Signer returns the client's envelope signer.
func (c *Client) Signer() *Signer {
	return c.signer
}

// Checkout starts a hosted checkout and returns the payment page URL.
func (c *Client) Checkout(ctx context.Context, request CheckoutRequest) (string, error) {
	payload := make(map[string]any, len(request)+1)
	for k, v := range request {
		payload[k] = v
	}
	payload["public_key"] = c.publicKey

	c.logger.Info("liqpay checkout request", "order_id", payload["order_id"])

	resp, err := c.post(ctx, "/3/checkout", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location == "" {
			return "", newError(
				"No redirect location",
				CodeNoRedirectLocation,
				domain.ErrGateway,
				"The response did not contain a redirect Location header",
			)
		}
		return location, nil
	}

	body, _ := io.ReadAll(resp.Body)
	return "", newError(
		string(body),
		httpStatusCode(resp.StatusCode),
		domain.ErrGateway,
		"Unexpected response status code, expected 3xx",
	)
}

// PaymentStatus asks the gateway for the current state of an order.
func (c *Client) PaymentStatus(ctx context.Context, orderID string) (*PaymentStatus, error) {
	c.logger.Info("liqpay status request", "order_id", orderID)

	resp, err := c.post(ctx, "/request", statusRequest{
		Action:    "status",
		Version:   3,
		OrderID:   orderID,
		PublicKey: c.publicKey,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError("Failed to read response", CodeRequestFailed, err, "")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(
			string(body),
			httpStatusCode(resp.StatusCode),
			domain.ErrGateway,
			"Unexpected response status code, expected 200",
		)
	}

	status, err := decodePaymentStatus(body)
	if err != nil {
		return nil, newError("Invalid status response", CodeBadArgument, err, string(body))
	}
	return status, nil
}

// DecodePaymentStatus verifies a webhook envelope and decodes its payload.
func (c *Client) DecodePaymentStatus(env Envelope) (*PaymentStatus, error) {
	if env.Data == "" || env.Signature == "" {
		return nil, newError(
			"Invalid JSON",
			CodeBadArgument,
			nil,
			fmt.Sprintf("The JSON object is: %+v", env),
		)
	}
	if !c.signer.Verify(env.Data, env.Signature) {
		return nil, newError(
			"Invalid signature",
			CodeInvalidSignature,
			domain.ErrInvalidSignature,
			"The signature is invalid",
		)
	}

	b, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, newError("Invalid data encoding", CodeBadArgument, err, "")
	}
	status, err := decodePaymentStatus(b)
	if err != nil {
		return nil, newError("Invalid JSON", CodeBadArgument, err, string(b))
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	env, err := c.signer.Seal(payload)
	if err != nil {
		return nil, newError("Failed to encode request", CodeBadArgument, err, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(env.Values().Encode()))
	if err != nil {
		return nil, newError("Failed to create request", CodeRequestFailed, err, "")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError("Failed to make request", CodeRequestFailed, err, "")
	}
	return resp, nil
}
