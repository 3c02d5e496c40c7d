package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// SignatureHeader carries the HMAC of the request body.
const SignatureHeader = "X-Signature"

// HTTPOptions configures an HTTPPublisher.
type HTTPOptions struct {
	Endpoint     string
	Secret       []byte
	AllowedTypes []Type // Empty allows every type
	Client       *http.Client
}

// HTTPPublisher posts events as signed canonical JSON.
type HTTPPublisher struct {
	endpoint string
	secret   []byte
	allowed  map[Type]struct{}
	client   *http.Client
}

// NewHTTPPublisher creates a publisher for opts.
func NewHTTPPublisher(opts HTTPOptions) (*HTTPPublisher, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("events: endpoint is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	var allowed map[Type]struct{}
	if len(opts.AllowedTypes) > 0 {
		allowed = make(map[Type]struct{}, len(opts.AllowedTypes))
		for _, t := range opts.AllowedTypes {
			allowed[t] = struct{}{}
		}
	}
	return &HTTPPublisher{
		endpoint: opts.Endpoint,
		secret:   opts.Secret,
		allowed:  allowed,
		client:   client,
	}, nil
}

// Allows reports whether events of type t are delivered.
func (p *HTTPPublisher) Allows(t Type) bool {
	if p.allowed == nil {
		return true
	}
	_, ok := p.allowed[t]
	return ok
}

// Publish implements Publisher. Events of types outside the allow-list are dropped.
func (p *HTTPPublisher) Publish(ctx context.Context, event Event) error {
	if !p.Allows(event.Type) {
		return nil
	}
	body, err := canonicaljson.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("events: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(p.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(p.secret, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("events: send %s: %w", event.Type, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("events: endpoint %s returned %s: %s", p.endpoint, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// Sign returns the base64url HMAC-SHA256 of payload.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ParseTypes splits a comma-separated list of event types.
func ParseTypes(list string) []Type {
	var out []Type
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, Type(s))
		}
	}
	return out
}
