package liqpay

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Signer produces and checks LiqPay envelope signatures:
// base64(sha1(privateKey + data + privateKey)).
type Signer struct {
	privateKey string
}

// NewSigner creates a signer for the merchant private key.
func NewSigner(privateKey string) *Signer {
	return &Signer{privateKey: privateKey}
}

// Sign returns the signature of a base64 data string.
func (s *Signer) Sign(data string) string {
	sum := sha1.Sum([]byte(s.privateKey + data + s.privateKey))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify reports whether signature matches data.
func (s *Signer) Verify(data, signature string) bool {
	expected := s.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Seal encodes payload as JSON and wraps it into a signed envelope.
func (s *Signer) Seal(payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	data := base64.StdEncoding.EncodeToString(b)
	return Envelope{Data: data, Signature: s.Sign(data)}, nil
}
