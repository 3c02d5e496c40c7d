package liqpay

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
)

// Envelope is the signed transport form of every LiqPay message.
type Envelope struct {
	Data      string `form:"data" json:"data" binding:"required"`
	Signature string `form:"signature" json:"signature" binding:"required"`
}

// Values returns the envelope as form values.
func (e Envelope) Values() url.Values {
	return url.Values{
		"data":      {e.Data},
		"signature": {e.Signature},
	}
}

// CheckoutRequest is the checkout payload. Its keys follow the LiqPay
// checkout API (amount, currency, description, order_id, server_url, ...).
type CheckoutRequest map[string]any

// statusRequest queries the current state of an order.
type statusRequest struct {
	Action    string `json:"action"`
	Version   int    `json:"version"`
	OrderID   string `json:"order_id"`
	PublicKey string `json:"public_key"`
}

// ID is a gateway identifier sent either as a JSON number or a string.
type ID string

// UnmarshalJSON accepts numbers and strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Number is a numeric gateway field the bridge only passes along. It keeps the
// text of whatever scalar the gateway sent, so an unexpected type never fails
// decoding.
type Number string

// UnmarshalJSON accepts any JSON value.
func (n *Number) UnmarshalJSON(b []byte) error {
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
	default:
		*n = Number(b)
	}
	return nil
}

// Float64 returns the value as a float, or 0 when it is not numeric.
func (n Number) Float64() float64 {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0
	}
	return f
}

// Int64 returns the value as an integer, or 0 when it is not numeric.
func (n Number) Int64() int64 {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	return int64(n.Float64())
}

// PaymentStatus is the state of a payment as reported by the gateway.
type PaymentStatus struct {
	PaymentID      ID     `json:"payment_id"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	ErrCode        string `json:"err_code"`
	ErrDescription string `json:"err_description"`
	ErrErc         string `json:"err_erc"`
	Info           string `json:"info"`
	Version        Number `json:"version"`
	Type           string `json:"type"`
	PayType        string `json:"paytype"`
	PublicKey      string `json:"public_key"`
	OrderID        string `json:"order_id"`
	TransactionID  ID     `json:"transaction_id"`
	LiqPayOrderID  string `json:"liqpay_order_id"`
	Description    string `json:"description"`
	Amount         Number `json:"amount"`
	Currency       string `json:"currency"`
	SenderCardMask string `json:"sender_card_mask2"`
	Language       string `json:"language"`
	CreateDate     Number `json:"create_date"`
	EndDate        Number `json:"end_date"`

	// Raw holds every field the gateway sent. Numbers are int64 or float64.
	Raw map[string]any `json:"-"`
}

func decodePaymentStatus(b []byte) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := json.Unmarshal(b, &status); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	status.Raw = normalizeNumbers(raw).(map[string]any)
	return &status, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
