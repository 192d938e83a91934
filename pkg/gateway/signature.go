// Package gateway verifies the settlement proofs the payment gateway hands
// to the checkout client.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMissingSecret is returned when no gateway key secret is configured.
var ErrMissingSecret = errors.New("gateway key secret is required")

// Signature returns the hex HMAC-SHA256 of "orderID|gatewayPaymentID" under
// secret, which is what the gateway signs when an order is paid.
func Signature(secret, orderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks settlement signatures against the merchant key secret.
type Verifier struct {
	secret string
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Verifier{secret: secret}, nil
}

// Verify reports whether signature proves that orderID was paid by
// gatewayPaymentID.
func (v *Verifier) Verify(orderID, gatewayPaymentID, signature string) bool {
	if orderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Signature(v.secret, orderID, gatewayPaymentID))
	return hmac.Equal(got, want)
}
