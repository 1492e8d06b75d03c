package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"zapnest/internal/types"
)

var (
	// ErrSecretNotConfigured is returned when no shared secret is available.
	ErrSecretNotConfigured = errors.New("payments: signing secret not configured")
	// ErrSignatureMissing is returned for an empty signature.
	ErrSignatureMissing = errors.New("payments: signature missing")
	// ErrSignatureMismatch is returned when the signature does not match the message.
	ErrSignatureMismatch = errors.New("payments: signature mismatch")
)

// Sign returns the hex-encoded HMAC-SHA256 of message under secret.
func Sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the signature the checkout returns to the
// browser. The signed message is "order_id|payment_id".
func VerifyPaymentSignature(orderID, paymentID, signature string, secret types.SecretString) error {
	return verify([]byte(orderID+"|"+paymentID), signature, secret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw request
// body. The body must be the exact bytes received.
func VerifyWebhookSignature(rawBody []byte, signature string, secret types.SecretString) error {
	return verify(rawBody, signature, secret)
}

func verify(message []byte, signature string, secret types.SecretString) error {
	if !secret.IsSet() {
		return ErrSecretNotConfigured
	}
	if signature == "" {
		return ErrSignatureMissing
	}
	expected := Sign(message, secret.Unmask())
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
