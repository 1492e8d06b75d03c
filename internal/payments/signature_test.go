package payments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapnest/internal/types"
)

const testKeySecret = types.SecretString("rzp_key_secret")

func TestVerifyPaymentSignature_Accepts(t *testing.T) {
	sig := Sign([]byte("order_Nx1|pay_Nx1"), testKeySecret.Unmask())
	assert.NoError(t, VerifyPaymentSignature("order_Nx1", "pay_Nx1", sig, testKeySecret))
}

func TestVerifyPaymentSignature_RejectsSingleBitFlip(t *testing.T) {
	sig := []byte(Sign([]byte("order_Nx1|pay_Nx1"), testKeySecret.Unmask()))
	// Flip the lowest bit of the first hex digit.
	sig[0] ^= 0x01

	err := VerifyPaymentSignature("order_Nx1", "pay_Nx1", string(sig), testKeySecret)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyPaymentSignature_RejectsSwappedIDs(t *testing.T) {
	sig := Sign([]byte("order_Nx1|pay_Nx1"), testKeySecret.Unmask())
	err := VerifyPaymentSignature("pay_Nx1", "order_Nx1", sig, testKeySecret)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_MissingInputs(t *testing.T) {
	assert.ErrorIs(t, VerifyPaymentSignature("o", "p", "abc", ""), ErrSecretNotConfigured)
	assert.ErrorIs(t, VerifyPaymentSignature("o", "p", "", testKeySecret), ErrSignatureMissing)
	assert.ErrorIs(t, VerifyWebhookSignature([]byte(`{}`), "", testKeySecret), ErrSignatureMissing)
}

func TestVerifyWebhookSignature_UsesRawBodyOnly(t *testing.T) {
	raw := []byte(`{"event":"payment.captured",  "payload":{"payment":{"entity":{"id":"pay_1","amount":299900}}}}`)
	sig := Sign(raw, "whsec")

	require.NoError(t, VerifyWebhookSignature(raw, sig, "whsec"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	reserialized, err := json.Marshal(decoded)
	require.NoError(t, err)

	assert.ErrorIs(t, VerifyWebhookSignature(reserialized, sig, "whsec"), ErrSignatureMismatch,
		"a re-serialized body must not verify against the raw-body signature")
}
