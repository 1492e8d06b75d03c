package billing

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// ReferralPrefix starts every referral code.
	ReferralPrefix = "ZAP-"

	// referralAlphabet omits 0/O and 1/I.
	referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralLength   = 4
)

// GenerateReferralCode returns a code of the form ZAP-XXXX.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, referralLength)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		buf[i] = referralAlphabet[n.Int64()]
	}
	return ReferralPrefix + string(buf), nil
}
