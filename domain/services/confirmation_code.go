package services

import (
	"crypto/rand"
	"fmt"
)

// Base32 alphabet: 32 characters so a random byte masks to an index without
// modulo bias, and codes stay human-copyable.
const confirmationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// GenerateConfirmationCode produces the one-time shared secret bound to a
// reservation. The claimant sees it; the owner must obtain it out-of-band to
// settle the trade.
func GenerateConfirmationCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("confirmation code length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = confirmationCodeAlphabet[b&31]
	}
	return string(buf), nil
}
