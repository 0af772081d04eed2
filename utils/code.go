package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateVerificationCode creates a numeric code with the given length.
func GenerateVerificationCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		// crypto/rand for unpredictability
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// fallback to time based modulo if crypto fails
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

// NewRefreshTokenString returns an opaque refresh token value. Two UUIDs
// back to back give 256 bits of randomness while staying index-friendly.
func NewRefreshTokenString() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
