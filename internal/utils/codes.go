package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Record id prefixes, one per table.
const (
	UserIDPrefix        = "user_"
	SessionIDPrefix     = "session_"
	OTPIDPrefix         = "otp_"
	TransactionIDPrefix = "transaction_"
)

// NewID returns prefix followed by a random UUID in hex without dashes,
// e.g. "user_4f9c...".
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewOTPCode returns a zero-padded six digit code from crypto/rand.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// TitleWords upper-cases the first letter of every space separated word and
// lower-cases the rest ("jOHN  doe" -> "John  Doe").
func TitleWords(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(strings.ToLower(w))
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
