package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// CodeAlphabet holds the characters used for generating short codes.
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// CodeLength is the length of the generated short codes.
	CodeLength = 6
)

// Generator produces candidate short codes. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes from crypto/rand, which is safe for concurrent use.
type RandomGenerator struct{}

var _ Generator = RandomGenerator{}

// Generate creates a random, URL-friendly code. It is not collision aware.
func (RandomGenerator) Generate() (string, error) {
	n := big.NewInt(int64(len(CodeAlphabet)))
	result := make([]byte, CodeLength)
	for i := range result {
		num, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		result[i] = CodeAlphabet[num.Int64()]
	}
	return string(result), nil
}

// ValidCode reports whether code has the length and charset of a generated code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
