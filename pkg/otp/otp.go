// Package otp generates and verifies the 4-digit numeric handoff codes used
// for delivery completion and return pickup.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Length is the number of digits in a generated code.
const Length = 4

var codeSpace = big.NewInt(10000)

// Generate returns a uniformly random 4-digit code, zero-padded.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Matches compares a supplied code against the stored one in constant time.
// Codes of the wrong length never match.
func Matches(stored, supplied string) bool {
	if len(stored) != Length || len(supplied) != Length {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
