// Package id generates Stripe-style public identifiers ("sub_3kTq9...").
// Numeric primary keys never leave the service; the prefixed SID is what
// handlers, notifications and CLI output show.
package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	DefaultLength = 14
)

const (
	PrefixSubscription = "sub"
	PrefixPlan         = "plan"
	PrefixPlanChange   = "pchg"
	PrefixOrder        = "ord"
)

// Generate returns a cryptographically random base62 string.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func GenerateWithPrefix(prefix string) (string, error) {
	s, err := Generate(DefaultLength)
	if err != nil {
		return "", err
	}
	return prefix + "_" + s, nil
}

// MustGenerateWithPrefix panics when the system random source fails.
func MustGenerateWithPrefix(prefix string) string {
	s, err := GenerateWithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return s
}

func NewSubscriptionID() string { return MustGenerateWithPrefix(PrefixSubscription) }
func NewPlanID() string         { return MustGenerateWithPrefix(PrefixPlan) }
func NewPlanChangeID() string   { return MustGenerateWithPrefix(PrefixPlanChange) }
func NewOrderNo() string        { return MustGenerateWithPrefix(PrefixOrder) }

// ParsePrefixedID splits "prefix_short" at the first underscore.
func ParsePrefixedID(prefixedID string) (prefix, shortID string, err error) {
	prefix, shortID, ok := strings.Cut(prefixedID, "_")
	if !ok {
		return "", "", fmt.Errorf("invalid prefixed ID format: %s", prefixedID)
	}
	return prefix, shortID, nil
}

// ValidatePrefix checks the SID prefix and that the remainder is non-empty.
func ValidatePrefix(prefixedID, expectedPrefix string) error {
	prefix, shortID, err := ParsePrefixedID(prefixedID)
	if err != nil {
		return err
	}
	if prefix != expectedPrefix {
		return fmt.Errorf("invalid prefix: expected %s, got %s", expectedPrefix, prefix)
	}
	if shortID == "" {
		return fmt.Errorf("empty identifier after prefix %s", prefix)
	}
	return nil
}
