package id

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithPrefix(t *testing.T) {
	sid := NewSubscriptionID()

	require.NoError(t, ValidatePrefix(sid, PrefixSubscription))
	assert.Len(t, sid, len(PrefixSubscription)+1+DefaultLength)
	assert.NotEqual(t, sid, NewSubscriptionID())
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("plan_abc", PrefixPlan))
	assert.Error(t, ValidatePrefix("sub_abc", PrefixPlan))
	assert.Error(t, ValidatePrefix("plan_", PrefixPlan))
	assert.Error(t, ValidatePrefix("planabc", PrefixPlan))
}

func FuzzParsePrefixedID(f *testing.F) {
	for _, seed := range []string{
		"sub_3kTq9aZ", "pchg_x", "ord_", "_lead", "noseparator", "a_b_c", "",
		strings.Repeat("p", 300) + "_" + strings.Repeat("q", 300),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			return
		}

		prefix, shortID, err := ParsePrefixedID(input)
		if !strings.Contains(input, "_") {
			if err == nil {
				t.Fatalf("expected error for %q", input)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if prefix+"_"+shortID != input {
			t.Fatalf("round trip mismatch for %q: %q + %q", input, prefix, shortID)
		}
		if strings.Contains(prefix, "_") {
			t.Fatalf("prefix %q must not contain the separator", prefix)
		}
	})
}
