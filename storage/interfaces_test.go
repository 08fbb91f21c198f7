package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterKey_String(t *testing.T) {
	key := CounterKey{
		Functionality: "EMBEDDING",
		Company:       "acme",
		Provider:      "openai",
		Model:         "text-embedding-3-small",
	}
	assert.Equal(t, "usage:EMBEDDING:acme:openai:text-embedding-3-small", key.String())
}

func TestParseCounterKey_RoundTrip(t *testing.T) {
	key := CounterKey{
		Functionality: "CHAT",
		Company:       "globex",
		Provider:      "openai",
		Model:         "gpt-4o-mini",
	}

	parsed, err := ParseCounterKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestParseCounterKey_Malformed(t *testing.T) {
	cases := []string{
		"",
		"usage:EMBEDDING:acme:openai",
		"score:EMBEDDING:acme:openai:model",
		"usage:a:b:c:d:e",
	}
	for _, input := range cases {
		_, err := ParseCounterKey(input)
		assert.ErrorIs(t, err, ErrInvalidCounterKey, "input %q", input)
	}
}
