package keypool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
)

const testPoolYAML = `
companies:
  acme:
    EMBEDDING:
      openai:
        keys: [keyA, keyB]
        models: [text-embedding-3-small]
    CHAT:
      openai:
        keys: [keyA, keyB]
        models: [gpt-4o-mini, gpt-4o]
  globex:
    EMBEDDING:
      openai:
        keys: [keyX]
        models: [text-embedding-3-small]
`

func TestParsePool(t *testing.T) {
	pool, err := ParsePool([]byte(testPoolYAML))
	require.NoError(t, err)

	pp, ok := pool.Lookup("acme", "CHAT", "openai")
	require.True(t, ok)
	assert.Equal(t, []string{"keyA", "keyB"}, pp.Keys)
	assert.True(t, pp.HasModel("gpt-4o"))
	assert.False(t, pp.HasModel("gpt-3.5-turbo"))
}

func TestParsePool_NoKeys(t *testing.T) {
	_, err := ParsePool([]byte(`
companies:
  acme:
    EMBEDDING:
      openai:
        keys: []
        models: [m]
`))
	assert.ErrorIs(t, err, core.ErrPoolConfiguration)
}

func TestParsePool_NoModels(t *testing.T) {
	_, err := ParsePool([]byte(`
companies:
  acme:
    EMBEDDING:
      openai:
        keys: [keyA]
        models: []
`))
	assert.ErrorIs(t, err, core.ErrPoolConfiguration)
}

func TestParsePool_InvalidYAML(t *testing.T) {
	_, err := ParsePool([]byte("companies: ["))
	assert.ErrorIs(t, err, core.ErrPoolConfiguration)
}

func TestPool_LookupMissing(t *testing.T) {
	pool, err := ParsePool([]byte(testPoolYAML))
	require.NoError(t, err)

	_, ok := pool.Lookup("unknown", "EMBEDDING", "openai")
	assert.False(t, ok)
	_, ok = pool.Lookup("acme", "COMPLETION", "openai")
	assert.False(t, ok)
	_, ok = pool.Lookup("acme", "EMBEDDING", "anthropic")
	assert.False(t, ok)
}
