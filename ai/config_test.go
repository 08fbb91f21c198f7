package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_NormalizeAddsV1Suffix(t *testing.T) {
	cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)

	cfg = NewConfig(WithEmbeddingHost("http://localhost:11434/"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)

	cfg = NewConfig(WithEmbeddingHost("http://localhost:11434/v1"))
	cfg.Normalize()
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig(
		WithEmbeddingHost("http://localhost:8080"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithProvider("openai"),
	)
	require.NoError(t, cfg.Validate())

	missing := &Config{EmbeddingModel: "m", Provider: "p"}
	assert.Error(t, missing.Validate())

	missing = &Config{EmbeddingHost: "http://h", Provider: "p"}
	assert.Error(t, missing.Validate())

	missing = &Config{EmbeddingHost: "http://h", EmbeddingModel: "m"}
	assert.Error(t, missing.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "openai", cfg.Provider)
}
