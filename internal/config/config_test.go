package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	require.NoError(t, LoadConfig())

	cfg := GetAppConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "8000", cfg.Server.Port)

	assert.InDelta(t, 0.7, cfg.Retrieval.SparseWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Retrieval.DenseWeight, 1e-9)
	assert.Equal(t, 20, cfg.Retrieval.SparseK)
	assert.Equal(t, 20, cfg.Retrieval.DenseK)
	assert.Equal(t, 7, cfg.Retrieval.TopK)

	assert.Equal(t, 1200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "memory", cfg.Retrieval.SparseBackend)
	assert.Equal(t, "memory", cfg.Retrieval.DenseBackend)
}
