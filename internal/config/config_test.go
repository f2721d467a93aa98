package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.WindowSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, 5, cfg.Query.TopK)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunking:
  window_size: 800
embedder:
  type: openai
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.WindowSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap, "unset fields keep defaults")
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.DataDir = "/tmp/corpus"
	cfg.Query.TopK = 7

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/corpus", loaded.DataDir)
	assert.Equal(t, 7, loaded.Query.TopK)
}
