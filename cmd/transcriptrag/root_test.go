package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	root := NewRootCmd("test")

	want := []string{"ingest", "query", "list", "view", "delete", "serve", "watch"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestQueryCmdFlags(t *testing.T) {
	root := NewRootCmd("test")
	cmd, _, err := root.Find([]string{"query"})
	require.NoError(t, err)

	for _, flag := range []string{"k", "scope", "backend", "show-context"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestSourceIDFromPath(t *testing.T) {
	assert.Equal(t, "episode-01", sourceIDFromPath("/drop/episode-01.srt"))
	assert.Equal(t, "talk.en", sourceIDFromPath("talk.en.vtt"))
	assert.Equal(t, "notes", sourceIDFromPath("notes"))
}

func TestLoadConfigHonorsFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /tmp/from-file\n"), 0o644))

	root := NewRootCmd("test")
	require.NoError(t, root.PersistentFlags().Set("config", path))

	cfg, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file", cfg.DataDir)

	require.NoError(t, root.PersistentFlags().Set("data-dir", "/tmp/override"))
	cfg, err = loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
}

func TestIngestRequiresIDForStdin(t *testing.T) {
	root := NewRootCmd("test")
	cmd, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("id"))
}
