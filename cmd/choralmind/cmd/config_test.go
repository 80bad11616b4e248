package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/config"
)

func TestConfigInit_WritesDefaults(t *testing.T) {
	// Given: an empty project directory
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	// When: running config init
	stdout, _, err := run(t, dir, "config", "init")

	// Then: choralmind.yaml holds a loadable default configuration
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created project configuration")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 100, cfg.Chunk.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.K)
}

func TestConfigInit_KeepsExistingWithoutForce(t *testing.T) {
	// Given: a project with a config
	dir := newProject(t)
	path := filepath.Join(dir, config.ProjectConfigName)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// When: running config init without --force
	stdout, _, err := run(t, dir, "config", "init")

	// Then: the file is untouched
	require.NoError(t, err)
	assert.Contains(t, stdout, "already exists")
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConfigInit_ForceBacksUp(t *testing.T) {
	// Given: a project with a config
	dir := newProject(t)
	path := filepath.Join(dir, config.ProjectConfigName)

	// When: running config init --force
	stdout, _, err := run(t, dir, "config", "init", "--force")

	// Then: a backup of the previous file exists
	require.NoError(t, err)
	assert.Contains(t, stdout, "Backup:")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, projectConfig, string(data))
}

func TestConfigShow_JSON(t *testing.T) {
	dir := newProject(t)

	stdout, _, err := run(t, dir, "config", "show", "--json")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	embeddings := got["embeddings"].(map[string]any)
	assert.Equal(t, "static", embeddings["provider"])
}

func TestConfigShow_UnknownSource(t *testing.T) {
	dir := newProject(t)

	_, _, err := run(t, dir, "config", "show", "--source", "user")

	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	dir := newProject(t)

	stdout, _, err := run(t, dir, "config", "path")

	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(dir, config.ProjectConfigName))
	assert.Contains(t, stdout, config.GetUserConfigPath())
}
