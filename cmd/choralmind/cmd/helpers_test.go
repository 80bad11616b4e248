package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const englishHymns = "Tune - Abide with me fast falls the eventide the darkness deepens Lord with me abide\n" +
	"C.M. Rock of ages cleft for me let me hide myself in thee let the water and the blood\n" +
	"S.S. Amazing grace how sweet the sound that saved a wretch like me I once was lost\n"

const projectConfig = `data_dir: data
sources:
  english:
    path: src/English
    layout: single
  yoruba:
    path: src/Yoruba
    layout: single
embeddings:
  provider: static
  dimensions: 64
completion:
  provider: none
`

// newProject writes an offline project (static embeddings, no completion)
// with English sources only, and isolates the user config.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "choralmind.yaml"), []byte(projectConfig), 0o644))

	english := filepath.Join(dir, "src", "English")
	require.NoError(t, os.MkdirAll(english, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(english, "hymns.txt"), []byte(englishHymns), 0o644))
	return dir
}

// run executes the CLI with args against dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{"--dir", dir, "--log-file", ""}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
