package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
)

// publishPointer replaces CURRENT the way ingest does: temp file + rename.
func publishPointer(t *testing.T, dataDir string, lang hymn.Language, gen string) {
	t.Helper()
	dir := filepath.Join(dataDir, lang.String())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	tmp := filepath.Join(dir, index.CurrentFile+".tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(gen+"\n"), 0o644))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, index.CurrentFile)))
}
