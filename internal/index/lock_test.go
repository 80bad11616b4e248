package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

func TestFileLock_ExclusiveTryLock(t *testing.T) {
	// Given: a lock held on a language directory
	dir := filepath.Join(t.TempDir(), "english")
	first := NewFileLock(dir)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = first.Unlock() }()

	// When: a second lock on the same directory is tried
	second := NewFileLock(dir)
	err = second.MustTryLock()

	// Then: it fails with the ingest-locked code
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIngestLocked))
	assert.True(t, errors.IsRetryable(err))
	assert.False(t, second.IsLocked())
}

func TestFileLock_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	first := NewFileLock(dir)
	require.NoError(t, first.Lock())
	assert.True(t, first.IsLocked())
	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())

	second := NewFileLock(dir)
	require.NoError(t, second.MustTryLock())
	assert.Equal(t, filepath.Join(dir, LockFile), second.Path())
	require.NoError(t, second.Unlock())
}
