package lumen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sky.hdr")
	other := filepath.Join(dir, "other.hdr")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	fw, err := NewFileWatcher(nil, target)
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("b"), 0o644))

	var got string
	require.Eventually(t, func() bool {
		name, ok := fw.Poll()
		if ok {
			got = name
		}
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	want, err := filepath.Abs(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileWatcherKeepsLatest(t *testing.T) {
	fw := &FileWatcher{changes: make(chan string, 1), logger: NewNopLogger()}
	fw.publish("a")
	fw.publish("b")
	name, ok := fw.Poll()
	assert.True(t, ok)
	assert.Equal(t, "b", name)
	_, ok = fw.Poll()
	assert.False(t, ok)
}

func TestFileWatcherMissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(nil, filepath.Join(t.TempDir(), "nope", "sky.hdr"))
	assert.Error(t, err)
}
