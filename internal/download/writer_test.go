package download

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artist", "album", "01 - track.flac")

	n, err := writeAtomic(path, strings.NewReader("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("audio bytes")), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01 - track.flac", entries[0].Name())
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	_, err := writeAtomic(path, strings.NewReader("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteAtomic_RemovesTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.flac")

	_, err := writeAtomic(path, brokenReader{})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "final file must not exist after a failed write")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed write must not leave a temp file")
}

func TestExistingFile(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "01 - track")
	require.NoError(t, os.WriteFile(base+".mp3", []byte("x"), 0o644))

	assert.Equal(t, base+".mp3", existingFile(base, []string{".mp3", ".flac"}))
	assert.Equal(t, "", existingFile(base, []string{".flac"}))
	assert.Equal(t, "", existingFile(filepath.Join(dir, "other"), []string{".mp3", ".flac"}))
}

func TestExistingFile_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "track")
	require.NoError(t, os.Mkdir(base+".mp3", 0o755))

	assert.Equal(t, "", existingFile(base, []string{".mp3"}))
}
