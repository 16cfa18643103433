package filesys_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lc/stash/internal/filesys"
	"github.com/lc/stash/internal/mocks"
)

func TestAtomicWrite_ReplacesTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dst := filepath.Join(dir, "stash.json")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	require.NoError(t, filesys.AtomicWrite(filesys.OS(), dst, []byte("new"), 0o644))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWrite_SetsMode(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "stash.json")
	require.NoError(t, filesys.AtomicWrite(filesys.OS(), dst, []byte("{}"), 0o600))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAtomicWrite_CreateTempFailure(t *testing.T) {
	t.Parallel()

	fs := new(mocks.MockFS)
	fs.On("CreateTemp", mock.Anything, mock.Anything).Return(nil, errors.New("no space"))

	err := filesys.AtomicWrite(fs, "/nope/stash.json", []byte("{}"), 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space")
}

func TestAtomicWrite_RenameFailureCleansUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tmp, err := os.CreateTemp(dir, ".stash-*")
	require.NoError(t, err)

	fs := new(mocks.MockFS)
	fs.On("CreateTemp", mock.Anything, mock.Anything).Return(tmp, nil)
	fs.On("Chmod", tmp.Name(), mock.Anything).Return(nil)
	fs.On("Rename", tmp.Name(), mock.Anything).Return(errors.New("cross-device link"))
	fs.On("Remove", tmp.Name()).Return(nil)

	err = filesys.AtomicWrite(fs, filepath.Join(dir, "stash.json"), []byte("{}"), 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cross-device link")
	fs.AssertCalled(t, "Remove", tmp.Name())
}
