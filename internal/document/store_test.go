package document_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lc/stash/internal/document"
	"github.com/lc/stash/internal/mocks"
)

func newStore(t *testing.T) (*document.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stash.json")
	return document.New(path), path
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	doc := s.Load()
	assert.Empty(t, doc)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()

	s, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	doc := s.Load()
	assert.Empty(t, doc)
}

func TestReplace_CreatesValidDocument(t *testing.T) {
	t.Parallel()

	s, path := newStore(t)
	require.NoError(t, s.Replace("Widget", map[string]any{"size": 10}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]map[string]any{"Widget": {"size": float64(10)}}, got)
	assert.EqualValues(t, 1, s.Saves())
}

func TestReplace_PreservesSiblingBlocks(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	require.NoError(t, s.Replace("Widget", map[string]any{"size": 10}))
	require.NoError(t, s.Replace("Gadget", map[string]any{"mode": "fast"}))
	require.NoError(t, s.Replace("Widget", map[string]any{"size": 42}))

	doc := s.Load()
	assert.Equal(t, map[string]any{"mode": "fast"}, doc.Block("Gadget"))
	assert.Equal(t, map[string]any{"size": float64(42)}, doc.Block("Widget"))
}

func TestReplace_PreservesUnknownSiblingContent(t *testing.T) {
	t.Parallel()

	s, path := newStore(t)
	seed := []byte(`{"Legacy": {"knob": "värde"}, "Scalar": 7}` + "\n")
	require.NoError(t, os.WriteFile(path, seed, 0o644))

	require.NoError(t, s.Replace("Widget", map[string]any{"size": 10}))

	doc := s.Load()
	assert.Equal(t, map[string]any{"knob": "värde"}, doc.Block("Legacy"))
	assert.Equal(t, float64(7), doc["Scalar"])
}

func TestReplace_NilBlockDeletesKey(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	require.NoError(t, s.Replace("Widget", map[string]any{"size": 10}))
	require.NoError(t, s.Replace("Widget", nil))

	doc := s.Load()
	_, ok := doc["Widget"]
	assert.False(t, ok)
}

func TestReplace_Idempotent(t *testing.T) {
	t.Parallel()

	s, path := newStore(t)
	block := map[string]any{"size": 10, "label": "alpha"}

	require.NoError(t, s.Replace("Widget", block))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Replace("Widget", block))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReplace_NonASCIIPreserved(t *testing.T) {
	t.Parallel()

	s, path := newStore(t)
	require.NoError(t, s.Replace("Widget", map[string]any{"label": "naïve café"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "naïve café")
}

func TestReplace_ConcurrentSavesIsolated(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	keys := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}

	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			return s.Replace(key, map[string]any{"n": i})
		})
	}
	require.NoError(t, g.Wait())

	doc := s.Load()
	for i, key := range keys {
		assert.Equal(t, map[string]any{"n": float64(i)}, doc.Block(key), key)
	}
}

func TestReplace_WriteFailurePropagates(t *testing.T) {
	t.Parallel()

	fs := new(mocks.MockFS)
	fs.On("ReadFile", mock.Anything).Return(nil, os.ErrNotExist)
	fs.On("Stat", mock.Anything).Return(nil, nil)
	fs.On("CreateTemp", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	s := document.NewWithFS(fs, "/nope/stash.json")
	err := s.Replace("Widget", map[string]any{"size": 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.EqualValues(t, 0, s.Saves())
}

func TestBlock_NonObjectValue(t *testing.T) {
	t.Parallel()

	doc := document.Document{"Scalar": 7}
	assert.Empty(t, doc.Block("Scalar"))
	assert.Empty(t, doc.Block("Missing"))
}
