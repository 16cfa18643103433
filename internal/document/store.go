// Package document manages the shared on-disk configuration document: a
// single JSON file mapping class keys to blocks of persisted field values.
// Loads are tolerant (a missing or corrupt file reads as an empty document);
// saves are read-modify-write under a store-scoped lock and land on disk via
// an atomic rename, so readers never observe a partially written file.
package document

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/atomic"

	"github.com/lc/stash/internal/filesys"
	"github.com/lc/stash/internal/log"
)

// DefaultFileName is the document file created under the stash directory.
const DefaultFileName = "stash.json"

// DefaultDirName is the per-user stash directory, relative to $HOME.
const DefaultDirName = ".stash"

// filePerm is the mode the document is persisted with.
const filePerm = os.FileMode(0o644)

// Document is the parsed top-level mapping. Values under keys this process
// does not manage are carried verbatim so sibling classes survive a save.
type Document map[string]any

// Block returns the class block stored under key, or an empty map when the
// key is absent or its value is not an object.
func (d Document) Block(key string) map[string]any {
	block, _ := d[key].(map[string]any)
	if block == nil {
		return map[string]any{}
	}
	return block
}

// Store is the persistence surface sessions work against.
type Store interface {
	// Load reads the current document. It never fails: an absent,
	// unreadable, or malformed file reads as an empty document.
	Load() Document
	// Replace re-reads the document, swaps in block under key leaving all
	// sibling entries untouched, and persists atomically. A nil block
	// removes the key. The read-modify-write-replace sequence is
	// serialized by a store-scoped lock.
	Replace(key string, block map[string]any) error
	// Path returns the document's file path.
	Path() string
}

var _ Store = (*FileStore)(nil)

// FileStore is the file-backed Store implementation.
type FileStore struct {
	mu    sync.Mutex // serializes Replace's read-modify-write-replace
	fs    filesys.FS
	path  string
	saves atomic.Int64 // metrics: completed saves
}

// New creates a file-backed store at path using the OS filesystem.
func New(path string) *FileStore {
	return NewWithFS(filesys.OS(), path)
}

// NewWithFS creates a file-backed store with an injected filesystem,
// keeping the store unit-testable.
func NewWithFS(fs filesys.FS, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

var (
	sharedMu sync.Mutex
	shared   = map[string]*FileStore{}
)

// Shared returns the process-wide store for path, creating it on first use.
// All sessions against one path must go through the same store so its lock
// serializes every save in the process.
func Shared(path string) *FileStore {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	s, ok := shared[path]
	if !ok {
		s = New(path)
		shared[path] = s
	}
	return s
}

// DefaultPath resolves the per-user document path (~/.stash/stash.json).
// If the home directory cannot be determined it falls back to the current
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("could not determine home directory: %v", err)
		home = ""
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName)
}

// Path returns the document's file path.
func (s *FileStore) Path() string { return s.path }

// Saves returns the number of completed saves.
func (s *FileStore) Saves() int64 { return s.saves.Load() }

// Load reads and parses the document. Absent, unreadable, or malformed
// files read as an empty document; the condition is logged but never
// surfaced, per the recovery policy for unreadable documents.
func (s *FileStore) Load() Document {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("document unreadable, treating as empty", "path", s.path, "err", err)
		}
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn("document malformed, treating as empty", "path", s.path, "err", err)
		return Document{}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc
}

// Replace merges block into the document under key and persists the result.
// The document is re-read fresh inside the lock so a concurrent save from
// another goroutine is never clobbered with stale sibling data.
func (s *FileStore) Replace(key string, block map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load()
	if block == nil {
		delete(doc, key)
	} else {
		doc[key] = block
	}

	data, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := filesys.AtomicWrite(s.fs, s.path, data, filePerm); err != nil {
		return err
	}
	s.saves.Inc()
	return nil
}

// marshalDocument renders the document as pretty-printed JSON with
// non-ASCII characters preserved, so the file stays hand-editable.
func marshalDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *FileStore) ensureDir() error {
	dir := filepath.Dir(s.path)
	if _, err := s.fs.Stat(dir); os.IsNotExist(err) {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
