// Package filesys provides the file system seam for the stash library.
// It defines the small interface the document store and config loader need
// and an implementation that delegates to the standard library, so code
// touching the disk stays unit-testable.
package filesys

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the tiny surface the document store and the config loader need.
// It is intentionally smaller than the os package because callers never
// need random-access writes or directory iteration.
type FS interface {
	Stat(string) (fs.FileInfo, error)
	MkdirAll(string, os.FileMode) error
	Open(string) (*os.File, error)
	ReadFile(string) ([]byte, error)
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// OS returns a file system implementation that delegates to the standard
// library.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements FS against the local disk.
// All methods delegate to the standard library.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error)           { return os.Stat(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }
func (OsFS) ReadFile(p string) ([]byte, error)            { return os.ReadFile(p) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

var _ FS = OsFS{}

// AtomicWrite atomically persists data to dst with the provided file mode.
// The write is crash-safe on local filesystems:
//
//  1. temp file in the same dir
//  2. fsync(temp) + close
//  3. chmod(temp, perm)  (so rename doesn’t carry 0600 default)
//  4. rename(temp, dst)
//  5. fsync(dir)
//
// On any failure before the rename the temp file is removed and dst is left
// untouched, so the previously persisted content stays authoritative.
func AtomicWrite(fs FS, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	tmp, err := fs.CreateTemp(dir, ".stash-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		removeTemp(fs, tmp.Name())
		return err
	}
	if err = fs.Chmod(tmp.Name(), perm); err != nil {
		removeTemp(fs, tmp.Name())
		return err
	}
	if err = fs.Rename(tmp.Name(), dst); err != nil {
		removeTemp(fs, tmp.Name())
		return err
	}
	if d, err2 := fs.Open(dir); err2 == nil {
		if syncErr := d.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to sync directory %s: %v\n", dir, syncErr)
		}
		if closeErr := d.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close directory %s: %v\n", dir, closeErr)
		}
	}
	return nil
}

// removeTemp cleans up a temp file after a failed write. The caller keeps
// its original error; a failed removal is only reported.
func removeTemp(fs FS, name string) {
	if err := fs.Remove(name); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove temp file %s: %v\n", name, err)
	}
}
