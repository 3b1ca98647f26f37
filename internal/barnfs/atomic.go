package barnfs

import (
	"os"
	"path/filepath"

	"github.com/samson-media/barn/internal/l3"
)

var logger = l3.Get("barnfs")

// WriteAtomic writes data to path such that a concurrent reader or a crash
// mid-write never observes a partial file: it writes to a sibling temp
// file, flushes and fsyncs it, renames it over the target, then fsyncs the
// containing directory so the rename itself survives a crash.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return fsyncDir(dir)
}

// ReadFile reads path, returning ok=false (no error) if the file does not
// exist — absence is a normal, expected outcome for most state fields.
func ReadFile(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Remove atomically clears a field by deleting its file. A missing file is
// not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	dir := filepath.Dir(path)
	return fsyncDir(dir)
}

// AppendLine opens path in append mode, writes line plus a trailing
// newline, and fsyncs before returning so the entry survives a crash. No
// locking is performed — append-only fields have exactly one writer.
func AppendLine(path string, line string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return f.Sync()
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		// Best-effort: some platforms (notably Windows) don't support
		// opening and fsyncing a directory handle.
		logger.DebugF("fsyncDir: could not open %s for fsync: %v", dir, err)
		return nil
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		logger.DebugF("fsyncDir: sync of %s not supported: %v", dir, err)
		return nil
	}
	return nil
}
