package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// FileStore owns the backing files. No other component opens them, and no
// component holds a long-lived handle: every operation is a whole-file read
// or a whole-file atomic replace.
type FileStore struct {
	codec       *Codec
	lockTimeout time.Duration

	// renameFn is swapped in tests to simulate a crash between the temp
	// file and the destination.
	renameFn func(oldpath, newpath string) error
}

func NewFileStore(codec *Codec, lockTimeout time.Duration) *FileStore {
	return &FileStore{
		codec:       codec,
		lockTimeout: lockTimeout,
		renameFn:    os.Rename,
	}
}

// ReadAll returns every row of the file, header included. A missing file is
// ErrNotFound; an undecodable file is ErrCorruptData. There is no partial
// result: the caller gets the whole table or an error.
func (f *FileStore) ReadAll(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(StripBOM(raw)))
	r.Comma = f.codec.Comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	return records, nil
}

// WriteAll atomically replaces the file: rows go to a temp file in the same
// directory, which is fsynced and renamed over the destination. A crash
// anywhere before the rename leaves the original untouched.
func (f *FileStore) WriteAll(path string, records [][]string, useBOM bool) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = f.codec.Comma
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	data := buf.Bytes()
	if useBOM {
		data = EnsureSingleBOM(data)
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		f.discardTemp(tmp)
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		f.discardTemp(tmp)
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		f.discardTemp(tmp)
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := f.renameFn(tmp, path); err != nil {
		f.discardTemp(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (f *FileStore) discardTemp(tmp string) {
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove temp file", "path", tmp, "error", err)
	}
}

// AppendRow adds one row without rewriting the file. If the append creates
// the file, the single-BOM invariant still holds: the BOM is written first.
func (f *FileStore) AppendRow(path string, record []string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM to %s: %w", path, err)
		}
	}

	w := csv.NewWriter(file)
	w.Comma = f.codec.Comma
	if err := w.Write(record); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return file.Sync()
}

// WithExclusiveLock serializes writers on path through an advisory lock held
// for the duration of fn. The lock lives on a sidecar file so the atomic
// rename of the data file never swaps the locked inode out from under a
// waiter. The wait is bounded; expiry surfaces ErrLockTimeout.
func (f *FileStore) WithExclusiveLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), f.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release file lock", "path", path, "error", err)
		}
	}()

	return fn()
}

// CreateRequiredFiles creates each missing backing file with its header row
// and BOM. Existing files are never touched, so it is safe to run on every
// startup.
func (f *FileStore) CreateRequiredFiles(headers map[string][]string) error {
	for path, header := range headers {
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
		if err := f.WriteAll(path, [][]string{header}, true); err != nil {
			return err
		}
		slog.Info("Created backing file", "path", path)
	}
	return nil
}
