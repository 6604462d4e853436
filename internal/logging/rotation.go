package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter is a size-based rotating log file writer, safe for concurrent use.
// When the active file exceeds maxSize it is renamed to <path>.1, shifting
// older backups up by one and discarding the oldest.
type FileWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	maxSize int64
	keep    int
	size    int64
}

// NewFileWriter opens (or creates) the log file at path. maxSizeMB bounds the
// active file size before rotation; keep is how many rotated files to retain.
func NewFileWriter(path string, maxSizeMB, keep int) (*FileWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if keep <= 0 {
		keep = 2
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &FileWriter{
		path:    path,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		keep:    keep,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("log rotation: %w", err)
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func (w *FileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *FileWriter) rotate() error {
	if w.file != nil {
		w.file.Close()
	}

	os.Remove(fmt.Sprintf("%s.%d", w.path, w.keep))
	for i := w.keep; i >= 2; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.path, i-1), fmt.Sprintf("%s.%d", w.path, i))
	}
	os.Rename(w.path, w.path+".1")

	return w.open()
}
