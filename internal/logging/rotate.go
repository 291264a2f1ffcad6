package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// MaxLogFileSize is the maximum size of a log file before rotation (10MB)
	MaxLogFileSize = 10 * 1024 * 1024

	// MaxLogFiles is the number of rotated log files to keep
	MaxLogFiles = 5
)

// RotatingFile is an append-only log file that is renamed to <path>.1 once it
// grows past maxSize. Older backups shift to .2, .3, ... and the oldest is
// dropped after maxFiles.
type RotatingFile struct {
	path     string
	maxSize  int64
	maxFiles int

	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenRotatingFile opens path for appending, rotating first if it is already
// over maxSize.
func OpenRotatingFile(path string, maxSize int64, maxFiles int) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &RotatingFile{path: path, maxSize: maxSize, maxFiles: maxFiles}

	if info, err := os.Stat(path); err == nil && info.Size() >= maxSize {
		if err := r.rotate(); err != nil {
			return nil, fmt.Errorf("failed to rotate log: %w", err)
		}
	}

	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// Write appends p, rotating beforehand if the write would exceed maxSize.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		r.file.Close()
		r.file = nil
		if err := r.rotate(); err != nil {
			// Can't log this error since we're in the logging system
			fmt.Fprintf(os.Stderr, "Failed to rotate log files: %v\n", err)
		}
		if err := r.open(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Backups returns the rotated files that currently exist, newest first.
func (r *RotatingFile) Backups() []string {
	var rotated []string
	for i := 1; i <= r.maxFiles; i++ {
		name := fmt.Sprintf("%s.%d", r.path, i)
		if _, err := os.Stat(name); err == nil {
			rotated = append(rotated, name)
		}
	}
	return rotated
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// rotate shifts <path>.N-1 to <path>.N and the live file to <path>.1.
func (r *RotatingFile) rotate() error {
	oldest := fmt.Sprintf("%s.%d", r.path, r.maxFiles)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove oldest log file: %w", err)
	}

	for i := r.maxFiles - 1; i >= 1; i-- {
		oldName := fmt.Sprintf("%s.%d", r.path, i)
		newName := fmt.Sprintf("%s.%d", r.path, i+1)
		if _, err := os.Stat(oldName); err == nil {
			if err := os.Rename(oldName, newName); err != nil {
				return fmt.Errorf("failed to rotate log file %s to %s: %w", oldName, newName, err)
			}
		}
	}

	if err := os.Rename(r.path, r.path+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate current log file: %w", err)
	}
	return nil
}
