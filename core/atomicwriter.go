package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrLockTimeout is returned when another writer holds a file for longer
// than the configured timeout.
var ErrLockTimeout = errors.New("timeout waiting for file lock")

// AtomicWriteConfig controls atomic writing behavior
type AtomicWriteConfig struct {
	UseFsync       bool          // Force fsync for durability
	LockTimeout    time.Duration // Max time to wait for file lock
	TempSuffix     string        // Suffix for temporary files
	BackupOriginal bool          // Keep a timestamped .bak copy before writing
}

// DefaultAtomicConfig returns the configuration used by rewrite --write.
// Backups are left to the transaction manager.
func DefaultAtomicConfig() AtomicWriteConfig {
	return AtomicWriteConfig{
		UseFsync:    false,
		LockTimeout: 5 * time.Second,
		TempSuffix:  ".tspaths.tmp",
	}
}

// AtomicWriter replaces files through a temp file and rename, guarded by
// a pid lock file next to the target.
type AtomicWriter struct {
	config AtomicWriteConfig
	mu     sync.Mutex
	held   map[string]*os.File
}

// NewAtomicWriter creates a new atomic writer
func NewAtomicWriter(config AtomicWriteConfig) *AtomicWriter {
	if config.TempSuffix == "" {
		config.TempSuffix = DefaultAtomicConfig().TempSuffix
	}
	return &AtomicWriter{
		config: config,
		held:   make(map[string]*os.File),
	}
}

// WriteFile atomically replaces path with content, keeping the mode of an
// existing file.
func (aw *AtomicWriter) WriteFile(path string, content []byte) error {
	if err := aw.lock(path); err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	defer aw.unlock(path)

	mode := os.FileMode(0o644)
	info, statErr := os.Stat(path)
	if statErr == nil {
		mode = info.Mode().Perm()
	}

	if aw.config.BackupOriginal && statErr == nil {
		if _, err := aw.backup(path); err != nil {
			return fmt.Errorf("backing up %s: %w", path, err)
		}
	}

	tmp := path + aw.config.TempSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if aw.config.UseFsync {
		if err := f.Sync(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("syncing temp file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

func (aw *AtomicWriter) lock(path string) error {
	lockPath := path + ".lock"
	deadline := time.Now().Add(aw.config.LockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			aw.mu.Lock()
			aw.held[path] = f
			aw.mu.Unlock()
			return nil
		}
		if !os.IsExist(err) {
			return err
		}
		if lockIsStale(lockPath) {
			os.Remove(lockPath)
			continue
		}
		if !time.Now().Before(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (aw *AtomicWriter) unlock(path string) {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	f, ok := aw.held[path]
	if !ok {
		return
	}
	f.Close()
	os.Remove(f.Name())
	delete(aw.held, path)
}

// lockIsStale reports whether the process that wrote lockPath is gone.
func lockIsStale(lockPath string) bool {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return true
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		// The owner has not written its pid yet.
		return false
	}
	pid, err := strconv.Atoi(text)
	if err != nil {
		return true
	}
	return !isProcessAlive(pid)
}

func (aw *AtomicWriter) backup(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dst := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	return dst, os.WriteFile(dst, content, 0o644)
}

// Cleanup releases every lock still held
func (aw *AtomicWriter) Cleanup() {
	aw.mu.Lock()
	paths := make([]string, 0, len(aw.held))
	for p := range aw.held {
		paths = append(paths, p)
	}
	aw.mu.Unlock()

	for _, p := range paths {
		aw.unlock(p)
	}
}

