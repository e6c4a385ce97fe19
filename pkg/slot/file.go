package slot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every slot in a single JSON object on disk.
type FileStore struct {
	Path string
	// Quota caps the encoded size of the whole file in bytes. Zero disables it.
	Quota int64

	logger *log.Logger
	mu     sync.RWMutex
	slots  map[string]string
}

// NewFileStore opens the store at path, loading existing slots if the file
// exists. A file that cannot be decoded is moved to path+".corrupt" and the
// store starts empty. Only I/O failures are returned.
func NewFileStore(path string, quota int64, logger *log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	fs := &FileStore{
		Path:   path,
		Quota:  quota,
		logger: logger,
		slots:  make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot file %s: %w", path, err)
	}

	var slots map[string]string
	if err := json.Unmarshal(data, &slots); err != nil {
		backupPath := path + ".corrupt"
		if rerr := os.Rename(path, backupPath); rerr != nil {
			fs.logger.Printf("Warning: corrupt slot file %s could not be backed up: %v", path, rerr)
		} else {
			fs.logger.Printf("Warning: corrupt slot file %s (backed up to %s), starting empty: %v", path, backupPath, err)
		}
		return fs, nil
	}
	if slots != nil {
		fs.slots = slots
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	v, ok := fs.slots[key]
	return v, ok, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := make(map[string]string, len(fs.slots)+1)
	for k, v := range fs.slots {
		next[k] = v
	}
	next[key] = value
	if err := fs.write(next); err != nil {
		return err
	}
	fs.slots = next
	return nil
}

func (fs *FileStore) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.slots[key]; !exists {
		return nil
	}
	next := make(map[string]string, len(fs.slots))
	for k, v := range fs.slots {
		if k != key {
			next[k] = v
		}
	}
	if err := fs.write(next); err != nil {
		return err
	}
	fs.slots = next
	return nil
}

func (fs *FileStore) Close() error { return nil }

// write encodes slots and atomically replaces the file. Caller holds mu.
func (fs *FileStore) write(slots map[string]string) error {
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding slots: %w", err)
	}
	if fs.Quota > 0 && int64(len(data)) > fs.Quota {
		return fmt.Errorf("writing %d bytes to %s (quota %d): %w", len(data), fs.Path, fs.Quota, ErrQuotaExceeded)
	}

	if err := os.MkdirAll(filepath.Dir(fs.Path), 0700); err != nil {
		return fmt.Errorf("creating slot directory: %w", err)
	}
	tmpPath := fs.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("writing temp slot file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp slot file: %w", err)
	}
	return nil
}
