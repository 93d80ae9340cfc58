package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const FileName = "geo-gap-compass.json"

// FileProvider persists every key in a single JSON file, one string value
// per key, the way a browser keeps localStorage.
type FileProvider struct {
	mutex    sync.RWMutex
	values   map[string]string
	filePath string
}

// NewFileProvider opens (or creates) the store file under dataDir.
func NewFileProvider(dataDir string) (*FileProvider, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := &FileProvider{
		values:   make(map[string]string),
		filePath: filepath.Join(dataDir, FileName),
	}

	if err := f.load(); err != nil && !os.IsNotExist(err) {
		f.quarantine(err)
	}
	return f, nil
}

// Path returns the backing file.
func (f *FileProvider) Path() string {
	return f.filePath
}

func (f *FileProvider) load() error {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	return json.Unmarshal(data, &f.values)
}

// quarantine moves an unreadable store file aside and starts empty.
func (f *FileProvider) quarantine(cause error) {
	f.values = make(map[string]string)
	aside := f.filePath + ".corrupt"
	if err := os.Rename(f.filePath, aside); err != nil {
		slog.Error("store: unreadable store file could not be moved aside", "path", f.filePath, "cause", cause, "error", err)
		return
	}
	slog.Warn("store: unreadable store file moved aside, starting empty", "path", f.filePath, "moved_to", aside, "error", cause)
}

// save must be called with the write lock held.
func (f *FileProvider) save() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// rename is atomic on the same filesystem
	if err := os.Rename(tempFile, f.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (f *FileProvider) Get(key string) ([]byte, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (f *FileProvider) Set(key string, val []byte) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	prev, had := f.values[key]
	f.values[key] = string(val)
	if err := f.save(); err != nil {
		// keep memory and disk in agreement
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileProvider) Delete(key string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.save(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

func (f *FileProvider) Close() error { return nil }

// Keys returns the stored keys, sorted.
func (f *FileProvider) Keys() []string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
