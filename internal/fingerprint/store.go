package fingerprint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// Detector runs the incremental check against one checksum file.
type Detector struct {
	CacheFile string
	Extension string
}

// NewDetector creates a detector for cacheFile fingerprinting files with extension.
func NewDetector(cacheFile, extension string) *Detector {
	return &Detector{CacheFile: cacheFile, Extension: extension}
}

// Check reports whether the sources below pairs changed since the last check. The fresh
// snapshot is persisted whatever the outcome. Concurrent checks against the same file,
// from any process, are serialized by a lock file next to it.
func (d *Detector) Check(pairs []resource.DirectoryPair) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(d.CacheFile), 0755); err != nil {
		return false, fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(d.CacheFile + ".lock")
	if err := lock.Lock(); err != nil {
		return false, fmt.Errorf("failed to acquire lock on %s: %w", d.CacheFile, err)
	}
	defer lock.Unlock()

	previous, err := Load(d.CacheFile)
	if err != nil {
		return false, err
	}
	current, err := Compute(pairs, d.Extension)
	if err != nil {
		return false, err
	}

	rebuild := ShouldRebuild(previous, current)

	if err := Persist(d.CacheFile, current); err != nil {
		return false, err
	}
	return rebuild, nil
}

// atomicWrite writes data to a temp file in the target directory and renames it into place,
// so readers never observe a partially written checksum file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}
