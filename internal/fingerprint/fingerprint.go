// Package fingerprint decides whether stylesheet sources changed since the previous run.
//
// A Snapshot maps each source file's absolute, forward-slash path to the hex CRC-32 of its
// contents. Snapshots persist as a flat text file with one "<checksum> <path>" line per file.
package fingerprint

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/yacobolo/stylebuild/internal/resource"
)

// DefaultExtension is the stylesheet extension fingerprinted when none is configured.
const DefaultExtension = "scss"

// CacheFileName is the checksum file name inside the cache directory.
const CacheFileName = "checksums"

// Snapshot maps absolute source file paths to checksums.
type Snapshot map[string]string

// Load reads a persisted snapshot. A missing file yields an empty snapshot.
// Lines without a space are ignored.
func Load(cacheFile string) (Snapshot, error) {
	snapshot := Snapshot{}

	f, err := os.Open(cacheFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return snapshot, nil
		}
		return nil, fmt.Errorf("opening checksum file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		checksum, file, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		snapshot[file] = checksum
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksum file %s: %w", cacheFile, err)
	}

	return snapshot, nil
}

// Persist overwrites cacheFile with one "<checksum> <path>" line per entry, sorted by path.
func Persist(cacheFile string, snapshot Snapshot) error {
	var b strings.Builder
	var files []string
	for file := range snapshot {
		files = append(files, file)
	}
	slices.Sort(files)
	for _, file := range files {
		b.WriteString(snapshot[file])
		b.WriteByte(' ')
		b.WriteString(file)
		b.WriteByte('\n')
	}

	if err := atomicWrite(cacheFile, []byte(b.String())); err != nil {
		return fmt.Errorf("writing checksum file: %w", err)
	}
	return nil
}

// Compute checksums every file with the given extension below the source side of each pair.
// Missing source directories are skipped.
func Compute(pairs []resource.DirectoryPair, extension string) (Snapshot, error) {
	if extension == "" {
		extension = DefaultExtension
	}
	suffix := "." + strings.TrimPrefix(extension, ".")

	snapshot := Snapshot{}
	for _, pair := range pairs {
		dir := filepath.FromSlash(pair.SourceDir)
		if _, err := os.Stat(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", pair.SourceDir, err)
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
				return nil
			}
			// Linked stylesheets are compiled too, so they are keyed by their target.
			if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
				return nil
			}

			key, err := canonicalPath(path)
			if err != nil {
				return err
			}
			if _, seen := snapshot[key]; seen {
				return nil
			}

			sum, err := Checksum(path)
			if err != nil {
				return err
			}
			snapshot[key] = sum
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("fingerprinting %s: %w", pair.SourceDir, err)
		}
	}

	return snapshot, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resource.NormalizePath(resolved), nil
}

// Checksum returns the lower-case hex CRC-32 (IEEE) of the file's bytes, without padding.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return strconv.FormatUint(uint64(h.Sum32()), 16), nil
}

// ShouldRebuild is false only when both snapshots hold the same files with the same checksums.
func ShouldRebuild(previous, current Snapshot) bool {
	return !maps.Equal(previous, current)
}
