// Package archive manages the local content-addressed block cache:
// one compressed record per height at root/millions/thousands/height.rmp.lz4.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/evmstore/blockcache/internal/core/domain"
)

// Store reads and writes cache entries under a root directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir. The directory does not need to
// exist yet; writes create it.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path of a height's cache entry.
func (s *Store) Path(height uint64) string {
	return filepath.Join(s.root, filepath.FromSlash(domain.RelPath(height)))
}

// Exists reports whether the entry for a height is present.
func (s *Store) Exists(height uint64) bool {
	_, err := os.Stat(s.Path(height))
	return err == nil
}

// Write stores an entry as a complete create-or-overwrite. Parent
// directories are created as needed; already-existing directories are
// fine because concurrent writers may race on the same shard.
func (s *Store) Write(height uint64, data []byte) error {
	path := s.Path(height)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shard dir for %d: %w", height, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write entry %d: %w", height, err)
	}
	return nil
}

// Read returns the raw compressed bytes of a height's entry.
func (s *Store) Read(height uint64) ([]byte, error) {
	data, err := os.ReadFile(s.Path(height))
	if err != nil {
		return nil, fmt.Errorf("read entry %d: %w", height, err)
	}
	return data, nil
}

// LatestHeight finds the highest height in the cache by walking the shard
// tree in numeric order at each level: largest millions dir first, then
// largest thousands dir, then the highest filename inside. Non-numeric or
// unreadable entries are skipped. Returns 0 for an empty or absent cache.
func (s *Store) LatestHeight() uint64 {
	for _, millions := range numericDirsDesc(s.root) {
		mDir := filepath.Join(s.root, millions)
		for _, thousands := range numericDirsDesc(mDir) {
			if best := highestEntry(filepath.Join(mDir, thousands)); best > 0 {
				return best
			}
		}
	}
	return 0
}

func numericDirsDesc(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.ParseUint(e.Name(), 10, 64); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.ParseUint(names[i], 10, 64)
		b, _ := strconv.ParseUint(names[j], 10, 64)
		return a > b
	})
	return names
}

func highestEntry(dir string) uint64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var best uint64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, domain.FileExt) {
			continue
		}
		h, err := strconv.ParseUint(strings.TrimSuffix(name, domain.FileExt), 10, 64)
		if err != nil {
			continue
		}
		if h > best {
			best = h
		}
	}
	return best
}
