package resolver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FileSystem is what the pipeline needs to probe candidates.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
}

// OSFS reads the local disk.
type OSFS struct{}

// Stat implements FileSystem.
func (OSFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// IOFS exposes an fs.FS rooted at "/" as a FileSystem, so absolute paths
// like /proj/src/a.ts map to proj/src/a.ts inside FS.
type IOFS struct {
	FS fs.FS
}

// Stat implements FileSystem.
func (f IOFS) Stat(name string) (fs.FileInfo, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(name)), "/")
	if clean == "" {
		clean = "."
	}
	return fs.Stat(f.FS, clean)
}

type statEntry struct {
	info fs.FileInfo
	err  error
}

// CachedFS memoises Stat answers, including misses, in a bounded LRU.
type CachedFS struct {
	fs    FileSystem
	cache *lru.Cache[string, statEntry]
}

// NewCachedFS wraps inner with a cache of size entries.
func NewCachedFS(inner FileSystem, size int) (*CachedFS, error) {
	cache, err := lru.New[string, statEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating stat cache: %w", err)
	}
	return &CachedFS{fs: inner, cache: cache}, nil
}

// Stat implements FileSystem.
func (c *CachedFS) Stat(name string) (fs.FileInfo, error) {
	if e, ok := c.cache.Get(name); ok {
		return e.info, e.err
	}
	info, err := c.fs.Stat(name)
	c.cache.Add(name, statEntry{info: info, err: err})
	return info, err
}

// Purge drops every cached answer.
func (c *CachedFS) Purge() {
	c.cache.Purge()
}

// Len reports the number of cached answers.
func (c *CachedFS) Len() int {
	return c.cache.Len()
}

func isFile(fsys FileSystem, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

func isDir(fsys FileSystem, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}
