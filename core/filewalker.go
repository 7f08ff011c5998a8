package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileWalker provides parallel discovery of source files
type FileWalker struct {
	workers    int
	bufferSize int
}

// NewFileWalker creates a new file walker
func NewFileWalker() *FileWalker {
	return &FileWalker{
		workers:    runtime.NumCPU() * 2, // I/O bound
		bufferSize: 1000,
	}
}

// WalkResult represents a discovered file
type WalkResult struct {
	Path     string
	Info     fs.FileInfo
	Language string
	Error    error
}

// Walk performs parallel directory traversal with pattern matching
func (fw *FileWalker) Walk(ctx context.Context, scope FileScope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	go func() {
		defer close(paths)
		processed := 0
		var visited map[string]struct{}
		if scope.FollowSymlinks {
			visited = make(map[string]struct{})
			if resolved, err := filepath.EvalSymlinks(scope.Path); err == nil {
				visited[resolved] = struct{}{}
			} else {
				visited[scope.Path] = struct{}{}
			}
		}
		fw.scanDirectory(ctx, scope.Path, scope, paths, 0, &processed, visited)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

func (fw *FileWalker) worker(
	ctx context.Context,
	paths <-chan string,
	results chan<- WalkResult,
	scope FileScope,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}

			result := fw.processFile(path, scope)

			select {
			case <-ctx.Done():
				return
			case results <- result:
			}
		}
	}
}

// scanDirectory recursively discovers files matching patterns
func (fw *FileWalker) scanDirectory(
	ctx context.Context,
	dirPath string,
	scope FileScope,
	paths chan<- string,
	depth int,
	processed *int,
	visited map[string]struct{},
) {
	if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
		return
	}
	select {
	case <-ctx.Done():
		return
	default:
	}

	if scope.MaxDepth > 0 && depth > scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return // unreadable directories are skipped
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		rel := fw.relative(scope.Path, fullPath)

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 && scope.FollowSymlinks {
			resolvedPath, err := filepath.EvalSymlinks(fullPath)
			if err != nil || resolvedPath == "" {
				continue
			}
			info, err := os.Stat(resolvedPath)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if _, seen := visited[resolvedPath]; seen {
					continue
				}
				visited[resolvedPath] = struct{}{}
				isDir = true
			}
		}

		if isDir {
			if fw.isExcluded(rel, scope.Exclude) || fw.isExcluded(rel+"/", scope.Exclude) {
				continue
			}
			if visited != nil && entry.Type()&os.ModeSymlink == 0 {
				realPath := fullPath
				if resolved, err := filepath.EvalSymlinks(fullPath); err == nil && resolved != "" {
					realPath = resolved
				}
				if _, seen := visited[realPath]; seen {
					continue
				}
				visited[realPath] = struct{}{}
			}
			fw.scanDirectory(ctx, fullPath, scope, paths, depth+1, processed, visited)
			continue
		}

		if fw.isExcluded(rel, scope.Exclude) || !fw.isIncluded(rel, scope.Include) {
			continue
		}
		if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
			return
		}
		select {
		case <-ctx.Done():
			return
		case paths <- fullPath:
			*processed++
		}
	}
}

func (fw *FileWalker) relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// processFile analyzes a single file and creates WalkResult
func (fw *FileWalker) processFile(path string, scope FileScope) WalkResult {
	info, err := os.Stat(path)
	if err != nil {
		return WalkResult{Path: path, Error: err}
	}

	language := scope.Language
	if language == "" {
		language = DetectLanguage(path)
	}

	return WalkResult{
		Path:     path,
		Info:     info,
		Language: language,
	}
}

var languageByExtension = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
}

// DetectLanguage determines the grammar a file is parsed with from its
// extension. Declaration files count as TypeScript.
func DetectLanguage(path string) string {
	if lang, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "unknown"
}

// isIncluded checks if file matches include patterns
func (fw *FileWalker) isIncluded(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		if fw.matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// isExcluded checks if file matches exclude patterns
func (fw *FileWalker) isExcluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if fw.matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchPattern matches a slash separated path relative to the scope root.
// Patterns without a separator are also tried against the base name.
func (fw *FileWalker) matchPattern(path, pattern string) bool {
	if matched, err := doublestar.Match(pattern, path); err == nil && matched {
		return true
	}

	if !strings.Contains(pattern, "/") {
		if matched, err := doublestar.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}

func (fw *FileWalker) validateScope(scope FileScope) error {
	if scope.Path == "" {
		return fmt.Errorf("path is required")
	}

	info, err := os.Stat(scope.Path)
	if err != nil {
		return fmt.Errorf("cannot access path %s: %w", scope.Path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", scope.Path)
	}

	for _, pattern := range append(append([]string{}, scope.Include...), scope.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	return nil
}

// FastScan collects the paths of every discovered file, sorted
func (fw *FileWalker) FastScan(ctx context.Context, scope FileScope) ([]string, error) {
	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}

	var files []string
	for result := range results {
		if result.Error != nil {
			continue
		}
		files = append(files, result.Path)
	}
	sort.Strings(files)

	return files, ctx.Err()
}

// GetLanguageStats returns statistics about discovered files by language
func (fw *FileWalker) GetLanguageStats(ctx context.Context, scope FileScope) (map[string]int, error) {
	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int)
	for result := range results {
		if result.Error != nil {
			continue
		}
		stats[result.Language]++
	}

	return stats, nil
}
