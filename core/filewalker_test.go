package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"a.ts", "typescript"},
		{"a.mts", "typescript"},
		{"a.cts", "typescript"},
		{"a.d.ts", "typescript"},
		{"A.TS", "typescript"},
		{"a.tsx", "tsx"},
		{"a.js", "javascript"},
		{"a.jsx", "javascript"},
		{"a.mjs", "javascript"},
		{"a.cjs", "javascript"},
		{"a.json", "unknown"},
		{"a.go", "unknown"},
		{"Makefile", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectLanguage(tt.filename))
		})
	}
}

func TestFileWalker_FastScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/index.ts":                     "",
		"src/app/button.tsx":               "",
		"src/legacy/util.js":               "",
		"src/types/global.d.ts":            "",
		"src/styles.css":                   "",
		"node_modules/react/index.js":      "",
		"node_modules/@types/x/index.d.ts": "",
		"dist/index.js":                    "",
	})

	walker := NewFileWalker()
	ctx := context.Background()

	tests := []struct {
		name  string
		scope FileScope
		want  []string
	}{
		{
			name:  "include all",
			scope: FileScope{Path: root},
			want: []string{
				"dist/index.js",
				"node_modules/@types/x/index.d.ts",
				"node_modules/react/index.js",
				"src/app/button.tsx",
				"src/index.ts",
				"src/legacy/util.js",
				"src/styles.css",
				"src/types/global.d.ts",
			},
		},
		{
			name: "sources without dependencies",
			scope: FileScope{
				Path:    root,
				Include: []string{"**/*.{ts,tsx,js}"},
				Exclude: []string{"**/node_modules/**", "dist", "**/*.d.ts"},
			},
			want: []string{"src/app/button.tsx", "src/index.ts", "src/legacy/util.js"},
		},
		{
			name:  "basename pattern",
			scope: FileScope{Path: root, Include: []string{"*.tsx"}},
			want:  []string{"src/app/button.tsx"},
		},
		{
			name:  "max depth",
			scope: FileScope{Path: root, Include: []string{"**/*.ts"}, MaxDepth: 1},
			want:  []string{"src/index.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := walker.FastScan(ctx, tt.scope)
			require.NoError(t, err)

			var rel []string
			for _, f := range files {
				r, err := filepath.Rel(root, f)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestFileWalker_MaxFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b.ts": "", "c.ts": "", "d.ts": ""})

	files, err := NewFileWalker().FastScan(context.Background(), FileScope{Path: root, MaxFiles: 2})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFileWalker_LanguageStats(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b.tsx": "", "c.js": "", "d.mjs": "", "e.md": ""})

	stats, err := NewFileWalker().GetLanguageStats(context.Background(), FileScope{Path: root})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"typescript": 1, "tsx": 1, "javascript": 2, "unknown": 1}, stats)

	stats, err = NewFileWalker().GetLanguageStats(context.Background(), FileScope{Path: root, Language: "typescript", Include: []string{"*.ts"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"typescript": 1}, stats)
}

func TestFileWalker_Symlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real/a.ts": ""})
	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	// A loop back to the root must not recurse forever.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "real", "loop")))

	walker := NewFileWalker()
	ctx := context.Background()

	files, err := walker.FastScan(ctx, FileScope{Path: root, Include: []string{"**/*.ts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "real", "a.ts")}, files)

	files, err = walker.FastScan(ctx, FileScope{Path: root, Include: []string{"**/*.ts"}, FollowSymlinks: true})
	require.NoError(t, err)
	assert.Len(t, files, 1, "each real directory is visited once")
}

func TestFileWalker_ValidateScope(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.ts": ""})
	walker := NewFileWalker()

	tests := []struct {
		name    string
		scope   FileScope
		wantErr string
	}{
		{name: "empty path", scope: FileScope{}, wantErr: "path is required"},
		{name: "missing", scope: FileScope{Path: filepath.Join(root, "nope")}, wantErr: "cannot access path"},
		{name: "file", scope: FileScope{Path: filepath.Join(root, "file.ts")}, wantErr: "not a directory"},
		{name: "bad glob", scope: FileScope{Path: root, Include: []string{"src/[a"}}, wantErr: "invalid glob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := walker.Walk(context.Background(), tt.scope)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFileWalker_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b/c.ts": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileWalker().FastScan(ctx, FileScope{Path: root})
	assert.ErrorIs(t, err, context.Canceled)
}
