package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/resolver"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestInspector(t *testing.T) (*Inspector, string) {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{
		"src/app/button.tsx",
		"src/app/forms/index.ts",
		"src/lib/util.js",
		"src/main.ts",
		"node_modules/lodash/index.js",
	} {
		writeFile(t, filepath.Join(root, f), "export {}\n")
	}

	table, err := paths.NewTable(paths.Options{
		ConfigFilePath: filepath.Join(root, "tsconfig.json"),
		BaseURL:        ".",
		Paths: []paths.Entry{
			{Alias: "@app/*", Targets: []string{"src/app/*"}},
			{Alias: "@lib/*", Targets: []string{"./src/lib/*"}},
			{Alias: "_", Targets: []string{"lodash"}},
		},
	})
	require.NoError(t, err)

	pipeline := resolver.NewPipeline(resolver.Config{}).Use(resolver.NewPathPlugin(table))
	return NewInspector(table, pipeline, nil), root
}

func TestInspect(t *testing.T) {
	in, root := newTestInspector(t)
	file := filepath.Join(root, "src", "main.ts")

	tests := []struct {
		name        string
		specifier   string
		status      core.ImportStatus
		alias       string
		resolved    string
		replacement string
	}{
		{name: "not aliased", specifier: "./local", status: core.StatusExternal},
		{name: "bare package", specifier: "react", status: core.StatusExternal},
		{
			name:        "wildcard",
			specifier:   "@app/button",
			status:      core.StatusResolved,
			alias:       "@app/*",
			resolved:    "src/app/button.tsx",
			replacement: "./app/button",
		},
		{
			name:        "directory index",
			specifier:   "@app/forms",
			status:      core.StatusResolved,
			alias:       "@app/*",
			resolved:    "src/app/forms/index.ts",
			replacement: "./app/forms",
		},
		{
			name:        "query kept",
			specifier:   "@lib/util?raw",
			status:      core.StatusResolved,
			alias:       "@lib/*",
			resolved:    "src/lib/util.js",
			replacement: "./lib/util?raw",
		},
		{
			name:      "package target not rewritten",
			specifier: "_",
			status:    core.StatusResolved,
			alias:     "_",
			resolved:  "node_modules/lodash/index.js",
		},
		{name: "missing", specifier: "@app/missing", status: core.StatusUnresolved, alias: "@app/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := in.Inspect(context.Background(), file, core.Import{Specifier: tt.specifier})
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.alias, report.Alias)
			assert.Equal(t, tt.replacement, report.Replacement)
			if tt.resolved != "" {
				assert.Equal(t, filepath.Join(root, filepath.FromSlash(tt.resolved)), report.Resolved)
			}
			if tt.status == core.StatusUnresolved {
				assert.Contains(t, report.Error, "module not found")
			}
		})
	}
}

func TestInspectRecords(t *testing.T) {
	in, root := newTestInspector(t)

	type call struct {
		specifier string
		status    core.ImportStatus
		trace     []string
	}
	var calls []call
	in.OnResolve(func(file string, report core.ImportReport, trace []string) {
		calls = append(calls, call{report.Specifier, report.Status, trace})
	})

	ctx := context.Background()
	file := filepath.Join(root, "src", "main.ts")
	in.Inspect(ctx, file, core.Import{Specifier: "react"})
	in.Inspect(ctx, file, core.Import{Specifier: "@app/button"})
	in.Inspect(ctx, file, core.Import{Specifier: "@app/nope"})

	require.Len(t, calls, 2)
	assert.Equal(t, core.StatusResolved, calls[0].status)
	assert.Contains(t, calls[0].trace, paths.Describe("@app/button", "@app/*", "src/app/button"))
	assert.Equal(t, core.StatusUnresolved, calls[1].status)
	assert.Nil(t, calls[1].trace)
}

func TestRelativeSpecifier(t *testing.T) {
	tests := []struct {
		dir    string
		target string
		want   string
	}{
		{"/p/src", "/p/src/a.ts", "./a"},
		{"/p/src", "/p/src/types.d.ts", "./types"},
		{"/p/src/x", "/p/src/a.tsx", "../a"},
		{"/p/src", "/p/src/dir/index.ts", "./dir"},
		{"/p/src", "/p/src/index.ts", "."},
		{"/p/src/x", "/p/src/index.js", ".."},
		{"/p/src", "/p/src/data.json", "./data.json"},
		{"/p/src", "/p/src/esm.mjs", "./esm.mjs"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeSpecifier(filepath.FromSlash(tt.dir), filepath.FromSlash(tt.target)))
		})
	}
}
