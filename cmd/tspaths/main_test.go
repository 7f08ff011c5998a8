package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/tspaths/internal/config"
	"github.com/oxhq/tspaths/mcp"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"tsconfig.base.json": `{
  // shared options
  "compilerOptions": { "baseUrl": "." },
}`,
		"tsconfig.json": `{
  "extends": "./tsconfig.base.json",
  "compilerOptions": {
    "paths": {
      "@app/*": ["src/app/*"],
      "@env": ["src/env.d.ts"]
    }
  }
}`,
		"src/app/button.ts": "export const Button = 1;\n",
		"src/env.d.ts":      "declare const env: string;\n",
		"src/main.ts":       "import { Button } from \"@app/button\";\nimport missing from \"@app/missing\";\n",
		"src/pages/home.ts": "import { Button } from \"@app/button\";\nimport fs from \"fs\";\n",
	})
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out, io.Discard)
	cmd.SetArgs(append(args, "--dir", dir))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMappings(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "mappings")
	require.NoError(t, err)
	assert.Contains(t, out, "extends "+filepath.Join(dir, "tsconfig.base.json"))
	assert.Regexp(t, `@app/\*\s+src/app/\*\s+wildcard\s+active`, out)
	assert.Regexp(t, `@env\s+src/env.d.ts\s+exact\s+skipped \(typings\)`, out)

	out, err = run(t, dir, "mappings", "--json")
	require.NoError(t, err)
	var got struct {
		BaseURL  bool          `json:"baseUrl"`
		Mappings []mcp.Mapping `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.BaseURL)
	require.Len(t, got.Mappings, 2)
	assert.Equal(t, mcp.Mapping{Alias: "@app/*", Target: "src/app/*", Kind: "wildcard", Active: true}, got.Mappings[0])
	assert.False(t, got.Mappings[1].Active)
}

func TestMappingsWithoutConfig(t *testing.T) {
	_, err := run(t, t.TempDir(), "mappings")
	assert.ErrorContains(t, err, "tsconfig not found")
}

func TestResolve(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "resolve", "--trace", "--from", "src", "@app/button", "./main")
	require.NoError(t, err)
	assert.Contains(t, out, "@app/button (@app/*)  "+filepath.Join(dir, "src", "app", "button.ts"))
	assert.Contains(t, out, "aliased with mapping '@app/button': '@app/*' to 'src/app/button'")
	assert.Contains(t, out, "./main  "+filepath.Join(dir, "src", "main.ts"))

	out, err = run(t, dir, "resolve", "@app/missing")
	assert.ErrorContains(t, err, "1 of 1 specifiers could not be resolved")
	assert.Contains(t, out, "@app/missing (@app/*)  suppressed  ")
	assert.Contains(t, out, "module not found")

	out, err = run(t, dir, "resolve", "./nowhere")
	assert.Error(t, err)
	assert.Contains(t, out, "./nowhere  not found  ")

	out, err = run(t, dir, "resolve", "--json", "@app/missing", "@app/button")
	assert.ErrorIs(t, err, errFailed)
	var results []mcp.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, mcp.StatusSuppressed, results[0].Status)
	assert.Equal(t, mcp.StatusResolved, results[1].Status)
}

func TestResolveRecordAndHistory(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, dir, "resolve", "--record", "@app/button", "fs")
	assert.Error(t, err, "fs is not installed")

	out, err := run(t, dir, "history")
	require.NoError(t, err)
	assert.Regexp(t, `@app/button\s+@app/\*\s+resolved\s+src/app/button.ts`, out)
	assert.Regexp(t, `fs\s+external`, out)

	out, err = run(t, dir, "history", "--status", "resolved", "--json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "@app/button", rows[0]["Request"])

	out, err = run(t, dir, "history", "--runs")
	require.NoError(t, err)
	assert.Regexp(t, `resolve\s+\S+ \S+\s+0\s+1\s+1`, out)

	out, err = run(t, dir, "history", "--prune", "1ns")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 runs")
}

func TestScan(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "scan")
	assert.ErrorContains(t, err, "1 aliased imports could not be resolved")
	assert.Contains(t, out, "src/main.ts:2:")
	assert.Contains(t, out, "@app/missing (@app/*)")
	assert.Contains(t, out, "3 files, 4 imports, 3 aliased, 1 unresolved")

	out, err = run(t, dir, "scan", "src/pages")
	require.NoError(t, err)
	assert.Contains(t, out, "1 files, 2 imports, 1 aliased, 0 unresolved")
}

func TestRewriteAndUndo(t *testing.T) {
	dir := newProject(t)
	home := filepath.Join(dir, "src", "pages", "home.ts")
	original, err := os.ReadFile(home)
	require.NoError(t, err)

	out, err := run(t, dir, "rewrite", "src/pages")
	require.NoError(t, err)
	assert.Contains(t, out, "+import { Button } from \"../app/button\";")
	assert.Contains(t, out, "1 files would change")
	current, err := os.ReadFile(home)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(current), "dry run writes nothing")

	out, err = run(t, dir, "rewrite", "--write", "src/pages")
	require.NoError(t, err)
	assert.Contains(t, out, "rewrote 1 files")
	current, err = os.ReadFile(home)
	require.NoError(t, err)
	assert.Equal(t, "import { Button } from \"../app/button\";\nimport fs from \"fs\";\n", string(current))

	m := regexp.MustCompile(`tspaths undo (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)

	out, err = run(t, dir, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "no interrupted rewrites")

	out, err = run(t, dir, "undo", m[1])
	require.NoError(t, err)
	assert.Contains(t, out, "restored src/pages/home.ts")
	current, err = os.ReadFile(home)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(current))

	out, err = run(t, dir, "rewrite", "src/app")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to rewrite")
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := newProject(t)
	var logs bytes.Buffer
	a := &app{
		cfg: &config.Config{Dir: dir},
		log: config.NewLogger(&logs, false),
		out: io.Discard,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, a.watch(ctx))
	assert.Contains(t, logs.String(), "mappings loaded")
	assert.Contains(t, logs.String(), "mappings=2")
}

func TestServe(t *testing.T) {
	dir := newProject(t)
	a := &app{
		cfg: &config.Config{Dir: dir},
		log: config.NewLogger(io.Discard, false),
		out: io.Discard,
	}

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"resolve","arguments":{"from":"src","specifiers":["@app/button"]}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"scan","arguments":{"dir":"src/pages"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"mappings"}}`,
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, a.serve(context.Background(), strings.NewReader(in), &out))

	var texts []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var resp struct {
			ID     int `json:"id"`
			Result struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		if resp.ID > 1 {
			require.Len(t, resp.Result.Content, 1)
			texts = append(texts, resp.Result.Content[0].Text)
		}
	}
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "@app/button -> "+filepath.Join(dir, "src", "app", "button.ts"))
	assert.Contains(t, texts[1], "1 files, 2 imports, 1 aliased, 0 unresolved")
	assert.Contains(t, texts[2], "@env -> src/env.d.ts [typings, skipped]")
}

func TestWorkspaceSeesNewFiles(t *testing.T) {
	dir := newProject(t)
	a := &app{
		cfg: &config.Config{Dir: dir, CacheSize: 4096},
		log: config.NewLogger(io.Discard, false),
		out: io.Discard,
	}
	cfg, err := a.loader().Load(context.Background(), filepath.Join(dir, "tsconfig.json"))
	require.NoError(t, err)
	table, err := cfg.Table()
	require.NoError(t, err)

	ws := &workspace{app: a}
	ws.reload(cfg, table)
	ctx := context.Background()

	got, err := ws.Resolve(ctx, "src", []string{"@app/fresh"})
	require.NoError(t, err)
	assert.Equal(t, mcp.StatusSuppressed, got[0].Status)

	writeTree(t, dir, map[string]string{"src/app/fresh.ts": "export const fresh = 1;\n"})

	got, err = ws.Resolve(ctx, "src", []string{"@app/fresh"})
	require.NoError(t, err)
	assert.Equal(t, mcp.StatusResolved, got[0].Status)
	assert.Equal(t, filepath.Join(dir, "src", "app", "fresh.ts"), got[0].Path)
}
