package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, baseURL string, entries ...Entry) *Table {
	t.Helper()
	table, err := NewTable(Options{
		ConfigFilePath: "/proj/tsconfig.json",
		BaseURL:        baseURL,
		Paths:          entries,
	})
	require.NoError(t, err)
	return table
}

func TestNewTableBaseDirectory(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{name: "unset uses config dir", baseURL: "", want: "/proj"},
		{name: "relative", baseURL: "./src", want: "/proj/src"},
		{name: "relative without dot", baseURL: "src", want: "/proj/src"},
		{name: "parent", baseURL: "../shared", want: "/shared"},
		{name: "absolute", baseURL: "/elsewhere/", want: "/elsewhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTestTable(t, tt.baseURL)
			assert.Equal(t, filepath.FromSlash(tt.want), table.BaseDirectory())
			assert.Equal(t, tt.baseURL != "", table.HasBaseURL())
		})
	}
}

func TestNewTablePreservesOrder(t *testing.T) {
	table := newTestTable(t, ".",
		Entry{Alias: "@x/*", Targets: []string{"a/*", "b/*"}},
		Entry{Alias: "@x/y", Targets: []string{"c"}},
	)

	mappings := table.Mappings()
	require.Len(t, mappings, 3)

	assert.Equal(t, "a/*", mappings[0].Target)
	assert.Equal(t, "b/*", mappings[1].Target)
	assert.Equal(t, "c", mappings[2].Target)
	assert.Equal(t, mappings[0].Pattern, mappings[1].Pattern)
	assert.False(t, mappings[0].OnlyModule)
	assert.True(t, mappings[2].OnlyModule)
}

func TestNewTableSkipsTypings(t *testing.T) {
	table := newTestTable(t, ".",
		Entry{Alias: "lib", Targets: []string{"node_modules/@types/lib", "vendor/lib"}},
		Entry{Alias: "globals", Targets: []string{"types/globals.d.ts"}},
	)

	assert.Len(t, table.Mappings(), 3)

	active := table.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "vendor/lib", active[0].Target)
}

func TestNewTableErrors(t *testing.T) {
	_, err := NewTable(Options{})
	assert.True(t, errors.Is(err, ErrNoConfigFile))

	_, err = NewTable(Options{
		ConfigFilePath: "/proj/tsconfig.json",
		Paths:          []Entry{{Alias: "*/*", Targets: []string{"x"}}},
	})
	assert.True(t, errors.Is(err, ErrMultipleWildcards))
}

func TestTableAccessorsReturnCopies(t *testing.T) {
	table := newTestTable(t, "", Entry{Alias: "@a", Targets: []string{"a"}})

	mappings := table.Mappings()
	mappings[0].Target = "changed"
	active := table.Active()
	active[0].Target = "changed"

	assert.Equal(t, "a", table.Mappings()[0].Target)
	assert.Equal(t, "a", table.Active()[0].Target)
}

func TestIsTypings(t *testing.T) {
	assert.True(t, IsTypings("node_modules/@types/react"))
	assert.True(t, IsTypings("./src/globals.d.ts"))
	assert.False(t, IsTypings("./src/types/index.ts"))
}
