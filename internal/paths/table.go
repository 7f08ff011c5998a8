package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Entry is one alias of the configuration with its targets in declared
// order.
type Entry struct {
	Alias   string
	Targets []string
}

// Options feed NewTable. Paths must keep the order the aliases were declared
// in the configuration file.
type Options struct {
	ConfigFilePath string
	BaseURL        string
	Paths          []Entry
}

// Mapping binds one alias to one target.
type Mapping struct {
	Alias      string
	Pattern    Pattern
	Target     string
	OnlyModule bool
}

// Typings reports whether the target only exists to satisfy the type
// checker (a declaration file or an @types package).
func (m Mapping) Typings() bool {
	return IsTypings(m.Target)
}

// IsTypings reports whether target points at type declarations only.
func IsTypings(target string) bool {
	return strings.Contains(target, "@types") || strings.Contains(target, ".d.ts")
}

// Table is the ordered set of mappings of one configuration. It is
// immutable once built and safe for concurrent readers.
type Table struct {
	baseDirectory string
	baseURL       string
	mappings      []Mapping
	active        []Mapping
}

// NewTable compiles every alias/target pair of opts in order.
func NewTable(opts Options) (*Table, error) {
	if opts.ConfigFilePath == "" {
		return nil, ErrNoConfigFile
	}

	configDir, err := filepath.Abs(filepath.Dir(opts.ConfigFilePath))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}

	t := &Table{
		baseDirectory: resolvePath(configDir, orDot(opts.BaseURL)),
		baseURL:       opts.BaseURL,
	}

	for _, entry := range opts.Paths {
		pattern, err := CompilePattern(entry.Alias)
		if err != nil {
			return nil, err
		}
		onlyModule := pattern.Kind == ExactMatch

		for _, target := range entry.Targets {
			m := Mapping{
				Alias:      entry.Alias,
				Pattern:    pattern,
				Target:     target,
				OnlyModule: onlyModule,
			}
			t.mappings = append(t.mappings, m)
			if !m.Typings() {
				t.active = append(t.active, m)
			}
		}
	}

	return t, nil
}

// BaseDirectory is the absolute directory relative targets and bare module
// lookups are anchored at.
func (t *Table) BaseDirectory() string {
	return t.baseDirectory
}

// HasBaseURL reports whether the configuration set baseUrl.
func (t *Table) HasBaseURL() bool {
	return t.baseURL != ""
}

// Mappings returns every mapping in configuration order, typings included.
func (t *Table) Mappings() []Mapping {
	out := make([]Mapping, len(t.mappings))
	copy(out, t.mappings)
	return out
}

// Active returns the mappings that take part in resolution.
func (t *Table) Active() []Mapping {
	out := make([]Mapping, len(t.active))
	copy(out, t.active)
	return out
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// resolvePath anchors p at dir unless it is already absolute.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
