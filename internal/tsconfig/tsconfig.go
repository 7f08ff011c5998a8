package tsconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/resolver"
)

// DefaultName is the file searched for when no project is given.
const DefaultName = "tsconfig.json"

var (
	// ErrConfigNotFound is returned when no configuration file can be
	// located.
	ErrConfigNotFound = errors.New("tsconfig not found")

	// ErrExtendsCycle is returned when an extends chain loops.
	ErrExtendsCycle = errors.New("extends cycle")
)

// Config is the part of a TypeScript project configuration that drives path
// mapping, with inheritance already applied.
type Config struct {
	// Path is the absolute path of the loaded file.
	Path string
	// BaseURL is absolute when set, anchored at the file that declared it.
	BaseURL string
	// Paths keeps the declared alias order.
	Paths []paths.Entry
	// Files lists Path and every file it extends, nearest first.
	Files []string
}

// Options converts c into table options.
func (c *Config) Options() paths.Options {
	return paths.Options{
		ConfigFilePath: c.Path,
		BaseURL:        c.BaseURL,
		Paths:          c.Paths,
	}
}

// Table builds the mapping table of c.
func (c *Config) Table() (*paths.Table, error) {
	table, err := paths.NewTable(c.Options())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return table, nil
}

type rawFile struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string         `json:"baseUrl"`
		Paths   json.RawMessage `json:"paths"`
	} `json:"compilerOptions"`
}

// Loader reads configuration files.
type Loader struct {
	resolver *resolver.Pipeline
	log      *logrus.Entry
}

// NewLoader creates a loader. Package names in "extends" are looked up in
// node_modules through a resolver pipeline over fsys.
func NewLoader(fsys resolver.FileSystem, log *logrus.Entry) *Loader {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{
		resolver: resolver.NewPipeline(resolver.Config{
			FS:         fsys,
			Extensions: []string{".json"},
			MainFiles:  []string{"tsconfig"},
			Log:        log,
		}),
		log: log,
	}
}

// Find locates the configuration file. An explicit project may name a file
// or a directory and is taken relative to dir; without one, dir and its
// parents are searched for tsconfig.json.
func Find(dir, project string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if project != "" {
		candidate := project
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(abs, candidate)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			return "", fmt.Errorf("%s: %w", candidate, ErrConfigNotFound)
		}
		if info.IsDir() {
			candidate = filepath.Join(candidate, DefaultName)
			if _, err := os.Stat(candidate); err != nil {
				return "", fmt.Errorf("%s: %w", candidate, ErrConfigNotFound)
			}
		}
		return candidate, nil
	}

	for d := abs; ; d = filepath.Dir(d) {
		candidate := filepath.Join(d, DefaultName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if filepath.Dir(d) == d {
			return "", fmt.Errorf("no %s in %s or its parents: %w", DefaultName, abs, ErrConfigNotFound)
		}
	}
}

// Load reads path and the files it extends. Options set nearer to path win;
// among several extended files the later ones win.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var chain []chainFile
	if err := l.walk(ctx, abs, map[string]bool{}, map[string]bool{}, &chain); err != nil {
		return nil, err
	}

	cfg := &Config{Path: abs}
	var havePaths, haveBaseURL bool
	for _, f := range chain {
		cfg.Files = append(cfg.Files, f.path)

		opts := f.raw.CompilerOptions
		if !haveBaseURL && opts.BaseURL != nil {
			haveBaseURL = true
			if *opts.BaseURL != "" {
				cfg.BaseURL = anchor(filepath.Dir(f.path), *opts.BaseURL)
			}
		}
		if !havePaths && len(opts.Paths) > 0 {
			entries, err := decodePaths(opts.Paths)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.path, err)
			}
			havePaths = true
			cfg.Paths = entries
		}
	}

	l.log.WithFields(logrus.Fields{
		"config":   cfg.Path,
		"baseUrl":  cfg.BaseURL,
		"aliases":  len(cfg.Paths),
		"extended": len(cfg.Files) - 1,
	}).Debug("loaded tsconfig")

	return cfg, nil
}

type chainFile struct {
	path string
	raw  *rawFile
}

// walk appends file and its extends chain to out in precedence order.
func (l *Loader) walk(ctx context.Context, file string, active, seen map[string]bool, out *[]chainFile) error {
	if active[file] {
		return fmt.Errorf("%s: %w", file, ErrExtendsCycle)
	}
	if seen[file] {
		return nil
	}
	seen[file] = true
	active[file] = true
	defer delete(active, file)

	raw, err := readFile(file)
	if err != nil {
		return err
	}
	*out = append(*out, chainFile{path: file, raw: raw})

	parents, err := l.extends(ctx, file, raw.Extends)
	if err != nil {
		return err
	}
	for i := len(parents) - 1; i >= 0; i-- {
		if err := l.walk(ctx, parents[i], active, seen, out); err != nil {
			return err
		}
	}
	return nil
}

func readFile(file string) (*rawFile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	data, err = standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return &raw, nil
}

// extends returns the absolute files named by the "extends" value of file.
func (l *Loader) extends(ctx context.Context, file string, raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var names []string
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		names = []string{single}
	} else if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("%s: extends must be a string or an array of strings", file)
	}

	dir := filepath.Dir(file)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if filepath.IsAbs(name) || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
			target := anchor(dir, name)
			if filepath.Ext(target) != ".json" {
				if _, err := os.Stat(target); err != nil {
					target += ".json"
				}
			}
			out = append(out, target)
			continue
		}

		res, err := l.resolver.Resolve(ctx, dir, name)
		if err != nil {
			return nil, fmt.Errorf("%s: extends %q: %w", file, name, err)
		}
		out = append(out, res.Path)
	}
	return out, nil
}

func anchor(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
