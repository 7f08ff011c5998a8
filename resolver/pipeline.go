package resolver

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultExtensions are probed, in order, after the exact candidate.
var DefaultExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// Config controls the built-in stages of a Pipeline.
type Config struct {
	FS         FileSystem
	Extensions []string
	MainFiles  []string
	ModuleDirs []string
	Log        *logrus.Entry
}

type tap struct {
	name    string
	handler Handler
}

// Pipeline is a staged module resolver. Plugins tap stages; each stage falls
// back to built-in behaviour when no tap handles a request.
type Pipeline struct {
	fs         FileSystem
	extensions []string
	mainFiles  []string
	moduleDirs []string
	log        *logrus.Entry

	mu       sync.RWMutex
	taps     map[string][]tap
	builtins map[string]Handler
}

// NewPipeline creates a pipeline with the built-in stages installed.
func NewPipeline(cfg Config) *Pipeline {
	p := &Pipeline{
		fs:         cfg.FS,
		extensions: cfg.Extensions,
		mainFiles:  cfg.MainFiles,
		moduleDirs: cfg.ModuleDirs,
		log:        cfg.Log,
		taps:       make(map[string][]tap),
	}
	if p.fs == nil {
		p.fs = OSFS{}
	}
	if p.extensions == nil {
		p.extensions = DefaultExtensions
	}
	if len(p.mainFiles) == 0 {
		p.mainFiles = []string{"index"}
	}
	if len(p.moduleDirs) == 0 {
		p.moduleDirs = []string{"node_modules"}
	}
	if p.log == nil {
		p.log = discardLog()
	}

	p.builtins = map[string]Handler{
		StageResolve:          p.parse,
		StageDescribedResolve: p.route,
		StageRawModule:        p.nodeModules,
		StageModule:           p.unresolved,
		StageRawFile:          p.probe,
	}
	return p
}

// Use applies plugins to the pipeline.
func (p *Pipeline) Use(plugins ...Plugin) *Pipeline {
	for _, plugin := range plugins {
		plugin.Apply(p)
	}
	return p
}

// Tap implements Host.
func (p *Pipeline) Tap(stage, name string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taps[stage] = append(p.taps[stage], tap{name: name, handler: handler})
}

// Taps lists the handler names registered on stage.
func (p *Pipeline) Taps(stage string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.taps[stage]))
	for _, t := range p.taps[stage] {
		names = append(names, t.name)
	}
	return names
}

// DoResolve implements Host.
func (p *Pipeline) DoResolve(ctx context.Context, stage string, req Request, message string) (*Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, true, err
	}

	p.mu.RLock()
	taps := p.taps[stage]
	builtin, known := p.builtins[stage]
	p.mu.RUnlock()

	if !known && len(taps) == 0 {
		return nil, true, fmt.Errorf("%s: %w", stage, ErrUnknownStage)
	}

	next, err := req.enter(stage, message)
	if err != nil {
		return nil, true, err
	}

	p.log.WithFields(logrus.Fields{"stage": stage, "path": next.Path, "request": next.Request}).Debug("resolving")

	for _, t := range taps {
		res, handled, err := t.handler(ctx, next)
		if handled || err != nil {
			return res, true, err
		}
	}
	if builtin == nil {
		return nil, false, nil
	}
	return builtin(ctx, next)
}

// Resolve resolves specifier as imported from a file in dir.
func (p *Pipeline) Resolve(ctx context.Context, dir, specifier string) (*Result, error) {
	res, handled, err := p.DoResolve(ctx, StageResolve, NewRequest(dir, specifier), "")
	switch {
	case err != nil:
		return nil, err
	case res == nil && handled:
		return nil, fmt.Errorf("can't resolve '%s' in '%s': %w", specifier, dir, ErrSuppressed)
	case res == nil:
		return nil, fmt.Errorf("can't resolve '%s' in '%s': %w", specifier, dir, ErrNotFound)
	}
	return res, nil
}

// parse is the entry stage; description files are not read, so it only
// forwards to described-resolve.
func (p *Pipeline) parse(ctx context.Context, req Request) (*Result, bool, error) {
	return p.DoResolve(ctx, StageDescribedResolve, req, "")
}

// route sends relative and absolute requests to the file prober and bare
// ones to module lookup.
func (p *Pipeline) route(ctx context.Context, req Request) (*Result, bool, error) {
	spec := req.InnerRequest()
	switch {
	case spec == "":
		return p.DoResolve(ctx, StageRawFile, req, "")
	case filepath.IsAbs(spec):
		return p.DoResolve(ctx, StageRawFile, req.WithPath(filepath.Clean(spec), ""), "")
	case isRelative(spec):
		return p.DoResolve(ctx, StageRawFile, req.WithPath(filepath.Join(req.Path, spec), ""), "")
	default:
		return p.DoResolve(ctx, StageRawModule, req, "")
	}
}

// nodeModules looks for spec in every module directory from req.Path up to
// the file system root, then hands the request to the module stage, where
// plugins add further roots.
func (p *Pipeline) nodeModules(ctx context.Context, req Request) (*Result, bool, error) {
	spec := req.InnerRequest()
	for dir := req.Path; ; dir = filepath.Dir(dir) {
		for _, name := range p.moduleDirs {
			root := filepath.Join(dir, name)
			if !isDir(p.fs, root) {
				continue
			}
			res, handled, err := p.DoResolve(ctx, StageRawFile, req.WithPath(filepath.Join(root, spec), ""), "looking for modules in "+root)
			if handled || err != nil {
				return res, true, err
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			return p.DoResolve(ctx, StageModule, req, "")
		}
	}
}

func (p *Pipeline) unresolved(context.Context, Request) (*Result, bool, error) {
	return nil, false, nil
}

// probe tries the candidate as a file, with each extension, then as a
// directory holding one of the main files.
func (p *Pipeline) probe(_ context.Context, req Request) (*Result, bool, error) {
	if file, ok := p.probeFile(req.Path); ok {
		return p.result(req, file), true, nil
	}
	if isDir(p.fs, req.Path) {
		for _, main := range p.mainFiles {
			if file, ok := p.probeFile(filepath.Join(req.Path, main)); ok {
				return p.result(req, file), true, nil
			}
		}
	}
	return nil, false, nil
}

func (p *Pipeline) probeFile(candidate string) (string, bool) {
	if isFile(p.fs, candidate) {
		return candidate, true
	}
	for _, ext := range p.extensions {
		if isFile(p.fs, candidate+ext) {
			return candidate + ext, true
		}
	}
	return "", false
}

func (p *Pipeline) result(req Request, file string) *Result {
	return &Result{Path: file, Query: req.Query, Trace: req.Trace()}
}

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
