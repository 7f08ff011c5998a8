// Package rewrite decides, for every import a scan finds, whether a path
// alias applies and which relative specifier can replace it.
package rewrite

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/resolver"
)

// Resolver is the part of a resolver.Pipeline the inspector needs.
type Resolver interface {
	Resolve(ctx context.Context, dir, specifier string) (*resolver.Result, error)
}

// Recorder receives every aliased resolution, for persisting traces.
type Recorder func(file string, report core.ImportReport, trace []string)

// Inspector implements core.Inspector on top of a mapping table and the
// pipeline the table is installed on.
type Inspector struct {
	table    *paths.Table
	resolver Resolver
	log      *logrus.Entry
	record   Recorder
}

// NewInspector creates an inspector. table must be the one installed on r.
func NewInspector(table *paths.Table, r Resolver, log *logrus.Entry) *Inspector {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Inspector{table: table, resolver: r, log: log}
}

// OnResolve registers fn to be called after every aliased import.
func (i *Inspector) OnResolve(fn Recorder) *Inspector {
	i.record = fn
	return i
}

// Inspect implements core.Inspector.
func (i *Inspector) Inspect(ctx context.Context, file string, imp core.Import) core.ImportReport {
	report := core.ImportReport{Import: imp, Status: core.StatusExternal}

	dir := filepath.Dir(file)
	match, ok := i.table.Match(resolver.NewRequest(dir, imp.Specifier).InnerRequest())
	if !ok {
		return report
	}
	report.Alias = match.Mapping.Alias

	log := i.log.WithFields(logrus.Fields{
		"file":      file,
		"line":      imp.Location.Line,
		"specifier": imp.Specifier,
		"alias":     report.Alias,
	})

	res, err := i.resolver.Resolve(ctx, dir, imp.Specifier)
	if err != nil {
		report.Status = core.StatusUnresolved
		report.Error = err.Error()
		log.WithError(err).Debug("aliased import unresolved")
		i.emit(file, report, nil)
		return report
	}

	report.Status = core.StatusResolved
	report.Resolved = res.Path
	if !inNodeModules(res.Path) {
		report.Replacement = RelativeSpecifier(dir, res.Path) + res.Query
	}
	log.WithField("resolved", res.Path).Debug("aliased import resolved")
	i.emit(file, report, res.Trace)
	return report
}

func (i *Inspector) emit(file string, report core.ImportReport, trace []string) {
	if i.record != nil {
		i.record(file, report, trace)
	}
}

// strippable lists the extensions a module specifier leaves out, longest
// first so .d.ts wins over .ts.
var strippable = []string{".d.ts", ".ts", ".tsx", ".js", ".jsx"}

// RelativeSpecifier returns the specifier that imports target from a file
// in dir: slash separated, starting with "./" or "../", without a
// TypeScript or JavaScript extension and without a trailing /index.
func RelativeSpecifier(dir, target string) string {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)

	for _, ext := range strippable {
		if strings.HasSuffix(rel, ext) {
			rel = strings.TrimSuffix(rel, ext)
			break
		}
	}

	switch {
	case rel == "index":
		return "."
	case strings.HasSuffix(rel, "/index"):
		rel = strings.TrimSuffix(rel, "/index")
	}

	if rel == ".." || strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

func inNodeModules(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/node_modules/")
}
