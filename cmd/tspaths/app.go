package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/db"
	"github.com/oxhq/tspaths/internal/config"
	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/internal/tsconfig"
	"github.com/oxhq/tspaths/models"
	"github.com/oxhq/tspaths/resolver"
)

var (
	colorError  = color.New(color.FgRed)
	colorOK     = color.New(color.FgGreen)
	colorWarn   = color.New(color.FgYellow)
	colorHeader = color.New(color.FgBlue, color.Bold)
)

// errFailed marks errors whose details were already printed.
var errFailed = errors.New("failed")

// app carries what every command needs once flags and config are read.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	log    *logrus.Entry
	out    io.Writer
	errOut io.Writer
}

// project is a loaded configuration and its mapping table.
type project struct {
	config   *tsconfig.Config
	table    *paths.Table
	pipeline *resolver.Pipeline
	// cache is nil when --cache-size is 0.
	cache *resolver.CachedFS
}

func (a *app) loadProject(ctx context.Context) (*project, error) {
	path, err := tsconfig.Find(a.cfg.Dir, a.cfg.Project)
	if err != nil {
		return nil, err
	}
	cfg, err := a.loader().Load(ctx, path)
	if err != nil {
		return nil, err
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	p, err := a.newProject(cfg, table)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"config":   cfg.Path,
		"extends":  len(cfg.Files) - 1,
		"mappings": len(table.Mappings()),
	}).Debug("project loaded")
	return p, nil
}

func (a *app) loader() *tsconfig.Loader {
	return tsconfig.NewLoader(resolver.OSFS{}, a.log)
}

// newProject builds the resolution pipeline for a loaded configuration.
func (a *app) newProject(cfg *tsconfig.Config, table *paths.Table) (*project, error) {
	p := &project{config: cfg, table: table}

	var fsys resolver.FileSystem = resolver.OSFS{}
	if a.cfg.CacheSize > 0 {
		cached, err := resolver.NewCachedFS(fsys, a.cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cached
		fsys = cached
	}

	pipeline := resolver.NewPipeline(resolver.Config{
		FS:         fsys,
		Extensions: a.cfg.Extensions,
		Log:        a.log.WithField("component", "resolver"),
	})
	p.pipeline = pipeline.Use(resolver.NewPathPlugin(table, resolver.WithLogger(a.log.WithField("component", "paths"))))
	return p, nil
}

// forget drops cached file lookups so files created since are seen.
func (p *project) forget() {
	if p.cache != nil {
		p.cache.Purge()
	}
}

func (a *app) openStore() (*db.Store, error) {
	store, err := db.Open(a.cfg.Database, a.cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", a.cfg.Database, err)
	}
	return store, nil
}

// record saves a run, logging rather than failing the command.
func (a *app) record(run *models.Run, resolutions []models.Resolution) {
	store, err := a.openStore()
	if err != nil {
		a.log.WithError(err).Warn("resolutions not recorded")
		return
	}
	defer store.Close()

	if err := store.Record(run, resolutions); err != nil {
		a.log.WithError(err).Warn("resolutions not recorded")
		return
	}
	a.log.WithFields(logrus.Fields{"run": run.ID, "resolutions": len(resolutions)}).Debug("run recorded")
}

func (a *app) txDir() string {
	return filepath.Join(a.cfg.Dir, ".tspaths", "transactions")
}

func (a *app) table() *tabby.Tabby {
	return tabby.NewCustom(tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// collector gathers resolutions from concurrent inspections.
type collector struct {
	mu  sync.Mutex
	out []models.Resolution
}

func (c *collector) add(file string, report core.ImportReport, trace []string) {
	res := resolution(file, report.Specifier, report.Alias, trace)
	res.Line = report.Location.Line
	res.Status = string(report.Status)
	res.Path = report.Resolved
	res.Error = report.Error

	c.mu.Lock()
	c.out = append(c.out, res)
	c.mu.Unlock()
}

func (c *collector) resolutions() []models.Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

func resolution(issuer, request, alias string, trace []string) models.Resolution {
	res := models.Resolution{Issuer: issuer, Request: request, Alias: alias}
	if trace != nil {
		if data, err := json.Marshal(trace); err == nil {
			res.Trace = data
		}
	}
	return res
}
