package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/internal/paths"
	"github.com/oxhq/tspaths/internal/tsconfig"
	"github.com/oxhq/tspaths/mcp"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer MCP tool calls on stdin and stdout.",
		Long: `serve speaks the Model Context Protocol over stdio. It offers the
mappings, resolve and scan tools and reloads the mappings whenever the
tsconfig or a file it extends changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd.InOrStdin(), a.out)
		},
	}
}

// serve runs an MCP server over in and out until in is exhausted or ctx is
// done.
func (a *app) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	path, err := tsconfig.Find(a.cfg.Dir, a.cfg.Project)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws := &workspace{app: a}
	w, err := tsconfig.NewWatcher(ctx, a.loader(), path, ws.reload)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Warn("watcher stopped")
		}
	}()

	err = mcp.NewServer(ws, version, a.log.WithField("component", "mcp")).Serve(ctx, in, out)
	cancel()
	wg.Wait()
	return err
}

// workspace answers tool calls with the most recently loaded mappings.
type workspace struct {
	app *app

	mu      sync.RWMutex
	project *project
}

var _ mcp.Backend = (*workspace)(nil)

func (ws *workspace) reload(cfg *tsconfig.Config, table *paths.Table) {
	p, err := ws.app.newProject(cfg, table)
	if err != nil {
		ws.app.log.WithError(err).Error("resolver not rebuilt")
		return
	}

	ws.mu.Lock()
	ws.project = p
	ws.mu.Unlock()
	ws.app.log.WithField("mappings", len(table.Mappings())).Info("mappings loaded")
}

// current returns the loaded project with its file lookups forgotten, since
// sources may have changed between tool calls.
func (ws *workspace) current() (*project, error) {
	ws.mu.RLock()
	p := ws.project
	ws.mu.RUnlock()
	if p == nil {
		return nil, errors.New("no project loaded")
	}
	p.forget()
	return p, nil
}

func (ws *workspace) Mappings(context.Context) (*mcp.Mappings, error) {
	p, err := ws.current()
	if err != nil {
		return nil, err
	}
	return &mcp.Mappings{
		Config:        p.config.Path,
		BaseDirectory: p.table.BaseDirectory(),
		Mappings:      p.mappings(),
	}, nil
}

func (ws *workspace) Resolve(ctx context.Context, from string, specifiers []string) ([]mcp.Resolution, error) {
	p, err := ws.current()
	if err != nil {
		return nil, err
	}
	from = ws.app.abs(from)

	out := make([]mcp.Resolution, 0, len(specifiers))
	for _, spec := range specifiers {
		out = append(out, p.resolve(ctx, from, spec))
	}
	return out, nil
}

func (ws *workspace) Scan(ctx context.Context, dir string) (*core.Summary, error) {
	p, err := ws.current()
	if err != nil {
		return nil, err
	}
	res, err := ws.app.scanProject(ctx, p, dir, "serve")
	if err != nil {
		return nil, err
	}
	return res.summary, nil
}
