package resolver

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oxhq/tspaths/internal/paths"
)

// Delegator re-enters a resolution pipeline.
type Delegator interface {
	DoResolve(ctx context.Context, stage string, req Request, message string) (*Result, bool, error)
}

// PathPlugin installs the alias mappings of a Table on a Host.
type PathPlugin struct {
	table        *paths.Table
	source       string
	target       string
	innerRequest func(Request) string
	log          *logrus.Entry
}

// PathOption customises a PathPlugin.
type PathOption func(*PathPlugin)

// WithInnerRequest replaces the function that extracts the specifier a
// mapping is matched against.
func WithInnerRequest(fn func(Request) string) PathOption {
	return func(p *PathPlugin) {
		p.innerRequest = fn
	}
}

// WithLogger sets the entry handlers log to.
func WithLogger(log *logrus.Entry) PathOption {
	return func(p *PathPlugin) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPathPlugin creates a plugin for table.
func NewPathPlugin(table *paths.Table, opts ...PathOption) *PathPlugin {
	p := &PathPlugin{
		table:        table,
		source:       StageDescribedResolve,
		target:       StageResolve,
		innerRequest: Request.InnerRequest,
		log:          discardLog(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Table returns the mappings the plugin was built from.
func (p *PathPlugin) Table() *paths.Table {
	return p.table
}

// Apply registers the modules-in-root rule when baseUrl is set and one
// handler per active mapping.
func (p *PathPlugin) Apply(host Host) {
	if p.table.HasBaseURL() {
		NewModulesInRoot(StageModule, p.table.BaseDirectory(), StageResolve).Apply(host)
	}

	for _, m := range p.table.Active() {
		host.Tap(p.source, "paths:"+m.Alias, p.Handler(host, m))
	}
}

// Handler matches a single mapping and hands rewritten requests to d.
func (p *PathPlugin) Handler(d Delegator, m paths.Mapping) Handler {
	return func(ctx context.Context, req Request) (*Result, bool, error) {
		if req.AppliedAlias(m.Alias) {
			return nil, false, nil
		}
		action := p.table.ResolveWith(m, p.innerRequest(req))
		if action.Kind != paths.Rewrite {
			return nil, false, nil
		}
		return p.delegate(ctx, d, req, action)
	}
}

// delegate resolves the rewritten specifier. Whatever the nested resolution
// returns is final: an unresolved rewrite is reported as handled with no
// result so the original specifier is not tried again.
func (p *PathPlugin) delegate(ctx context.Context, d Delegator, req Request, action paths.Action) (*Result, bool, error) {
	log := p.log.WithFields(logrus.Fields{
		"request": action.Request,
		"alias":   action.Match.Mapping.Alias,
		"target":  action.Specifier,
	})

	res, handled, err := d.DoResolve(ctx, p.target, req.WithRequest(action.Specifier).withAlias(action.Match.Mapping.Alias), action.Description)

	switch settled := action.Settle(handled, err); {
	case err != nil:
		log.WithError(err).Debug("aliased request failed")
		return nil, true, err
	case settled.Kind == paths.Suppress:
		log.Debug("aliased request not found, suppressing fallback")
		return nil, true, nil
	default:
		log.Debug("aliased request resolved")
		return res, true, nil
	}
}
