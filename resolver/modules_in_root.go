package resolver

import (
	"context"
	"path/filepath"
)

// ModulesInRoot treats a directory as an extra module root: bare specifiers
// reaching source, which node_modules could not satisfy, are looked up
// below Root.
type ModulesInRoot struct {
	Source string
	Root   string
	Target string
}

// NewModulesInRoot creates the rule for root.
func NewModulesInRoot(source, root, target string) *ModulesInRoot {
	return &ModulesInRoot{Source: source, Root: root, Target: target}
}

// Apply registers the rule on host.
func (m *ModulesInRoot) Apply(host Host) {
	host.Tap(m.Source, "modules-in-root", func(ctx context.Context, req Request) (*Result, bool, error) {
		spec := req.InnerRequest()
		if spec == "" || isRelative(spec) || filepath.IsAbs(spec) {
			return nil, false, nil
		}
		return host.DoResolve(ctx, m.Target, req.WithPath(m.Root, "./"+spec), "looking for modules in "+m.Root)
	})
}
