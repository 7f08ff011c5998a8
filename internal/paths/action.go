package paths

import "fmt"

// ActionKind is the decision taken for one request.
type ActionKind int

const (
	// Passthrough leaves the request to the rest of the pipeline.
	Passthrough ActionKind = iota
	// Rewrite resolves Specifier instead of the original request.
	Rewrite
	// Suppress ends resolution with nothing found and no error.
	Suppress
)

func (k ActionKind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Rewrite:
		return "rewrite"
	case Suppress:
		return "suppress"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is what the host should do with a request.
type Action struct {
	Kind        ActionKind
	Request     string
	Specifier   string
	Description string
	Match       Match
}

// Resolve decides how specifier is handled by the whole table.
func (t *Table) Resolve(specifier string) Action {
	match, ok := t.Match(specifier)
	if !ok {
		return Action{Kind: Passthrough, Request: specifier}
	}
	return t.actionFor(specifier, match)
}

// ResolveWith decides how specifier is handled by a single mapping.
func (t *Table) ResolveWith(m Mapping, specifier string) Action {
	match, ok := MatchFor(m, specifier)
	if !ok {
		return Action{Kind: Passthrough, Request: specifier}
	}
	return t.actionFor(specifier, match)
}

func (t *Table) actionFor(specifier string, match Match) Action {
	next := t.Rewrite(match)
	if next == specifier {
		// "*": ["*"] style identity mappings defer to default resolution.
		return Action{Kind: Passthrough, Request: specifier, Match: match}
	}
	return Action{
		Kind:        Rewrite,
		Request:     specifier,
		Specifier:   next,
		Description: Describe(specifier, match.Mapping.Alias, next),
		Match:       match,
	}
}

// Settle turns a delegated rewrite into its terminal action. A nested
// resolution that neither handled the request nor failed suppresses it, so
// the original specifier is never retried.
func (a Action) Settle(handled bool, err error) Action {
	if a.Kind != Rewrite {
		return a
	}
	if err != nil || handled {
		return a
	}
	a.Kind = Suppress
	return a
}

// Describe renders the trace line recorded when a mapping is applied.
func Describe(request, alias, next string) string {
	return fmt.Sprintf("aliased with mapping '%s': '%s' to '%s'", request, alias, next)
}
