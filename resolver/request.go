package resolver

import (
	"fmt"
	"strings"
)

// Stage names of the resolution pipeline.
const (
	StageResolve          = "resolve"
	StageDescribedResolve = "described-resolve"
	StageRawModule        = "raw-module"
	StageModule           = "module"
	StageRawFile          = "raw-file"
)

// Request is the state of one resolution as it moves through the stages.
// Handlers never modify a Request they receive; they derive new ones.
type Request struct {
	// Path is the directory the specifier is resolved from, or the candidate
	// file once Request is empty.
	Path string
	// Request is the specifier still to be resolved.
	Request string
	// Query is the "?..." suffix split off the original specifier.
	Query string

	aliases []string
	stack   []string
	trace   []string
}

// NewRequest creates the entry request for specifier issued from dir.
func NewRequest(dir, specifier string) Request {
	req := Request{Path: dir, Request: specifier}
	if i := strings.IndexByte(specifier, '?'); i >= 0 {
		req.Request = specifier[:i]
		req.Query = specifier[i:]
	}
	return req
}

// InnerRequest is the specifier handlers match against.
func (r Request) InnerRequest() string {
	return r.Request
}

// WithRequest derives a request that resolves specifier from the same
// directory.
func (r Request) WithRequest(specifier string) Request {
	r.Request = specifier
	r.aliases = cloneStrings(r.aliases)
	r.stack = cloneStrings(r.stack)
	r.trace = cloneStrings(r.trace)
	return r
}

// WithPath derives a request that resolves specifier from dir.
func (r Request) WithPath(dir, specifier string) Request {
	r = r.WithRequest(specifier)
	r.Path = dir
	return r
}

// Aliased reports whether a path mapping already rewrote this request.
func (r Request) Aliased() bool {
	return len(r.aliases) > 0
}

// AppliedAlias reports whether the mapping for alias rewrote this request or
// one it was derived from. Each mapping applies at most once per import.
func (r Request) AppliedAlias(alias string) bool {
	for _, a := range r.aliases {
		if a == alias {
			return true
		}
	}
	return false
}

func (r Request) withAlias(alias string) Request {
	r.aliases = append(cloneStrings(r.aliases), alias)
	return r
}

// Trace returns the descriptions recorded on the way to this request.
func (r Request) Trace() []string {
	return cloneStrings(r.trace)
}

func (r Request) String() string {
	return fmt.Sprintf("(%s) %s%s", r.Path, r.Request, r.Query)
}

func (r Request) enter(stage, message string) (Request, error) {
	line := stage + ": " + r.String()
	for _, seen := range r.stack {
		if seen == line {
			return r, fmt.Errorf("%s: %w", line, ErrRecursion)
		}
	}
	if len(r.stack) >= maxDepth {
		return r, fmt.Errorf("%s: depth %d exceeded: %w", line, maxDepth, ErrRecursion)
	}

	next := r.WithRequest(r.Request)
	next.stack = append(next.stack, line)
	if message != "" {
		next.trace = append(next.trace, message)
	}
	return next, nil
}

// Result is a resolved file.
type Result struct {
	Path  string
	Query string
	Trace []string
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// isRelative reports whether specifier is relative to the issuer.
func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
