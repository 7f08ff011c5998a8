package providers

import (
	"sort"
	"strings"

	"github.com/oxhq/tspaths/core"
)

// Registry manages import extractors by language and extension
type Registry struct {
	extractors  map[string]core.Extractor
	byExtension map[string]string
}

// NewRegistry creates an extractor registry
func NewRegistry(extractors ...core.Extractor) *Registry {
	r := &Registry{
		extractors:  make(map[string]core.Extractor),
		byExtension: make(map[string]string),
	}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor. A later registration for the same language or
// extension replaces the earlier one.
func (r *Registry) Register(e core.Extractor) {
	r.extractors[e.Language()] = e
	for _, ext := range e.Extensions() {
		r.byExtension[strings.ToLower(ext)] = e.Language()
	}
}

// Get retrieves an extractor by language
func (r *Registry) Get(language string) (core.Extractor, bool) {
	e, ok := r.extractors[language]
	return e, ok
}

// ForExtension retrieves the extractor registered for ext (".ts")
func (r *Registry) ForExtension(ext string) (core.Extractor, bool) {
	lang, ok := r.byExtension[strings.ToLower(ext)]
	if !ok {
		return nil, false
	}
	return r.Get(lang)
}

// Languages returns all registered language identifiers, sorted
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.extractors))
	for k := range r.extractors {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}

// Stats captures parser-pool level metrics exposed by extractors.
type Stats struct {
	BorrowCount int64 `json:"borrow_count"`
	ReturnCount int64 `json:"return_count"`
	Active      int64 `json:"active"`
}
