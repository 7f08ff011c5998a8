package paths

import "strings"

// Match is the mapping selected for a specifier along with the captured
// wildcard text.
type Match struct {
	Mapping Mapping
	Capture string
}

// Match returns the first active mapping, in configuration order, whose
// pattern matches specifier. An empty specifier never matches.
func (t *Table) Match(specifier string) (Match, bool) {
	if specifier == "" {
		return Match{}, false
	}
	for _, m := range t.active {
		if capture, ok := m.Pattern.Match(specifier); ok {
			return Match{Mapping: m, Capture: capture}, true
		}
	}
	return Match{}, false
}

// MatchFor checks a single mapping, so hosts that register one handler per
// mapping can test them independently.
func MatchFor(m Mapping, specifier string) (Match, bool) {
	if specifier == "" {
		return Match{}, false
	}
	capture, ok := m.Pattern.Match(specifier)
	if !ok {
		return Match{}, false
	}
	return Match{Mapping: m, Capture: capture}, true
}

// Rewrite builds the specifier the resolver should look up next.
// Relative results (starting with ".") are anchored at the base directory;
// bare and absolute targets are returned as is.
func (t *Table) Rewrite(match Match) string {
	return rewrite(t.baseDirectory, match)
}

func rewrite(baseDirectory string, match Match) string {
	next := match.Mapping.Target
	if !match.Mapping.OnlyModule {
		next = strings.Replace(next, Wildcard, match.Capture, 1)
	}
	if strings.HasPrefix(next, ".") {
		next = resolvePath(baseDirectory, next)
	}
	return next
}
