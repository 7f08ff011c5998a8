package paths

import (
	"fmt"
	"strings"
)

// Wildcard is the only wildcard token understood in aliases and targets.
const Wildcard = "*"

// PatternKind tags the two shapes an alias can compile to.
type PatternKind int

const (
	// ExactMatch matches a specifier equal to the alias.
	ExactMatch PatternKind = iota
	// PrefixCapture matches specifiers starting with the alias prefix and
	// captures the remainder.
	PrefixCapture
)

func (k PatternKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case PrefixCapture:
		return "wildcard"
	default:
		return fmt.Sprintf("PatternKind(%d)", int(k))
	}
}

// Pattern is a compiled alias.
//
// For ExactMatch, Prefix holds the whole alias and Suffix is empty.
// For PrefixCapture, Prefix is the text before the wildcard and Suffix the
// text after it. Matching is anchored at the start only: when Suffix is set
// the capture extends to its last occurrence and anything after it is
// ignored.
type Pattern struct {
	Kind   PatternKind
	Prefix string
	Suffix string
}

// CompilePattern turns an alias into a Pattern. Aliases with more than one
// wildcard are rejected.
func CompilePattern(alias string) (Pattern, error) {
	switch strings.Count(alias, Wildcard) {
	case 0:
		return Pattern{Kind: ExactMatch, Prefix: alias}, nil
	case 1:
		i := strings.Index(alias, Wildcard)
		return Pattern{
			Kind:   PrefixCapture,
			Prefix: alias[:i],
			Suffix: alias[i+len(Wildcard):],
		}, nil
	default:
		return Pattern{}, fmt.Errorf("alias %q: %w", alias, ErrMultipleWildcards)
	}
}

// Captures reports the number of capture groups the pattern yields.
func (p Pattern) Captures() int {
	if p.Kind == PrefixCapture {
		return 1
	}
	return 0
}

// Match reports whether specifier matches the pattern and returns the
// captured text for wildcard patterns.
func (p Pattern) Match(specifier string) (string, bool) {
	switch p.Kind {
	case ExactMatch:
		return "", specifier == p.Prefix
	case PrefixCapture:
		if !strings.HasPrefix(specifier, p.Prefix) {
			return "", false
		}
		rest := specifier[len(p.Prefix):]
		if p.Suffix == "" {
			return rest, true
		}
		i := strings.LastIndex(rest, p.Suffix)
		if i < 0 {
			return "", false
		}
		return rest[:i], true
	default:
		return "", false
	}
}

// String renders the pattern back in alias form.
func (p Pattern) String() string {
	if p.Kind == PrefixCapture {
		return p.Prefix + Wildcard + p.Suffix
	}
	return p.Prefix
}
