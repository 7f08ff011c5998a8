package resolver

import (
	"errors"
	"fmt"
)

const maxDepth = 64

var (
	// ErrNotFound is returned by Pipeline.Resolve when no stage produced a
	// file.
	ErrNotFound = errors.New("module not found")

	// ErrSuppressed is returned by Pipeline.Resolve when a handler stopped
	// the resolution without a result, as a path mapping does when its target
	// is missing. It wraps ErrNotFound.
	ErrSuppressed = fmt.Errorf("%w, fallback suppressed", ErrNotFound)

	// ErrRecursion is returned when a request re-enters a stage it already
	// passed through, or the chain grows beyond maxDepth.
	ErrRecursion = errors.New("recursion in resolving")

	// ErrUnknownStage is returned when resolving into a stage nothing is
	// registered for.
	ErrUnknownStage = errors.New("unknown stage")
)
