package javascript

import "github.com/oxhq/tspaths/providers/base"

// New creates a JavaScript extractor using base functionality
func New() *base.Provider {
	return base.New(&Config{})
}
