package typescript

import "github.com/oxhq/tspaths/providers/base"

// New creates the TypeScript import extractor
func New() *base.Provider {
	return base.New(&Config{})
}

// NewTSX creates the extractor for .tsx files
func NewTSX() *base.Provider {
	return base.New(&TSXConfig{})
}
