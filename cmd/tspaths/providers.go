package main

import (
	"github.com/oxhq/tspaths/providers"
	"github.com/oxhq/tspaths/providers/javascript"
	"github.com/oxhq/tspaths/providers/typescript"
)

// newRegistry registers the extractors for every language DetectLanguage
// reports.
func newRegistry() *providers.Registry {
	return providers.NewRegistry(
		typescript.New(),
		typescript.NewTSX(),
		javascript.New(),
	)
}
