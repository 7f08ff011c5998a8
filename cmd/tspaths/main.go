// Command tspaths resolves TypeScript path aliases and rewrites them into
// relative imports.
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if err != errFailed {
			colorError.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
