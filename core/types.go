package core

import "context"

// FileScope defines which files to process in filesystem operations
type FileScope struct {
	Path           string   `json:"path"`                // Root path to scan
	Include        []string `json:"include,omitempty"`   // File patterns to include (**/*.ts)
	Exclude        []string `json:"exclude,omitempty"`   // File patterns to exclude
	MaxDepth       int      `json:"max_depth,omitempty"` // Max directory depth (0 = unlimited)
	MaxFiles       int      `json:"max_files,omitempty"` // Max files to process (0 = unlimited)
	FollowSymlinks bool     `json:"follow_symlinks"`     // Follow symbolic links
	Language       string   `json:"language,omitempty"`  // Auto-detect by extension if empty
}

// Location in source code, 1-based
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ImportKind tells how a module specifier was written
type ImportKind string

const (
	KindImport  ImportKind = "import"  // import x from "m"
	KindExport  ImportKind = "export"  // export * from "m"
	KindDynamic ImportKind = "dynamic" // import("m")
	KindRequire ImportKind = "require" // require("m"), import x = require("m")
)

// Import is a module specifier found in a source file. Start and End delimit
// the specifier text inside its quotes.
type Import struct {
	Specifier string     `json:"specifier"`
	Kind      ImportKind `json:"kind"`
	TypeOnly  bool       `json:"type_only,omitempty"`
	Start     uint32     `json:"start"`
	End       uint32     `json:"end"`
	Location  Location   `json:"location"`
}

// Extractor finds imports in a source file
type Extractor interface {
	Language() string
	Extensions() []string
	Imports(source []byte) ([]Import, error)
}

// ExtractorRegistry looks extractors up by language
type ExtractorRegistry interface {
	Get(language string) (Extractor, bool)
}

// ImportStatus is the outcome of resolving one import
type ImportStatus string

const (
	StatusExternal   ImportStatus = "external"   // no alias applies
	StatusResolved   ImportStatus = "resolved"   // alias resolved to a file
	StatusUnresolved ImportStatus = "unresolved" // alias applied, nothing found
)

// ImportReport describes what happened to one import
type ImportReport struct {
	Import
	Alias       string       `json:"alias,omitempty"`
	Status      ImportStatus `json:"status"`
	Resolved    string       `json:"resolved,omitempty"`
	Replacement string       `json:"replacement,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Inspector decides the fate of one import of file
type Inspector interface {
	Inspect(ctx context.Context, file string, imp Import) ImportReport
}

// FileReport represents the processing result for a single file
type FileReport struct {
	Path     string         `json:"path"`
	Language string         `json:"language"`
	Imports  []ImportReport `json:"imports,omitempty"`
	Modified bool           `json:"modified"`
	Original string         `json:"-"`
	Content  string         `json:"-"`
	Diff     string         `json:"diff,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Aliased counts imports an alias applied to
func (r FileReport) Aliased() int {
	n := 0
	for _, imp := range r.Imports {
		if imp.Status != StatusExternal {
			n++
		}
	}
	return n
}

// Unresolved returns the aliased imports that did not resolve
func (r FileReport) Unresolved() []ImportReport {
	var out []ImportReport
	for _, imp := range r.Imports {
		if imp.Status == StatusUnresolved {
			out = append(out, imp)
		}
	}
	return out
}

// Summary represents the result of processing a whole scope
type Summary struct {
	FilesScanned  int          `json:"files_scanned"`
	FilesModified int          `json:"files_modified"`
	Imports       int          `json:"imports"`
	Aliased       int          `json:"aliased"`
	Unresolved    int          `json:"unresolved"`
	ScanDuration  int64        `json:"scan_duration_ms"`
	Files         []FileReport `json:"files"`
	TransactionID string       `json:"transaction_id,omitempty"`
}
