package paths

import "errors"

var (
	// ErrMultipleWildcards is returned when an alias carries more than one
	// wildcard.
	ErrMultipleWildcards = errors.New("alias contains more than one wildcard")

	// ErrNoConfigFile is returned when a table is built without the path of
	// the configuration file that anchors baseUrl.
	ErrNoConfigFile = errors.New("config file path is required")
)
