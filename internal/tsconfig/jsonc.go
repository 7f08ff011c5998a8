package tsconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/oxhq/tspaths/internal/paths"
)

// standardize turns the JSON-with-comments dialect accepted by tsc into
// plain JSON: comments and trailing commas become spaces, so offsets in
// decoder errors still point at the right place.
func standardize(src []byte) ([]byte, error) {
	out, err := hujson.Standardize(src)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodePaths reads a "paths" object keeping the declared key order, which
// encoding/json maps would lose.
func decodePaths(raw json.RawMessage) ([]paths.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("paths: expected object, got %v", tok)
	}

	var entries []paths.Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		alias, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("paths: unexpected key %v", keyTok)
		}

		var targets []string
		if err := dec.Decode(&targets); err != nil {
			return nil, fmt.Errorf("paths[%q]: targets must be an array of strings: %w", alias, err)
		}
		entries = append(entries, paths.Entry{Alias: alias, Targets: targets})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
