package javascript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/tspaths/core"
)

func TestJavaScriptImports(t *testing.T) {
	source := []byte(`const path = require("path");
const { get } = require("@lib/http");
import Widget from "@ui/widget";

export default function render() {
  return import("@app/lazy").then(m => <Widget mod={m} />);
}
`)

	imports, err := New().Imports(source)
	require.NoError(t, err)

	var specs []string
	var kinds []core.ImportKind
	for _, imp := range imports {
		specs = append(specs, imp.Specifier)
		kinds = append(kinds, imp.Kind)
	}
	assert.Equal(t, []string{"path", "@lib/http", "@ui/widget", "@app/lazy"}, specs)
	assert.Equal(t, []core.ImportKind{core.KindRequire, core.KindRequire, core.KindImport, core.KindDynamic}, kinds)
}

func TestJavaScriptConfig(t *testing.T) {
	p := New()
	assert.Equal(t, "javascript", p.Language())
	assert.Equal(t, []string{".js", ".jsx", ".mjs", ".cjs"}, p.Extensions())
}
