package base

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/tspaths/core"
	"github.com/oxhq/tspaths/providers"
)

// LanguageConfig defines the grammar an extractor parses with
type LanguageConfig interface {
	Language() string
	Extensions() []string
	GetLanguage() *sitter.Language
}

// Provider extracts module specifiers from ECMAScript family sources. The
// JavaScript, TypeScript and TSX grammars share the node types it reads.
type Provider struct {
	config LanguageConfig
	lang   *sitter.Language
	pool   sync.Pool

	borrowed atomic.Int64
	returned atomic.Int64
}

// New creates a base provider with language-specific config
func New(config LanguageConfig) *Provider {
	lang := config.GetLanguage()
	if lang == nil {
		panic(fmt.Sprintf("failed to load %s language for tree-sitter", config.Language()))
	}

	p := &Provider{config: config, lang: lang}
	p.pool.New = func() any {
		parser := sitter.NewParser()
		parser.SetLanguage(lang)
		return parser
	}
	return p
}

// Language returns language identifier
func (p *Provider) Language() string {
	return p.config.Language()
}

// Extensions returns supported file extensions
func (p *Provider) Extensions() []string {
	return p.config.Extensions()
}

// Stats reports parser pool usage
func (p *Provider) Stats() providers.Stats {
	b, r := p.borrowed.Load(), p.returned.Load()
	return providers.Stats{BorrowCount: b, ReturnCount: r, Active: b - r}
}

// Imports returns every static import, re-export, dynamic import() and
// require() of source whose specifier is a plain string literal, in source
// order.
func (p *Provider) Imports(source []byte) ([]core.Import, error) {
	parser := p.pool.Get().(*sitter.Parser)
	p.borrowed.Add(1)
	defer func() {
		p.pool.Put(parser)
		p.returned.Add(1)
	}()

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return nil, fmt.Errorf("failed to parse %s source: %v", p.Language(), err)
	}
	defer tree.Close()

	var out []core.Import
	p.walk(tree.RootNode(), source, &out)
	return out, nil
}

func (p *Provider) walk(node *sitter.Node, source []byte, out *[]core.Import) {
	switch node.Type() {
	case "import_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			p.add(out, src, source, core.KindImport, hasTypeKeyword(node))
		} else if clause := findChild(node, "import_require_clause"); clause != nil {
			// import x = require("m")
			if src := clause.ChildByFieldName("source"); src != nil {
				p.add(out, src, source, core.KindRequire, false)
			}
		}
	case "export_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			p.add(out, src, source, core.KindExport, hasTypeKeyword(node))
		}
	case "call_expression":
		if arg := callArgument(node, source); arg != nil {
			kind := core.KindRequire
			if node.ChildByFieldName("function").Type() == "import" {
				kind = core.KindDynamic
			}
			p.add(out, arg, source, kind, false)
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.walk(node.NamedChild(i), source, out)
	}
}

// add records a string node as an import
func (p *Provider) add(out *[]core.Import, str *sitter.Node, source []byte, kind core.ImportKind, typeOnly bool) {
	if str.Type() != "string" || str.EndByte()-str.StartByte() < 2 {
		return
	}
	start, end := str.StartByte()+1, str.EndByte()-1
	*out = append(*out, core.Import{
		Specifier: string(source[start:end]),
		Kind:      kind,
		TypeOnly:  typeOnly,
		Start:     start,
		End:       end,
		Location: core.Location{
			Line:   int(str.StartPoint().Row) + 1,
			Column: int(str.StartPoint().Column) + 2,
		},
	})
}

// callArgument returns the string argument of import("m") or require("m")
func callArgument(call *sitter.Node, source []byte) *sitter.Node {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	switch {
	case fn.Type() == "import":
	case fn.Type() == "identifier" && fn.Content(source) == "require":
	default:
		return nil
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return nil
	}
	return first
}

// hasTypeKeyword detects import type / export type
func hasTypeKeyword(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "type" && !child.IsNamed() {
			return true
		}
	}
	return false
}

func findChild(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}
