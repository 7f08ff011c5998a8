package typescript

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Config implements LanguageConfig for TypeScript
type Config struct{}

// Language identifier
func (c *Config) Language() string {
	return "typescript"
}

// Extensions supported
func (c *Config) Extensions() []string {
	return []string{".ts", ".mts", ".cts", ".d.ts"}
}

// GetLanguage returns tree-sitter language for TypeScript
func (c *Config) GetLanguage() *sitter.Language {
	return typescript.GetLanguage()
}

// TSXConfig parses .tsx files, which the plain TypeScript grammar rejects
// because of JSX.
type TSXConfig struct{}

func (c *TSXConfig) Language() string {
	return "tsx"
}

func (c *TSXConfig) Extensions() []string {
	return []string{".tsx"}
}

func (c *TSXConfig) GetLanguage() *sitter.Language {
	return tsx.GetLanguage()
}
