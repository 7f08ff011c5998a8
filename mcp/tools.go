package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolDefinition describes a tool for the client
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolDefinitions returns all available tool definitions
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "mappings",
			Description: "List the tsconfig path mappings in the order they are tried",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "resolve",
			Description: "Resolve import specifiers, applying path aliases, to the files they load",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"specifiers": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Specifiers as written in import statements",
					},
					"from": map[string]any{
						"type":        "string",
						"description": "Directory of the importing file, relative to the project",
					},
				},
				"required": []string{"specifiers"},
			},
		},
		{
			Name:        "scan",
			Description: "Find aliased imports under a directory that do not resolve",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"dir": map[string]any{
						"type":        "string",
						"description": "Directory to scan, relative to the project",
					},
				},
			},
		},
	}
}

func (s *Server) registerBuiltinTools() {
	s.RegisterTool("mappings", s.handleMappingsTool)
	s.RegisterTool("resolve", s.handleResolveTool)
	s.RegisterTool("scan", s.handleScanTool)
}

func (s *Server) handleMappingsTool(ctx context.Context, _ json.RawMessage) (any, error) {
	m, err := s.backend.Mappings(ctx)
	if err != nil {
		return nil, WrapError(ConfigError, "Failed to load project", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (base directory %s)\n", m.Config, m.BaseDirectory)
	for _, mapping := range m.Mappings {
		status := ""
		if !mapping.Active {
			status = " [typings, skipped]"
		}
		fmt.Fprintf(&b, "%s -> %s%s\n", mapping.Alias, mapping.Target, status)
	}
	return textResult(b.String(), false), nil
}

func (s *Server) handleResolveTool(ctx context.Context, params json.RawMessage) (any, error) {
	var args struct {
		Specifiers []string `json:"specifiers"`
		From       string   `json:"from"`
	}
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, WrapError(InvalidParams, "Invalid resolve parameters", err)
	}
	if len(args.Specifiers) == 0 {
		return nil, NewMCPError(InvalidParams, "specifiers is required")
	}

	results, err := s.backend.Resolve(ctx, args.From, args.Specifiers)
	if err != nil {
		return nil, WrapError(ConfigError, "Failed to load project", err)
	}

	var b strings.Builder
	failed := false
	for _, r := range results {
		if r.Error != "" {
			failed = true
			fmt.Fprintf(&b, "%s: %s: %s\n", r.Specifier, r.Status, r.Error)
			continue
		}
		fmt.Fprintf(&b, "%s -> %s\n", r.Specifier, r.Path)
		for _, line := range r.Trace {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return textResult(b.String(), failed), nil
}

func (s *Server) handleScanTool(ctx context.Context, params json.RawMessage) (any, error) {
	var args struct {
		Dir string `json:"dir"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, WrapError(InvalidParams, "Invalid scan parameters", err)
		}
	}

	summary, err := s.backend.Scan(ctx, args.Dir)
	if err != nil {
		return nil, WrapError(ScanFailed, "Scan failed", err)
	}

	var b strings.Builder
	for _, f := range summary.Files {
		for _, imp := range f.Unresolved() {
			fmt.Fprintf(&b, "%s:%d:%d %s (%s): %s\n", f.Path, imp.Location.Line, imp.Location.Column, imp.Specifier, imp.Alias, imp.Error)
		}
	}
	fmt.Fprintf(&b, "%d files, %d imports, %d aliased, %d unresolved\n",
		summary.FilesScanned, summary.Imports, summary.Aliased, summary.Unresolved)
	return textResult(b.String(), summary.Unresolved > 0), nil
}

// textResult wraps text as MCP content blocks
func textResult(text string, isError bool) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": text,
			},
		},
		"isError": isError,
	}
}
