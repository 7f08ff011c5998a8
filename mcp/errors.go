package mcp

import "fmt"

// Error codes following JSON-RPC 2.0 standard and custom domain errors
const (
	// JSON-RPC 2.0 standard error codes
	ParseError     = -32700 // Invalid JSON was received
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist
	InvalidParams  = -32602 // Invalid method parameters
	InternalError  = -32603 // Internal JSON-RPC error

	// Custom domain error codes (10xxx range)
	ConfigError  = 10001 // tsconfig missing or invalid
	ScanFailed   = 10002 // Source scan could not run
	ToolNotFound = 10003 // Unknown tool name
)

// MCPError represents a structured error for the MCP protocol
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// NewMCPError creates a new MCP error with optional data
func NewMCPError(code int, message string, data ...any) *MCPError {
	err := &MCPError{
		Code:    code,
		Message: message,
	}
	if len(data) > 0 {
		err.Data = data[0]
	}
	return err
}

// WrapError wraps a regular error into an MCP error
func WrapError(code int, message string, err error) *MCPError {
	if err == nil {
		return NewMCPError(code, message)
	}
	return NewMCPError(code, message, err.Error())
}
