package mcp

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC protocol constants used by the MCP transport layer.
const (
	JSONRPCVersion  = "2.0"
	ProtocolVersion = "2024-11-05"
)

// Request represents a JSON-RPC 2.0 request. Notifications carry no ID.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the sender expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response to a request.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error payload.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SuccessResponse builds a success response with the provided result payload.
func SuccessResponse(id, result any) Response {
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// ErrorResponse builds a response containing the supplied error object.
func ErrorResponse(id any, code int, message string, data ...any) Response {
	var extra any
	if len(data) > 0 {
		extra = data[0]
	}
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    extra,
		},
	}
}

// ensureVersion validates that a decoded message has the expected jsonrpc value.
func ensureVersion(v string) error {
	if v == JSONRPCVersion {
		return nil
	}
	if v == "" {
		return fmt.Errorf("missing jsonrpc version")
	}
	return fmt.Errorf("unsupported jsonrpc version: %s", v)
}
