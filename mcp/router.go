package mcp

import (
	"context"
	"fmt"
	"sync"
)

// RequestHandler processes a JSON-RPC request and returns a response.
type RequestHandler func(ctx context.Context, req Request) Response

// Router maintains a registry of MCP method handlers and dispatches with
// JSON-RPC compliance checks.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]RequestHandler
}

// NewRouter creates an empty router instance.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]RequestHandler)}
}

// Register associates a handler with a JSON-RPC method name. Existing
// registrations are replaced.
func (r *Router) Register(method string, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
}

// Dispatch routes a request to its handler. It returns a JSON-RPC error
// response if validation fails or the method is unknown.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	if err := ensureVersion(req.JSONRPC); err != nil {
		return ErrorResponse(req.ID, InvalidRequest, err.Error())
	}

	r.mu.RLock()
	handler, ok := r.handlers[req.Method]
	r.mu.RUnlock()
	if !ok {
		return ErrorResponse(req.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}

	resp := handler(ctx, req)
	if resp.JSONRPC == "" {
		resp.JSONRPC = JSONRPCVersion
	}
	return resp
}
