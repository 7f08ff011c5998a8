package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oxhq/tspaths/core"
)

// Mapping is one alias/target pair as reported to clients.
type Mapping struct {
	Alias  string `json:"alias"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// Mappings describes the loaded project configuration.
type Mappings struct {
	Config        string    `json:"config"`
	BaseDirectory string    `json:"baseDirectory"`
	Mappings      []Mapping `json:"mappings"`
}

// Resolution statuses.
const (
	StatusResolved   = "resolved"
	StatusNotFound   = "not found"
	StatusSuppressed = "suppressed"
	StatusFailed     = "failed"
)

// Resolution is the outcome for one specifier. Suppressed means a mapping
// matched but its target was missing, so the specifier was not looked up
// as written.
type Resolution struct {
	Specifier string   `json:"specifier"`
	Alias     string   `json:"alias,omitempty"`
	Status    string   `json:"status"`
	Path      string   `json:"path,omitempty"`
	Error     string   `json:"error,omitempty"`
	Trace     []string `json:"trace,omitempty"`
}

// Backend answers tool calls against a project.
type Backend interface {
	Mappings(ctx context.Context) (*Mappings, error)
	Resolve(ctx context.Context, from string, specifiers []string) ([]Resolution, error)
	Scan(ctx context.Context, dir string) (*core.Summary, error)
}

// ToolHandler represents a function that handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Server handles MCP communication over a pair of streams
type Server struct {
	backend Backend
	router  *Router
	log     *logrus.Entry
	version string

	mu    sync.RWMutex
	tools map[string]ToolHandler

	out   *bufio.Writer
	outMu sync.Mutex
}

// NewServer creates a server answering with backend
func NewServer(backend Backend, version string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		backend: backend,
		router:  NewRouter(),
		log:     log,
		version: version,
		tools:   make(map[string]ToolHandler),
	}

	s.router.Register("initialize", s.handleInitialize)
	s.router.Register("notifications/initialized", s.handlePing)
	s.router.Register("ping", s.handlePing)
	s.router.Register("tools/list", s.handleListTools)
	s.router.Register("tools/call", s.handleCallTool)
	s.registerBuiltinTools()
	return s
}

// RegisterTool adds a custom tool handler
func (s *Server) RegisterTool(name string, handler ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[name] = handler
}

// Serve processes JSON-RPC messages from in until EOF or ctx is cancelled.
// Cancellation takes effect even while a read is blocked; the pending read
// is then abandoned.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = bufio.NewWriter(out)
	s.log.Debug("MCP server started")

	done := make(chan struct{})
	defer close(done)
	messages := s.read(in, done)

	for {
		var msg message
		select {
		case <-ctx.Done():
			s.log.Debug("context done, shutting down")
			return nil
		case msg = <-messages:
		}

		if errors.Is(msg.err, io.EOF) {
			s.log.Debug("EOF received, shutting down")
			return nil
		}
		if msg.err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(msg.err, &syntaxErr) {
				// the stream cannot be resynchronised after a syntax error
				s.send(ErrorResponse(nil, ParseError, fmt.Sprintf("JSON syntax error at position %d: %v", syntaxErr.Offset, msg.err)))
				return fmt.Errorf("reading request: %w", msg.err)
			}
			s.send(ErrorResponse(nil, ParseError, fmt.Sprintf("JSON decode error: %v", msg.err)))
			continue
		}

		req := msg.req
		s.log.WithFields(logrus.Fields{"method": req.Method, "id": req.ID}).Debug("request")
		resp := s.router.Dispatch(ctx, req)
		if !req.IsNotification() {
			s.send(resp)
		}
	}
}

type message struct {
	req Request
	err error
}

// read decodes requests from in until EOF or a syntax error, or until done
// is closed.
func (s *Server) read(in io.Reader, done <-chan struct{}) <-chan message {
	messages := make(chan message)
	go func() {
		decoder := json.NewDecoder(bufio.NewReader(in))
		for {
			var msg message
			msg.err = decoder.Decode(&msg.req)

			select {
			case messages <- msg:
			case <-done:
				return
			}

			var syntaxErr *json.SyntaxError
			if errors.Is(msg.err, io.EOF) || errors.As(msg.err, &syntaxErr) {
				return
			}
		}
	}()
	return messages
}

func (s *Server) send(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.WithError(err).Error("failed to marshal response")
		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, "%s\n", data)
	s.out.Flush()
}

// handleInitialize handles the MCP initialization handshake
func (s *Server) handleInitialize(_ context.Context, req Request) Response {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, InvalidParams, "Invalid initialize params")
		}
	}
	s.log.WithFields(logrus.Fields{
		"client":   params.ClientInfo.Name,
		"version":  params.ClientInfo.Version,
		"protocol": params.ProtocolVersion,
	}).Debug("client connected")

	return SuccessResponse(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "tspaths",
			"version": s.version,
		},
	})
}

// handlePing responds to keepalive pings
func (s *Server) handlePing(_ context.Context, req Request) Response {
	return SuccessResponse(req.ID, map[string]any{})
}

// handleListTools returns available tools to the client
func (s *Server) handleListTools(_ context.Context, req Request) Response {
	return SuccessResponse(req.ID, map[string]any{
		"tools": ToolDefinitions(),
	})
}

// handleCallTool executes a specific tool
func (s *Server) handleCallTool(ctx context.Context, req Request) Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ErrorResponse(req.ID, InvalidParams, "Invalid params structure")
	}

	s.mu.RLock()
	handler, exists := s.tools[params.Name]
	s.mu.RUnlock()
	if !exists {
		return ErrorResponse(req.ID, ToolNotFound, fmt.Sprintf("Tool not found: %s", params.Name))
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		var mcpErr *MCPError
		if errors.As(err, &mcpErr) {
			return ErrorResponse(req.ID, mcpErr.Code, mcpErr.Message, mcpErr.Data)
		}
		return ErrorResponse(req.ID, InternalError, err.Error())
	}
	return SuccessResponse(req.ID, result)
}
