package relayerapi

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Handler serves one JSON-RPC method: params is the raw "params" array or
// object, and the return value is marshalled into the response's result.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Server is the method registry and dispatcher every namespace API
// registers itself into.
type Server struct {
	mu      sync.RWMutex
	methods map[string]Handler
}

// NewServer builds an empty dispatcher. Namespace APIs call Register to
// add their methods.
func NewServer() *Server {
	return &Server{methods: map[string]Handler{}}
}

// Register binds name (e.g. "admin_addRelayer") to h. Registering a name
// twice replaces the previous handler.
func (s *Server) Register(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[name] = h
}

// Methods lists every registered method name, for diagnostics.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.methods))
	for name := range s.methods {
		out = append(out, name)
	}
	return out
}

// Handle dispatches a single JSON-RPC request to its registered handler.
func (s *Server) Handle(ctx context.Context, req Request) Response {
	s.mu.RLock()
	h, ok := s.methods[req.Method]
	s.mu.RUnlock()
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
	result, err := h(ctx, req.Params)
	if err != nil {
		log.Warn("relayerapi: method call failed", "method", req.Method, "err", err)
		return errorResponse(req.ID, codeInternalError, err.Error())
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}
