// Package mcpserver exposes the engine and query layers over the Model
// Context Protocol (spec §4.E's shell/LSP/MCP trio), so an AI coding
// assistant can drive indexing and querying the same way the shell
// collaborator would.
//
// Grounded on the teacher's internal/server/{tools,resources}.go: the
// mcp.AddTool registrations, the args-struct-plus-jsonschema pattern, and
// the index-status state machine are kept; the teacher never shipped a
// server.go defining Server itself, so this file is new, built in the
// same idiom (an RWMutex-guarded status plus a close-on-ready channel).
package mcpserver

import (
	"context"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/discovery/reference"
	"github.com/naviscope/naviscope/internal/engine"
	"github.com/naviscope/naviscope/internal/query"
)

// IndexStatus tags where the engine's current graph stands relative to
// the workspace on disk.
type IndexStatus string

const (
	IndexStatusIdle       IndexStatus = "idle"
	IndexStatusInProgress IndexStatus = "in_progress"
	IndexStatusReady      IndexStatus = "ready"
	IndexStatusFailed     IndexStatus = "failed"
)

// Server wires an Engine and a reference Finder behind MCP tool and
// resource handlers.
type Server struct {
	engine *engine.Engine
	finder *reference.Finder
	logger *zap.Logger

	mcpServer    *mcp.Server
	systemPrompt string

	indexMu       sync.RWMutex
	indexStatus   IndexStatus
	indexErr      error
	indexDuration time.Duration
	indexReady    chan struct{}
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the nop default logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSystemPrompt sets the text served from the usage-guidelines
// resource.
func WithSystemPrompt(prompt string) Option {
	return func(s *Server) { s.systemPrompt = prompt }
}

// WithReferenceFinder overrides the default tree-sitter-only Finder,
// used to plug in an LSP-backed SemanticResolver (internal/lsp,
// internal/lspmgr) when one is configured for the workspace.
func WithReferenceFinder(f *reference.Finder) Option {
	return func(s *Server) { s.finder = f }
}

// New constructs a Server around eng, registering every tool and
// resource before returning.
func New(eng *engine.Engine, registry *discovery.Registry, opts ...Option) (*Server, error) {
	s := &Server{
		engine:      eng,
		logger:      zap.NewNop(),
		indexStatus: IndexStatusIdle,
		indexReady:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.finder == nil {
		s.finder = reference.NewFinder(registry, nil, nil, s.logger)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "naviscope",
		Version: "0.1.0",
	}, nil)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Serve runs the MCP server over stdio until ctx is cancelled or the
// transport closes.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// setIndexStatus updates status under indexMu, closing indexReady on the
// Ready transition so any WaitForIndex callers unblock.
func (s *Server) setIndexStatus(status IndexStatus, err error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.indexStatus = status
	s.indexErr = err
	if status == IndexStatusReady {
		select {
		case <-s.indexReady:
		default:
			close(s.indexReady)
		}
	}
}

// GetIndexStatus returns the current status, last error (if Failed), and
// the duration of the most recently completed build.
func (s *Server) GetIndexStatus() (IndexStatus, error, time.Duration) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.indexStatus, s.indexErr, s.indexDuration
}

// WaitForIndex blocks until an index build completes successfully, or ctx
// is cancelled. A failed build does not unblock it; callers see the
// failure through GetIndexStatus once ctx ends.
func (s *Server) WaitForIndex(ctx context.Context) error {
	s.indexMu.RLock()
	ready := s.indexReady
	s.indexMu.RUnlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) querySnapshot() *query.Engine {
	return query.New(s.engine.Snapshot(), query.WithFinder(s.finder))
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
