package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dhollis/twinrag/internal/embedder"
	"github.com/dhollis/twinrag/internal/pipeline"
	"github.com/dhollis/twinrag/internal/session"
	"github.com/dhollis/twinrag/internal/store"
	"github.com/dhollis/twinrag/internal/vectorindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "twinrag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Deps holds the already-wired components the server exposes over MCP.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Store    store.Store
	Index    vectorindex.Index
	Embedder embedder.Embedder
	Recorder *session.Recorder
	Logger   *zap.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Pipeline
	store    store.Store
	index    vectorindex.Index
	embedder embedder.Embedder
	recorder *session.Recorder
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance over the given dependencies.
func NewServer(deps Deps) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		pipeline: deps.Pipeline,
		store:    deps.Store,
		index:    deps.Index,
		embedder: deps.Embedder,
		recorder: deps.Recorder,
		logger:   deps.Logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown. The
// session recorder is drained and the store closed on the way out.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if s.recorder != nil {
			_ = s.recorder.Close(ctx)
		}
		_ = s.store.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(profileSearchTool(), s.handleProfileSearch)
	s.mcp.AddTool(engineStatusTool(), s.handleEngineStatus)
}
