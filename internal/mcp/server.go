// Package mcp exposes context retrieval as MCP tools over stdio, so agent
// hosts can pull sales context without going through the HTTP API.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/vibecoding/mcp-server/internal/retrieval"
	"github.com/vibecoding/mcp-server/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing the retrieval tools.
type Server struct {
	retriever *retrieval.Orchestrator
	store     vectordb.VectorStore
	mcp       *server.MCPServer
}

// NewServer creates an MCP server over the given retrieval stack.
func NewServer(retriever *retrieval.Orchestrator, store vectordb.VectorStore) *Server {
	s := &Server{
		retriever: retriever,
		store:     store,
	}

	s.mcp = server.NewMCPServer(
		"vibecoding-mcp",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(getContextTool, s.handleGetContext)
	s.mcp.AddTool(searchContextTool, s.handleSearchContext)
}

// Serve starts the MCP server on stdio. Stdout carries protocol messages;
// all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
