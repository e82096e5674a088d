// Package mcpserver exposes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

const Name = "homey-mcp"

type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	log      *logger.Logger
}

// New registers every tool of reg on a fresh MCP server.
func New(reg *tools.Registry, version string, log *logger.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithToolCapabilities(true),
			server.WithLogging(),
		),
		registry: reg,
		log:      log.Named("mcp"),
	}
	for _, t := range reg.List() {
		s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, t.Schema()), s.callTool)
	}
	s.log.Infow("mcp tools registered", "count", len(reg.List()))
	return s
}

func (s *Server) callTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	res, err := s.registry.Execute(ctx, name, req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(res.Text()), nil
	}
	return mcp.NewToolResultText(res.Text()), nil
}

// ServeStdio speaks JSON-RPC on in and out until ctx is done. Nothing else may
// write to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.log.Desugar()))
	s.log.Infow("serving mcp over stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// ServeSSE serves MCP over server-sent events on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcp)
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("serving mcp over sse", "addr", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp sse shutdown: %w", err)
		}
		return nil
	}
}
