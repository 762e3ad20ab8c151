package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LatestFlowURI is the resource holding the working flow document.
const LatestFlowURI = "botflow://flow/latest"

// Server exposes the flow store and the test bot as MCP tools.
type Server struct {
	workspace *botflow.Workspace
	sessions  *session.Manager
	policy    runner.InputPolicy
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for rejected calls and transport events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInputPolicy overrides the limits applied to submitted answers.
func WithInputPolicy(p runner.InputPolicy) Option {
	return func(s *Server) {
		s.policy = p
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(workspace *botflow.Workspace, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		workspace: workspace,
		sessions:  sessions,
		policy:    runner.DefaultInputPolicy(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("botflow-mcp", strings.TrimSpace(botflow.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
	}))
	r.Handle("/sse", sseServer.SSEHandler())
	r.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Get a stored flow. Without id, returns the latest flow or the default document when nothing is saved."),
		mcp.WithNumber("id", mcp.Description("Flow id (optional)")),
	), s.handleGetFlow)

	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List every stored flow, most recent first."),
	), s.handleListFlows)

	s.mcpServer.AddTool(mcp.NewTool("save_flow",
		mcp.WithDescription("Save the working flow. Creates the first record or replaces the latest one in place."),
		mcp.WithString("flow", mcp.Required(), mcp.Description(`JSON flow document: {"nodes": [...], "edges": [...]}`)),
		mcp.WithString("name", mcp.Description("Flow name (optional, kept when omitted)")),
	), s.handleSaveFlow)

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a test-bot conversation. Runs the inline flow, the flow with flow_id, or the latest flow."),
		mcp.WithNumber("flow_id", mcp.Description("Stored flow id (optional)")),
		mcp.WithString("flow", mcp.Description("Inline JSON flow document (optional)")),
	), s.handleStartSession)

	s.mcpServer.AddTool(mcp.NewTool("submit_input",
		mcp.WithDescription("Answer the question a test-bot session is waiting on."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_session")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The answer")),
	), s.handleSubmitInput)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current snapshot of a test-bot session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleGetSession)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(LatestFlowURI, "Latest Flow Document",
		mcp.WithResourceDescription("The working flow edited in the builder"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sf, err := s.workspace.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest flow: %w", err)
		}
		data, err := json.Marshal(sf.FlowData)
		if err != nil {
			return nil, fmt.Errorf("failed to encode flow: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      LatestFlowURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// jsonResult encodes v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns expected failures into tool-level errors the agent can read,
// and everything else into a protocol error.
func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrFlowNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrNotAwaitingInput),
		errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		s.logger.Warn("MCP tool rejected", "tool", tool, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Error("MCP tool failed", "tool", tool, "error", err)
	return nil, fmt.Errorf("%s failed: %w", tool, err)
}
