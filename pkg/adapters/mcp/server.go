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

	"github.com/aretw0/openagi"
	"github.com/aretw0/openagi/internal/runtime"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/dsl"
	"github.com/aretw0/openagi/pkg/ports"
	"github.com/aretw0/openagi/pkg/schema"
	"github.com/aretw0/openagi/pkg/topology"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// Resource URIs.
const (
	ModelsURI     = "openagi://models"
	WorkspacesURI = "openagi://workspaces"
)

// ConnectionResult is the answer of check_connection.
type ConnectionResult struct {
	Legal   bool   `json:"legal" jsonschema_description:"Whether the connection would be accepted"`
	Message string `json:"message,omitempty" jsonschema_description:"Why the connection is rejected"`
}

// ValidationResult is the answer of validate_config.
type ValidationResult struct {
	Fields []schema.FieldState `json:"fields" jsonschema_description:"State of every LLM form field"`
	Ready  bool                `json:"ready" jsonschema_description:"Whether a run would reach the model API"`
	Kind   string              `json:"kind,omitempty" jsonschema_description:"Kind of the first failing check"`
	Error  string              `json:"error,omitempty" jsonschema_description:"Message of the first failing check"`
}

// RunResult is the answer of run_workflow and run_workspace.
type RunResult struct {
	Output string `json:"output" jsonschema_description:"Generated text"`
}

// Workbench defines the workspace operations exposed over MCP.
type Workbench interface {
	List(ctx context.Context) ([]string, error)
	Run(ctx context.Context, id string) (string, error)
}

// chainArgs are the arguments shared by validate_config and run_workflow.
type chainArgs struct {
	InputText        string `mapstructure:"input_text"`
	domain.LLMConfig `mapstructure:",squash"`
}

// Server exposes the run orchestrator as an MCP Server.
type Server struct {
	engine    *runtime.Engine
	workbench Workbench
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithWorkbench enables the workspace tools and resources.
func WithWorkbench(wb Workbench) Option {
	return func(s *Server) {
		s.workbench = wb
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server that runs chains through relay.
func NewServer(relay ports.Relay, opts ...Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("openagi-mcp", strings.TrimSpace(openagi.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.engine = runtime.NewEngine(relay, runtime.WithLogger(s.logger))

	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func chainTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("input_text", mcp.Description("Text typed into the Input node")),
		mcp.WithString("api_key", mcp.Description("Model API key")),
		mcp.WithString("model", mcp.Description("Model name, e.g. "+domain.KnownModels[0])),
		mcp.WithString("max_tokens", mcp.Description("Max Tokens, integer > 0")),
		mcp.WithString("temperature", mcp.Description("Temperature, between 0 and 1")),
		mcp.WithString("top_k", mcp.Description("Top K, integer >= 1")),
		mcp.WithString("repetition_penalty", mcp.Description("Repetition Penalty, number >= 0")),
	}
	return mcp.NewTool(name, append(opts, extra...)...)
}

func (s *Server) registerTools() {
	kinds := []string{string(domain.KindInput), string(domain.KindLLM), string(domain.KindOutput)}

	// TOOL: check_connection
	s.mcpServer.AddTool(mcp.NewTool("check_connection",
		mcp.WithDescription("Check whether an edge between two node kinds is allowed. Only Input → LLM and LLM → Output are legal."),
		mcp.WithString("source", mcp.Required(), mcp.Enum(kinds...), mcp.Description("Kind of the source node")),
		mcp.WithString("target", mcp.Required(), mcp.Enum(kinds...), mcp.Description("Kind of the target node")),
		mcp.WithOutputSchema[ConnectionResult](),
	), mcp.NewStructuredToolHandler(s.handleCheckConnection))

	// TOOL: validate_config
	s.mcpServer.AddTool(chainTool("validate_config",
		"Validate the LLM Engine form and the input the way a run would, without calling the model.",
		mcp.WithOutputSchema[ValidationResult](),
	), mcp.NewStructuredToolHandler(s.handleValidateConfig))

	// TOOL: run_workflow
	s.mcpServer.AddTool(chainTool("run_workflow",
		"Run a complete Input → LLM → Output chain and return the generated text.",
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRunWorkflow))

	if s.workbench == nil {
		return
	}

	// TOOL: run_workspace
	s.mcpServer.AddTool(mcp.NewTool("run_workspace",
		mcp.WithDescription("Run the chain of an existing workspace. The result is written to its Output node."),
		mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace identifier")),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRunWorkspace))
}

// decodeArgs decodes tool arguments leniently, so numbers sent for form fields become strings.
func decodeArgs(args map[string]interface{}, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func (s *Server) chain(args map[string]interface{}) (*domain.Workflow, error) {
	ca := chainArgs{LLMConfig: domain.DefaultLLMConfig()}
	if err := decodeArgs(args, &ca); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return dsl.Chain(ca.InputText, ca.LLMConfig)
}

func (s *Server) handleCheckConnection(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConnectionResult, error) {
	var in struct {
		Source domain.NodeKind `mapstructure:"source"`
		Target domain.NodeKind `mapstructure:"target"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return ConnectionResult{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if !in.Source.Valid() || !in.Target.Valid() {
		return ConnectionResult{}, fmt.Errorf("%w: %q → %q", domain.ErrUnknownKind, in.Source, in.Target)
	}

	if topology.IsLegalEdge(in.Source, in.Target) {
		return ConnectionResult{Legal: true}, nil
	}
	return ConnectionResult{Message: domain.ErrIllegalEdge.Error()}, nil
}

func (s *Server) handleValidateConfig(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResult, error) {
	wf, err := s.chain(args)
	if err != nil {
		return ValidationResult{}, err
	}

	res := ValidationResult{Fields: schema.FieldStates(wf.LLMConfig), Ready: true}
	if _, err := s.engine.Preflight(wf); err != nil {
		var re *domain.RunError
		if !errors.As(err, &re) {
			return ValidationResult{}, err
		}
		res.Ready = false
		res.Kind = string(re.Kind)
		res.Error = re.Message
	}
	return res, nil
}

func (s *Server) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResult, error) {
	wf, err := s.chain(args)
	if err != nil {
		return RunResult{}, err
	}

	out, err := s.engine.Run(ctx, wf)
	if err != nil {
		s.logger.Warn("MCP run_workflow failed", "kind", domain.KindOf(err), "error", err)
		return RunResult{}, err
	}
	return RunResult{Output: out}, nil
}

func (s *Server) handleRunWorkspace(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResult, error) {
	var in struct {
		WorkspaceID string `mapstructure:"workspace_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return RunResult{}, fmt.Errorf("invalid arguments: %w", err)
	}

	out, err := s.workbench.Run(ctx, in.WorkspaceID)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Output: out}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: openagi://models
	s.mcpServer.AddResource(mcp.NewResource(ModelsURI, "Models offered by the LLM Engine node",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(ModelsURI, domain.KnownModels)
	})

	if s.workbench == nil {
		return
	}

	// EXPOSE: openagi://workspaces
	s.mcpServer.AddResource(mcp.NewResource(WorkspacesURI, "Live workspace ids",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.workbench.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}
		return jsonResource(WorkspacesURI, ids)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
