package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/openagi"
	"github.com/aretw0/openagi/internal/presentation/graph"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/persistence/middleware"
	"github.com/aretw0/openagi/pkg/schema"
	"github.com/aretw0/openagi/pkg/topology"
	"github.com/go-chi/chi/v5"
)

// Workbench defines the workspace operations the HTTP API exposes.
// *openagi.Workbench satisfies it.
type Workbench interface {
	Create(ctx context.Context) (*domain.Workflow, error)
	Get(ctx context.Context, id string) (*domain.Workflow, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	DropNode(ctx context.Context, id string, kind domain.NodeKind, pos domain.Position) (domain.Node, error)
	RemoveNode(ctx context.Context, id, nodeID string) error
	Connect(ctx context.Context, id, sourceID, targetID string) (domain.Edge, error)
	Disconnect(ctx context.Context, id, edgeID string) error
	InputText(ctx context.Context, id string) (string, error)
	SetInputText(ctx context.Context, id, text string) error
	LLMConfig(ctx context.Context, id string) (domain.LLMConfig, error)
	UpdateLLMConfig(ctx context.Context, id string, cfg domain.LLMConfig) (domain.LLMConfig, error)
	SetLLMField(ctx context.Context, id, field, value string) (domain.LLMConfig, error)
	Validate(ctx context.Context, id string) ([]schema.FieldState, error)
	Check(ctx context.Context, id string) (topology.Chain, error)
	Run(ctx context.Context, id string) (string, error)
}

var _ Workbench = (*openagi.Workbench)(nil)

// Server implements ServerInterface
type Server struct {
	Workbench Workbench
	Streams   *StreamManager
	logger    *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

type handlerConfig struct {
	relay   http.Handler
	metrics http.Handler
	streams *StreamManager
	logger  *slog.Logger
}

// Option configures NewHandler.
type Option func(*handlerConfig)

// WithRelayHandler mounts the model relay at relay.Path.
func WithRelayHandler(h http.Handler) Option {
	return func(c *handlerConfig) {
		c.relay = h
	}
}

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *handlerConfig) {
		c.metrics = h
	}
}

// WithStreams shares a StreamManager that is also wired into the workbench
// as change listener and lifecycle hooks.
func WithStreams(sm *StreamManager) Option {
	return func(c *handlerConfig) {
		c.streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the workbench.
func NewHandler(wb Workbench, opts ...Option) (http.Handler, error) {
	cfg := &handlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.streams == nil {
		cfg.streams = NewStreamManager(cfg.logger)
	}

	server := &Server{
		Workbench: wb,
		Streams:   cfg.streams,
		logger:    cfg.logger,
	}

	swagger, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	validator, err := NewRequestValidator(swagger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(validator)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			cfg.logger.Error("Failed to load OpenAPI spec", "error", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics)
	}
	if cfg.relay != nil {
		r.Handle("/api/together", cfg.relay)
	}

	handler := HandlerWithOptions(server, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		},
	})
	return enableCORS(handler), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>OpenAGI API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// -- Request and response bodies --

type dropNodeRequest struct {
	Kind     domain.NodeKind `json:"kind"`
	Position domain.Position `json:"position"`
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type inputText struct {
	InputText string `json:"inputText"`
}

type fieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type errorDetail struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type validationReport struct {
	Fields []schema.FieldState `json:"fields"`
	Ready  bool                `json:"ready"`
	Error  *errorDetail        `json:"error,omitempty"`
}

type runResult struct {
	Output string `json:"output"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "openagi-http",
		"version":     strings.TrimSpace(openagi.Version),
		"api_version": apiVersion,
	})
}

// ListModels handles the GET /models request.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, domain.KnownModels)
}

// CreateWorkspace handles the POST /workspaces request.
func (s *Server) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Workbench.Create(r.Context())
	if err != nil {
		s.fail(w, "CreateWorkspace", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, middleware.Redact(wf))
}

// ListWorkspaces handles the GET /workspaces request.
func (s *Server) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Workbench.List(r.Context())
	if err != nil {
		s.fail(w, "ListWorkspaces", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetWorkspace handles the GET /workspaces/{workspaceId} request.
func (s *Server) GetWorkspace(w http.ResponseWriter, r *http.Request, workspaceId string) {
	wf, err := s.Workbench.Get(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "GetWorkspace", err)
		return
	}
	s.writeJSON(w, http.StatusOK, middleware.Redact(wf))
}

// DeleteWorkspace handles the DELETE /workspaces/{workspaceId} request.
func (s *Server) DeleteWorkspace(w http.ResponseWriter, r *http.Request, workspaceId string) {
	if err := s.Workbench.Delete(r.Context(), workspaceId); err != nil {
		s.fail(w, "DeleteWorkspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetWorkspaceGraph handles the GET /workspaces/{workspaceId}/graph request.
func (s *Server) GetWorkspaceGraph(w http.ResponseWriter, r *http.Request, workspaceId string, params GetWorkspaceGraphParams) {
	wf, err := s.Workbench.Get(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "GetWorkspaceGraph", err)
		return
	}
	direction := graph.DirectionLR
	if params.Direction != nil {
		direction = *params.Direction
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(wf, direction, graph.Overlay(wf))))
}

// DropNode handles the POST /workspaces/{workspaceId}/nodes request.
func (s *Server) DropNode(w http.ResponseWriter, r *http.Request, workspaceId string) {
	var body dropNodeRequest
	if !s.decode(w, r, "DropNode", &body) {
		return
	}
	node, err := s.Workbench.DropNode(r.Context(), workspaceId, body.Kind, body.Position)
	if err != nil {
		s.fail(w, "DropNode", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

// RemoveNode handles the DELETE /workspaces/{workspaceId}/nodes/{nodeId} request.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request, workspaceId string, nodeId string) {
	if err := s.Workbench.RemoveNode(r.Context(), workspaceId, nodeId); err != nil {
		s.fail(w, "RemoveNode", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Connect handles the POST /workspaces/{workspaceId}/edges request.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request, workspaceId string) {
	var body connectRequest
	if !s.decode(w, r, "Connect", &body) {
		return
	}
	edge, err := s.Workbench.Connect(r.Context(), workspaceId, body.Source, body.Target)
	if err != nil {
		s.fail(w, "Connect", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, edge)
}

// Disconnect handles the DELETE /workspaces/{workspaceId}/edges/{edgeId} request.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request, workspaceId string, edgeId string) {
	if err := s.Workbench.Disconnect(r.Context(), workspaceId, edgeId); err != nil {
		s.fail(w, "Disconnect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInput handles the GET /workspaces/{workspaceId}/input request.
func (s *Server) GetInput(w http.ResponseWriter, r *http.Request, workspaceId string) {
	text, err := s.Workbench.InputText(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "GetInput", err)
		return
	}
	s.writeJSON(w, http.StatusOK, inputText{InputText: text})
}

// SetInput handles the PUT /workspaces/{workspaceId}/input request.
func (s *Server) SetInput(w http.ResponseWriter, r *http.Request, workspaceId string) {
	var body inputText
	if !s.decode(w, r, "SetInput", &body) {
		return
	}
	if err := s.Workbench.SetInputText(r.Context(), workspaceId, body.InputText); err != nil {
		s.fail(w, "SetInput", err)
		return
	}
	s.writeJSON(w, http.StatusOK, body)
}

// GetLLMConfig handles the GET /workspaces/{workspaceId}/llm-config request.
func (s *Server) GetLLMConfig(w http.ResponseWriter, r *http.Request, workspaceId string) {
	cfg, err := s.Workbench.LLMConfig(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "GetLLMConfig", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg.Redacted())
}

// ReplaceLLMConfig handles the PUT /workspaces/{workspaceId}/llm-config request.
func (s *Server) ReplaceLLMConfig(w http.ResponseWriter, r *http.Request, workspaceId string) {
	var body domain.LLMConfig
	if !s.decode(w, r, "ReplaceLLMConfig", &body) {
		return
	}
	cfg, err := s.Workbench.UpdateLLMConfig(r.Context(), workspaceId, body)
	if err != nil {
		s.fail(w, "ReplaceLLMConfig", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg.Redacted())
}

// SetLLMField handles the PATCH /workspaces/{workspaceId}/llm-config request.
func (s *Server) SetLLMField(w http.ResponseWriter, r *http.Request, workspaceId string) {
	var body fieldUpdate
	if !s.decode(w, r, "SetLLMField", &body) {
		return
	}
	cfg, err := s.Workbench.SetLLMField(r.Context(), workspaceId, body.Field, body.Value)
	if err != nil {
		s.fail(w, "SetLLMField", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg.Redacted())
}

// GetValidation handles the GET /workspaces/{workspaceId}/validation request.
func (s *Server) GetValidation(w http.ResponseWriter, r *http.Request, workspaceId string) {
	fields, err := s.Workbench.Validate(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "GetValidation", err)
		return
	}

	report := validationReport{Fields: fields, Ready: true}
	if _, err := s.Workbench.Check(r.Context(), workspaceId); err != nil {
		var re *domain.RunError
		if !errors.As(err, &re) {
			s.fail(w, "GetValidation", err)
			return
		}
		report.Ready = false
		report.Error = &errorDetail{Kind: string(re.Kind), Message: re.Message}
	}
	s.writeJSON(w, http.StatusOK, report)
}

// RunWorkflow handles the POST /workspaces/{workspaceId}/run request.
func (s *Server) RunWorkflow(w http.ResponseWriter, r *http.Request, workspaceId string) {
	output, err := s.Workbench.Run(r.Context(), workspaceId)
	if err != nil {
		s.fail(w, "RunWorkflow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, runResult{Output: output})
}

// SubscribeEvents handles the GET /workspaces/{workspaceId}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, workspaceId string, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	if _, err := s.Workbench.Get(r.Context(), workspaceId); err != nil {
		s.fail(w, "SubscribeEvents", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to workspace updates", "workspace_id", workspaceId)
	ch, cancel := s.Streams.Subscribe(workspaceId)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if params.Watch != nil && *params.Watch != "" {
		watchList = strings.Split(*params.Watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "workspace_id", workspaceId)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !msg.Matches(watchList) {
				continue
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, payload)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		s.logger.Warn(op+": Invalid request body", "error", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// fail maps a workbench error to its status code.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status, kind, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err, "status", status)
	}
	writeError(w, status, kind, message)
}

func classify(err error) (status int, kind, message string) {
	var re *domain.RunError
	switch {
	case errors.As(err, &re) && re.Kind == domain.KindRelayFailure:
		return http.StatusBadGateway, string(re.Kind), re.Error()
	case errors.As(err, &re):
		return http.StatusUnprocessableEntity, string(re.Kind), re.Message
	case errors.Is(err, domain.ErrIllegalEdge):
		return http.StatusUnprocessableEntity, "IllegalEdge", domain.ErrIllegalEdge.Error()
	case errors.Is(err, domain.ErrRunInFlight):
		return http.StatusConflict, "RunInFlight", err.Error()
	case errors.Is(err, domain.ErrWorkspaceNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound):
		return http.StatusNotFound, "NotFound", err.Error()
	case errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrUnknownField):
		return http.StatusBadRequest, "InvalidRequest", err.Error()
	}
	return http.StatusInternalServerError, "Internal", "internal error"
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Kind: kind, Message: message}})
}
