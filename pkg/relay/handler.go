package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/openagi/internal/logging"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
)

// Path is where the relay is mounted.
const Path = "/api/together"

// Handler serves the relay endpoint.
type Handler struct {
	upstreamURL        string
	client             *http.Client
	integerTemperature bool
	hooks              domain.LifecycleHooks
	logger             *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithUpstreamURL overrides the chat-completion endpoint.
func WithUpstreamURL(url string) Option {
	return func(h *Handler) {
		h.upstreamURL = url
	}
}

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) {
		h.client = client
	}
}

// WithIntegerTemperature truncates temperature to its leading integer before forwarding,
// as early clients of the relay expect.
func WithIntegerTemperature() Option {
	return func(h *Handler) {
		h.integerTemperature = true
	}
}

// WithLifecycleHooks registers OnRelayCall and OnRelayReturn callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Handler) {
		h.hooks = hooks
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a relay handler. Upstream calls have no timeout.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		upstreamURL: DefaultUpstreamURL,
		client:      &http.Client{},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ ports.Relay = (*Handler)(nil)

var errMissingConfig = errors.New("llmConfig is required")

// ServeHTTP forwards the prompt and copies the upstream status and JSON body to w.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.LLMConfig == nil {
		writeError(w, http.StatusInternalServerError, errMissingConfig)
		return
	}

	// The upstream call outlives a disconnecting client.
	ctx := context.WithoutCancel(r.Context())

	status, body, err := h.forward(ctx, req.InputText, *req.LLMConfig)
	if err != nil {
		h.logger.Error("relay failed", "model", req.LLMConfig.Model, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Complete performs the relay in-process, without an HTTP hop between caller and relay.
func (h *Handler) Complete(ctx context.Context, inputText string, cfg domain.LLMConfig) (string, error) {
	status, body, err := h.forward(context.WithoutCancel(ctx), inputText, cfg)
	if err != nil {
		return "", err
	}
	return decodeCompletion(status, body)
}

// forward performs one upstream call and returns its status and JSON body.
func (h *Handler) forward(ctx context.Context, inputText string, cfg domain.LLMConfig) (int, []byte, error) {
	payload, truncated := BuildUpstreamRequest(inputText, cfg, h.integerTemperature)
	if truncated {
		h.logger.Warn("temperature truncated to an integer before forwarding",
			"temperature", cfg.Temperature.String(),
			"sent", *payload.Temperature,
		)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.upstreamURL, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	event := &domain.RelayEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventRelayCall},
		Model:     cfg.Model,
	}
	if h.hooks.OnRelayCall != nil {
		h.hooks.OnRelayCall(ctx, event)
	}

	status, body, err := h.do(httpReq)

	if h.hooks.OnRelayReturn != nil {
		h.hooks.OnRelayReturn(ctx, &domain.RelayEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventRelayReturn},
			Model:      cfg.Model,
			StatusCode: status,
			Duration:   time.Since(start),
			IsError:    err != nil || status >= http.StatusBadRequest,
		})
	}
	h.logger.Debug("relay returned", "model", cfg.Model, "status", status, "duration", time.Since(start))

	return status, body, err
}

func (h *Handler) do(req *http.Request) (int, []byte, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read upstream body: %w", err)
	}
	if !json.Valid(body) {
		return resp.StatusCode, nil, fmt.Errorf("upstream returned non-JSON body (status %d)", resp.StatusCode)
	}
	return resp.StatusCode, body, nil
}

// writeError writes the relay's local failure shape: {"error": "<message>"}.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
