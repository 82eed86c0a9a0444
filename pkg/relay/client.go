package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/ports"
)

// StatusError is returned by Client when the relay answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := upstreamMessage(e.Body)
	if msg == "" {
		return fmt.Sprintf("relay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, msg)
}

// upstreamMessage digs a human-readable message out of an error body.
// It understands {"error": "..."} and {"error": {"message": "..."}}.
func upstreamMessage(body []byte) string {
	var shape struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &shape) != nil || len(shape.Error) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(shape.Error, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(shape.Error, &obj) == nil {
		return obj.Message
	}
	return ""
}

// Client calls a relay endpoint over HTTP.
type Client struct {
	url  string
	http *http.Client
}

var _ ports.Relay = (*Client)(nil)

// NewClient creates a client for the relay at url (for example "http://localhost:5000/api/together").
// A nil httpClient uses a client without timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{url: url, http: httpClient}
}

// URL returns the relay address.
func (c *Client) URL() string {
	return c.url
}

// Complete sends the prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, inputText string, cfg domain.LLMConfig) (string, error) {
	data, err := json.Marshal(Request{InputText: inputText, LLMConfig: &cfg})
	if err != nil {
		return "", fmt.Errorf("failed to encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	return decodeCompletion(resp.StatusCode, body)
}

// decodeCompletion turns a relay reply into the generated text or a *StatusError.
func decodeCompletion(status int, body []byte) (string, error) {
	if status < 200 || status > 299 {
		return "", &StatusError{StatusCode: status, Body: body}
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode relay response: %w", err)
	}
	return out.Content(), nil
}
