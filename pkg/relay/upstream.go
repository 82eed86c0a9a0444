package relay

import (
	"strings"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/schema"
)

// DefaultUpstreamURL is the chat-completion endpoint of the hosted model API.
const DefaultUpstreamURL = "https://api.together.xyz/v1/chat/completions"

// Request is the body accepted by the relay endpoint.
type Request struct {
	InputText string            `json:"inputText"`
	LLMConfig *domain.LLMConfig `json:"llmConfig"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the body sent upstream.
// Numeric fields that fail to parse are sent as null.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens"`
	Temperature *float64  `json:"temperature"`
	TopK        *int      `json:"top_k"`
}

// ChatCompletionResponse is the subset of the upstream reply the client reads.
type ChatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// BuildUpstreamRequest maps a relay request to the upstream body.
// max_tokens and top_k take the leading integer of their field. temperature is sent as a
// float unless integerTemperature is set, in which case it is truncated to its leading integer.
// The second return value reports whether such a truncation discarded a fraction.
// repetitionPenalty is not forwarded.
func BuildUpstreamRequest(inputText string, cfg domain.LLMConfig, integerTemperature bool) (ChatCompletionRequest, bool) {
	req := ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: []Message{{Role: "user", Content: inputText}},
	}
	if v, ok := schema.LeadingInt(cfg.MaxTokens.String()); ok {
		req.MaxTokens = &v
	}
	if v, ok := schema.LeadingInt(cfg.TopK.String()); ok {
		req.TopK = &v
	}

	var truncated bool
	raw := strings.TrimSpace(cfg.Temperature.String())
	if integerTemperature {
		if v, ok := schema.LeadingInt(raw); ok {
			t := float64(v)
			req.Temperature = &t
			if f, ok := schema.LeadingFloat(raw); ok && f != t {
				truncated = true
			}
		}
	} else if f, ok := schema.LeadingFloat(raw); ok {
		req.Temperature = &f
	}

	return req, truncated
}

// Content extracts the first choice's message, or "No response content".
func (r ChatCompletionResponse) Content() string {
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == "" {
		return NoResponseContent
	}
	return r.Choices[0].Message.Content
}

// NoResponseContent is returned when the upstream reply carries no message.
const NoResponseContent = "No response content"
