package ports

import (
	"context"

	"github.com/aretw0/openagi/pkg/domain"
)

// Relay sends the input text to the model configured in cfg and returns the
// generated message content. Implementations perform exactly one request per call.
type Relay interface {
	Complete(ctx context.Context, inputText string, cfg domain.LLMConfig) (string, error)
}

// RelayFunc adapts a plain function to the Relay interface.
type RelayFunc func(ctx context.Context, inputText string, cfg domain.LLMConfig) (string, error)

// Complete calls f.
func (f RelayFunc) Complete(ctx context.Context, inputText string, cfg domain.LLMConfig) (string, error) {
	return f(ctx, inputText, cfg)
}
