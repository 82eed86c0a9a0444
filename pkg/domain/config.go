package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ModelUnselected is the value of the model dropdown before a choice is made.
const ModelUnselected = "-1"

// KnownModels are the models offered by the LLM Engine node.
// Other model names are accepted and forwarded unchanged.
var KnownModels = []string{
	"meta-llama/Llama-3.3-70B-Instruct-Turbo",
	"Qwen/QwQ-32B-Preview",
}

// Field is a free-form form value. It decodes from a JSON string, number or null,
// so clients may send either `"0.7"` or `0.7`.
type Field string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("field must be a string, number or null: %w", err)
	}
	*f = Field(n.String())
	return nil
}

// String returns the raw value.
func (f Field) String() string {
	return string(f)
}

// LLMConfig holds the parameters of the LLM Engine node exactly as typed.
// Numeric values stay unparsed until a run validates them.
type LLMConfig struct {
	APIKey            string `json:"apiKey" yaml:"api_key" mapstructure:"api_key"`
	Model             string `json:"model" yaml:"model" mapstructure:"model"`
	MaxTokens         Field  `json:"maxTokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       Field  `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	TopK              Field  `json:"topK" yaml:"top_k" mapstructure:"top_k"`
	RepetitionPenalty Field  `json:"repetitionPenalty" yaml:"repetition_penalty" mapstructure:"repetition_penalty"`
}

// DefaultLLMConfig is the state of a freshly dropped LLM Engine form.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{Model: ModelUnselected}
}

// ModelSelected reports whether a model other than the placeholder has been chosen.
func (c LLMConfig) ModelSelected() bool {
	m := strings.TrimSpace(c.Model)
	return m != "" && m != ModelUnselected
}

// RedactionMask stands in for a set API key wherever a config leaves the process.
const RedactionMask = "****"

// Redacted returns a copy safe for logging.
func (c LLMConfig) Redacted() LLMConfig {
	if c.APIKey != "" {
		c.APIKey = RedactionMask
	}
	return c
}

// Unmask returns c with the API key of stored restored when c still carries RedactionMask,
// so a redacted config written back keeps the key it was read with.
func (c LLMConfig) Unmask(stored LLMConfig) LLMConfig {
	if c.APIKey == RedactionMask {
		c.APIKey = stored.APIKey
	}
	return c
}

// Config field names, as used by the form and by single-field updates.
const (
	FieldAPIKey            = "apiKey"
	FieldModel             = "model"
	FieldMaxTokens         = "maxTokens"
	FieldTemperature       = "temperature"
	FieldTopK              = "topK"
	FieldRepetitionPenalty = "repetitionPenalty"
)

// ConfigFields lists the field names in form order.
var ConfigFields = []string{
	FieldAPIKey,
	FieldModel,
	FieldMaxTokens,
	FieldTemperature,
	FieldTopK,
	FieldRepetitionPenalty,
}

// Set updates a single field by name, the way a keystroke in the form does.
func (c *LLMConfig) Set(name, value string) error {
	switch name {
	case FieldAPIKey:
		c.APIKey = value
	case FieldModel:
		c.Model = value
	case FieldMaxTokens:
		c.MaxTokens = Field(value)
	case FieldTemperature:
		c.Temperature = Field(value)
	case FieldTopK:
		c.TopK = Field(value)
	case FieldRepetitionPenalty, "repetition_penalty":
		c.RepetitionPenalty = Field(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Get returns a single field by name.
func (c LLMConfig) Get(name string) (string, error) {
	switch name {
	case FieldAPIKey:
		return c.APIKey, nil
	case FieldModel:
		return c.Model, nil
	case FieldMaxTokens:
		return c.MaxTokens.String(), nil
	case FieldTemperature:
		return c.Temperature.String(), nil
	case FieldTopK:
		return c.TopK.String(), nil
	case FieldRepetitionPenalty, "repetition_penalty":
		return c.RepetitionPenalty.String(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}
