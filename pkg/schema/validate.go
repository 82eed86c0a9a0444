package schema

import (
	"errors"

	"github.com/aretw0/openagi/pkg/domain"
)

// Rule validates one field of the LLM config.
type Rule struct {
	Field string
	Check func(cfg domain.LLMConfig) error
}

// ConfigRules lists the LLM form rules in form order.
var ConfigRules = []Rule{
	{Field: domain.FieldAPIKey, Check: func(c domain.LLMConfig) error { return CheckAPIKey(c.APIKey) }},
	{Field: domain.FieldModel, Check: CheckModel},
	{Field: domain.FieldMaxTokens, Check: func(c domain.LLMConfig) error {
		_, err := ParseMaxTokens(c.MaxTokens.String())
		return err
	}},
	{Field: domain.FieldTemperature, Check: func(c domain.LLMConfig) error {
		_, err := ParseTemperature(c.Temperature.String())
		return err
	}},
	{Field: domain.FieldTopK, Check: func(c domain.LLMConfig) error {
		_, err := ParseTopK(c.TopK.String())
		return err
	}},
	{Field: domain.FieldRepetitionPenalty, Check: func(c domain.LLMConfig) error {
		_, err := ParseRepetitionPenalty(c.RepetitionPenalty.String())
		return err
	}},
}

// ValidateConfig checks every field of cfg.
// Returns an *AggregateError with all failures found, or nil.
func ValidateConfig(cfg domain.LLMConfig) error {
	var errs []error
	for _, rule := range ConfigRules {
		if err := rule.Check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// FieldState is the validation status of a single form input.
type FieldState struct {
	Field   string `json:"field"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// FieldStates reports the status of every LLM form field, in form order.
func FieldStates(cfg domain.LLMConfig) []FieldState {
	states := make([]FieldState, 0, len(ConfigRules))
	for _, rule := range ConfigRules {
		st := FieldState{Field: rule.Field, Valid: true}
		if err := rule.Check(cfg); err != nil {
			st.Valid = false
			st.Message = err.Error()
			var ve *ValidationError
			if errors.As(err, &ve) {
				st.Message = ve.Reason
			}
		}
		states = append(states, st)
	}
	return states
}
