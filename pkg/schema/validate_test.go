package schema

import (
	"testing"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() domain.LLMConfig {
	return domain.LLMConfig{
		APIKey:            "sk-test",
		Model:             domain.KnownModels[0],
		MaxTokens:         "256",
		Temperature:       "0.7",
		TopK:              "50",
		RepetitionPenalty: "1",
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateConfig(validConfig()))
}

func TestValidateConfig_CollectsEveryFailure(t *testing.T) {
	err := ValidateConfig(domain.DefaultLLMConfig())
	require.Error(t, err)

	errs := ValidationErrors(err)
	assert.Len(t, errs, len(domain.ConfigFields))
	assert.Contains(t, err.Error(), "6 validation errors")
}

func TestFieldStates(t *testing.T) {
	cfg := validConfig()
	cfg.Temperature = "1.5"
	cfg.Model = domain.ModelUnselected

	states := FieldStates(cfg)
	require.Len(t, states, len(domain.ConfigFields))

	byField := make(map[string]FieldState)
	for i, st := range states {
		assert.Equal(t, domain.ConfigFields[i], st.Field, "states must follow form order")
		byField[st.Field] = st
	}

	assert.False(t, byField[domain.FieldTemperature].Valid)
	assert.Equal(t, ReasonTemperature, byField[domain.FieldTemperature].Message)
	assert.False(t, byField[domain.FieldModel].Valid)
	assert.Equal(t, ReasonModelRequired, byField[domain.FieldModel].Message)
	assert.True(t, byField[domain.FieldAPIKey].Valid)
	assert.Empty(t, byField[domain.FieldAPIKey].Message)
}
