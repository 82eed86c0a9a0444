package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_UnmarshalJSON(t *testing.T) {
	var cfg LLMConfig
	body := `{"apiKey":"k","model":"m","maxTokens":256,"temperature":"0.7","topK":null,"repetitionPenalty":1.1}`
	require.NoError(t, json.Unmarshal([]byte(body), &cfg))

	assert.Equal(t, Field("256"), cfg.MaxTokens)
	assert.Equal(t, Field("0.7"), cfg.Temperature)
	assert.Equal(t, Field(""), cfg.TopK)
	assert.Equal(t, Field("1.1"), cfg.RepetitionPenalty)
}

func TestField_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var cfg LLMConfig
	err := json.Unmarshal([]byte(`{"maxTokens":{"n":1}}`), &cfg)
	assert.Error(t, err)
}

func TestLLMConfig_SetAndGet(t *testing.T) {
	cfg := DefaultLLMConfig()
	assert.False(t, cfg.ModelSelected())

	require.NoError(t, cfg.Set(FieldModel, KnownModels[0]))
	require.NoError(t, cfg.Set(FieldTemperature, "0.5"))
	require.NoError(t, cfg.Set("repetition_penalty", "1"))
	assert.True(t, cfg.ModelSelected())

	v, err := cfg.Get(FieldRepetitionPenalty)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	err = cfg.Set("seed", "42")
	assert.True(t, errors.Is(err, ErrUnknownField))
	_, err = cfg.Get("seed")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestLLMConfig_Redacted(t *testing.T) {
	cfg := LLMConfig{APIKey: "secret", Model: "m"}
	assert.Equal(t, "****", cfg.Redacted().APIKey)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "", LLMConfig{}.Redacted().APIKey)
}

func TestRunError_Is(t *testing.T) {
	err := RelayFailure(errors.New("connection refused"))

	assert.ErrorIs(t, err, ErrRelayFailure)
	assert.NotErrorIs(t, err, ErrMissingNode)
	assert.Equal(t, KindRelayFailure, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.True(t, IsValidationKind(KindInvalidTopK))
	assert.False(t, IsValidationKind(KindRelayFailure))
}

func TestLLMConfig_Unmask(t *testing.T) {
	stored := LLMConfig{APIKey: "sk-live", Model: "m"}

	incoming := stored.Redacted()
	incoming.Model = "other"
	got := incoming.Unmask(stored)
	assert.Equal(t, "sk-live", got.APIKey)
	assert.Equal(t, "other", got.Model)

	assert.Equal(t, "sk-new", LLMConfig{APIKey: "sk-new"}.Unmask(stored).APIKey)
	assert.Equal(t, "", LLMConfig{}.Unmask(stored).APIKey, "clearing the key is allowed")
}
