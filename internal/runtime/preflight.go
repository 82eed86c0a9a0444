package runtime

import (
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/schema"
	"github.com/aretw0/openagi/pkg/topology"
)

// check is one preflight step. Steps run in order and the first failure wins.
type check struct {
	fail *domain.RunError
	ok   func(wf *domain.Workflow) bool
}

var configChecks = []check{
	{domain.ErrMissingAPIKey, func(wf *domain.Workflow) bool {
		return schema.CheckAPIKey(wf.LLMConfig.APIKey) == nil
	}},
	{domain.ErrMissingInput, func(wf *domain.Workflow) bool {
		return wf.InputText != ""
	}},
	{domain.ErrInvalidTemperature, func(wf *domain.Workflow) bool {
		_, err := schema.ParseTemperature(wf.LLMConfig.Temperature.String())
		return err == nil
	}},
	{domain.ErrInvalidMaxTokens, func(wf *domain.Workflow) bool {
		_, err := schema.ParseMaxTokens(wf.LLMConfig.MaxTokens.String())
		return err == nil
	}},
	{domain.ErrInvalidTopK, func(wf *domain.Workflow) bool {
		_, err := schema.ParseTopK(wf.LLMConfig.TopK.String())
		return err == nil
	}},
	{domain.ErrInvalidRepetitionPenalty, func(wf *domain.Workflow) bool {
		_, err := schema.ParseRepetitionPenalty(wf.LLMConfig.RepetitionPenalty.String())
		return err == nil
	}},
	{domain.ErrModelNotSelected, func(wf *domain.Workflow) bool {
		return schema.CheckModel(wf.LLMConfig) == nil
	}},
}

// Preflight performs every check a run makes before calling the relay.
func (e *Engine) Preflight(wf *domain.Workflow) (topology.Chain, error) {
	chain, err := topology.Resolve(wf)
	if err != nil {
		return topology.Chain{}, err
	}
	for _, c := range configChecks {
		if !c.ok(wf) {
			return topology.Chain{}, c.fail
		}
	}
	return chain, nil
}
