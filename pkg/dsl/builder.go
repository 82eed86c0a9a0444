package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/topology"
)

// Builder manages the workspace construction.
type Builder struct {
	nodes     []*NodeBuilder
	edges     [][2]*NodeBuilder
	inputText string
	config    domain.LLMConfig
	errs      []error
}

// New creates a new workspace builder with the default LLM config.
func New() *Builder {
	return &Builder{config: domain.DefaultLLMConfig()}
}

// Add creates a node of the given kind.
func (b *Builder) Add(kind domain.NodeKind) *NodeBuilder {
	if !kind.Valid() {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind))
	}
	nb := &NodeBuilder{
		node:    domain.NewNode(kind, domain.Position{}),
		builder: b,
	}
	b.nodes = append(b.nodes, nb)
	return nb
}

// Input adds an Input node.
func (b *Builder) Input() *NodeBuilder { return b.Add(domain.KindInput) }

// LLM adds an LLM Engine node.
func (b *Builder) LLM() *NodeBuilder { return b.Add(domain.KindLLM) }

// Output adds an Output node.
func (b *Builder) Output() *NodeBuilder { return b.Add(domain.KindOutput) }

// Prompt sets the input text.
func (b *Builder) Prompt(text string) *Builder {
	b.inputText = text
	return b
}

// Config replaces the whole LLM config.
func (b *Builder) Config(cfg domain.LLMConfig) *Builder {
	b.config = cfg
	return b
}

// Set assigns a single LLM config field by its form name.
func (b *Builder) Set(field, value string) *Builder {
	if err := b.config.Set(field, value); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Build assembles the workspace. It fails on unknown kinds, unknown config fields
// and connections the topology rules reject.
func (b *Builder) Build() (*domain.Workflow, error) {
	wf := domain.NewWorkflow()
	wf.InputText = b.inputText
	wf.LLMConfig = b.config

	for _, nb := range b.nodes {
		wf.Nodes = append(wf.Nodes, nb.node)
	}

	errs := append([]error(nil), b.errs...)
	for _, e := range b.edges {
		src, dst := e[0].node.ID, e[1].node.ID
		if err := topology.CheckConnection(wf, src, dst); err != nil {
			errs = append(errs, fmt.Errorf("%s → %s: %w", e[0].node.Kind, e[1].node.Kind, err))
			continue
		}
		wf.AddEdge(src, dst)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return wf, nil
}

// Chain builds the canonical Input → LLM → Output workspace laid out left to right.
func Chain(inputText string, cfg domain.LLMConfig) (*domain.Workflow, error) {
	b := New().Prompt(inputText).Config(cfg)
	in := b.Input().At(0, 100)
	llm := b.LLM().At(250, 100)
	out := b.Output().At(500, 100)
	in.To(llm)
	llm.To(out)
	return b.Build()
}
