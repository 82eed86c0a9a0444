// Package runtime runs the Input → LLM → Output chain of a workspace.
//
// A run checks the chain and the LLM config in a fixed order, stops at the first failure
// without contacting the relay, and otherwise performs exactly one relay call whose result
// replaces the output node's data.
package runtime
