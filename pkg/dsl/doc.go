/*
Package dsl provides a fluent builder for constructing workspaces in Go code.

It is the programmatic counterpart of dragging nodes onto the canvas and drawing
connections: connections go through the same topology rules, so an illegal edge
fails Build just as it would be rejected in the UI.

Example usage:

	b := dsl.New()

	in := b.Input().At(0, 100)
	llm := b.LLM().At(250, 100)
	out := b.Output().At(500, 100)

	in.To(llm)
	llm.To(out)

	b.Prompt("Write a haiku about Go").
		Set("apiKey", os.Getenv("TOGETHER_API_KEY")).
		Set("model", "meta-llama/Llama-3.3-70B-Instruct-Turbo").
		Set("maxTokens", "256").
		Set("temperature", "0.7").
		Set("topK", "50").
		Set("repetitionPenalty", "1")

	wf, err := b.Build()
*/
package dsl
