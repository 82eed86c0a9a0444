/*
Package openagi is the backend of a visual LLM workflow builder.

A workspace holds a canvas of three node kinds (Input, LLM Engine, Output), the connections
between them, the prompt typed into the Input node and the parameters of the LLM Engine node.
Only the chain Input → LLM → Output is a legal topology. Running a workspace validates the chain
and the parameters in a fixed order and, when everything passes, sends the prompt through a relay
to a hosted chat-completion API and writes the reply into the Output node.

# Usage

The Workbench is the entry point. It owns the workspaces, serializes edits to each one and
guarantees at most one run in flight per workspace.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/openagi"
		"github.com/aretw0/openagi/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		wb := openagi.New() // in-memory store, relay straight to the hosted API

		ws, _ := wb.Create(ctx)
		in, _ := wb.DropNode(ctx, ws.ID, domain.KindInput, domain.Position{X: 0, Y: 100})
		llm, _ := wb.DropNode(ctx, ws.ID, domain.KindLLM, domain.Position{X: 250, Y: 100})
		out, _ := wb.DropNode(ctx, ws.ID, domain.KindOutput, domain.Position{X: 500, Y: 100})
		_, _ = wb.Connect(ctx, ws.ID, in.ID, llm.ID)
		_, _ = wb.Connect(ctx, ws.ID, llm.ID, out.ID)

		_ = wb.SetInputText(ctx, ws.ID, "Write a haiku about Go")
		_, _ = wb.UpdateLLMConfig(ctx, ws.ID, domain.LLMConfig{
			APIKey:            "sk-...",
			Model:             "meta-llama/Llama-3.3-70B-Instruct-Turbo",
			MaxTokens:         "256",
			Temperature:       "0.7",
			TopK:              "50",
			RepetitionPenalty: "1",
		})

		reply, err := wb.Run(ctx, ws.ID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply)
	}

# Architecture

  - pkg/domain: workspaces, nodes, edges, the LLM config and the run error kinds.
  - pkg/topology: the edge legality rule and chain resolution.
  - pkg/schema: field-level validation of the LLM config.
  - internal/runtime: the run orchestrator.
  - pkg/relay: the relay endpoint and its client.
  - pkg/session: per-workspace locking, optionally distributed through Redis.
  - pkg/adapters: memory and Redis stores, the HTTP API and the MCP server.
*/
package openagi
