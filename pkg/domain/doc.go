/*
Package domain contains the core domain models of the openagi workflow builder.

It defines the entities a canvas is made of (Nodes, Edges), the LLM configuration held
by the form fields, and the Workflow that ties them together. This package is kept free of
I/O and persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: A placed unit of one fixed kind (input, llm, output).
  - Edge: A directed connection between two nodes.
  - LLMConfig: The string-backed parameters of the LLM Engine node.
  - Workflow: A workspace snapshot (nodes, edges, input text, config).
  - RunError: A named, terminal failure of a run attempt.
*/
package domain
