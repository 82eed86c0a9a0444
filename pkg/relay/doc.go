// Package relay forwards chat prompts to the hosted model API on behalf of a caller.
//
// The Handler is the server side of the relay: it turns {inputText, llmConfig} into a
// chat-completion request, attaches the caller's key as a bearer token and hands the
// upstream status and body back unchanged. The Client is the caller side and satisfies
// ports.Relay, so the run orchestrator can reach any relay by URL.
package relay
