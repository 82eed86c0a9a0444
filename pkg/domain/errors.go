package domain

import "errors"

// ErrWorkspaceNotFound is returned when a workspace ID cannot be found in the store.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// ErrNodeNotFound is returned when an operation references a node that is not on the canvas.
var ErrNodeNotFound = errors.New("node not found")

// ErrEdgeNotFound is returned when an edge ID is not part of the workspace.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrUnknownKind is returned when a node of an unsupported kind is dropped.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrUnknownField is returned when a config update names a field the LLM form does not have.
var ErrUnknownField = errors.New("unknown config field")

// ErrIllegalEdge is returned when a proposed connection is not Input → LLM or LLM → Output.
var ErrIllegalEdge = errors.New("Invalid connection! You can only connect Input → LLM → Output.")

// ErrRunInFlight is returned when a run is requested while another one is still running.
var ErrRunInFlight = errors.New("a run is already in progress for this workspace")

// ErrorKind names the reason a run attempt stopped.
type ErrorKind string

const (
	KindMissingNode              ErrorKind = "MissingNode"
	KindIncompleteTopology       ErrorKind = "IncompleteTopology"
	KindMissingAPIKey            ErrorKind = "MissingApiKey"
	KindMissingInput             ErrorKind = "MissingInput"
	KindInvalidTemperature       ErrorKind = "InvalidTemperature"
	KindInvalidMaxTokens         ErrorKind = "InvalidMaxTokens"
	KindInvalidTopK              ErrorKind = "InvalidTopK"
	KindInvalidRepetitionPenalty ErrorKind = "InvalidRepetitionPenalty"
	KindModelNotSelected         ErrorKind = "ModelNotSelected"
	KindRelayFailure             ErrorKind = "RelayFailure"
)

// RunError is a terminal failure of a single run attempt.
// Two RunErrors match under errors.Is when their kinds are equal.
type RunError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so callers can compare against the exported sentinels.
func (e *RunError) Is(target error) bool {
	t, ok := target.(*RunError)
	return ok && t.Kind == e.Kind
}

// Sentinels for every run failure. Messages are shown to the user as-is.
var (
	ErrMissingNode              = &RunError{Kind: KindMissingNode, Message: "Please connect Input → LLM → Output."}
	ErrIncompleteTopology       = &RunError{Kind: KindIncompleteTopology, Message: "Please ensure connections are Input → LLM → Output."}
	ErrMissingAPIKey            = &RunError{Kind: KindMissingAPIKey, Message: "API Key is required."}
	ErrMissingInput             = &RunError{Kind: KindMissingInput, Message: "Input Text is required."}
	ErrInvalidTemperature       = &RunError{Kind: KindInvalidTemperature, Message: "Temperature must be between 0 and 1."}
	ErrInvalidMaxTokens         = &RunError{Kind: KindInvalidMaxTokens, Message: "Max Tokens must be greater than 0."}
	ErrInvalidTopK              = &RunError{Kind: KindInvalidTopK, Message: "Top K must be at least 1."}
	ErrInvalidRepetitionPenalty = &RunError{Kind: KindInvalidRepetitionPenalty, Message: "Repetition Penalty must be a non-negative number."}
	ErrModelNotSelected         = &RunError{Kind: KindModelNotSelected, Message: "Please select a valid model."}
	ErrRelayFailure             = &RunError{Kind: KindRelayFailure, Message: "Failed to fetch response from the LLM relay."}
)

// RelayFailure wraps a relay error into a RunError of kind RelayFailure.
func RelayFailure(cause error) *RunError {
	return &RunError{Kind: KindRelayFailure, Message: ErrRelayFailure.Message, Err: cause}
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a RunError.
func KindOf(err error) ErrorKind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsValidationKind reports whether the kind is raised before the relay is called.
func IsValidationKind(k ErrorKind) bool {
	return k != "" && k != KindRelayFailure
}
