package llmcore

import "fmt"

// Kind classifies a RunError. Most kinds are raised (returned as the error
// from Orchestrator.Run); a few are only ever embedded in RunResult.Error.
// See raisedKinds below for which kinds are raised.
type Kind string

const (
	KindInvalidRequest            Kind = "invalid_request"
	KindUnknownProvider           Kind = "unknown_provider"
	KindModelNotGroundingCapable  Kind = "model_not_grounding_capable"
	KindNoToolCallInRequired      Kind = "no_tool_call_in_required"
	KindNoToolCallInSoftRequired  Kind = "no_tool_call_in_soft_required"
	KindNoGroundingMetadata       Kind = "no_grounding_metadata"
	KindToolUsedInUngrounded      Kind = "tool_used_in_ungrounded"
	KindNoMessageOutput           Kind = "no_message_output"
	KindAuthRequired              Kind = "auth_required"
	KindProviderRateLimited       Kind = "provider_rate_limited"
	KindProviderTransportError    Kind = "provider_transport_error"
	KindExtractorShapeViolation   Kind = "extractor_shape_violation"
	KindJSONParseFailed           Kind = "json_parse_failed"
	KindCancelled                 Kind = "cancelled"
)

// raisedKinds are fail-closed: Orchestrator.Run and the adapters return
// them as errors rather than embedding them in RunResult.Error.
// KindJSONParseFailed and KindCancelled are deliberately absent: they are
// always embedded, never raised.
var raisedKinds = map[Kind]bool{
	KindInvalidRequest:           true,
	KindUnknownProvider:          true,
	KindModelNotGroundingCapable: true,
	KindNoToolCallInRequired:     true,
	KindNoToolCallInSoftRequired: true,
	KindNoGroundingMetadata:      true,
	KindToolUsedInUngrounded:     true,
	KindNoMessageOutput:          true,
	KindAuthRequired:             true,
	KindProviderRateLimited:      true,
	KindProviderTransportError:   true,
	KindExtractorShapeViolation:  true,
}

// IsRaised reports whether a RunError of this kind is meant to be raised
// (returned as an error) rather than embedded in a RunResult.
func (k Kind) IsRaised() bool {
	return raisedKinds[k]
}

// RunError carries the diagnostic payload spec §7 requires every raised
// error to carry: provider, model, mode, tool-choice sent, and enforcement
// mode, so a caller can log it verbatim.
type RunError struct {
	Kind    Kind
	Message string
	Err     error

	Provider        string
	ModelName       string
	GroundingMode   GroundingMode
	ToolChoiceSent  string
	EnforcementMode string

	// Status is set for KindProviderTransportError / KindAuthRequired /
	// KindProviderRateLimited when the failure came from an HTTP response.
	Status int
}

func (e *RunError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s/%s mode=%s", e.Kind, e.Provider, e.ModelName, e.GroundingMode)
	}
	return fmt.Sprintf("%s: %s (%s/%s mode=%s)", e.Kind, e.Message, e.Provider, e.ModelName, e.GroundingMode)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewRunError builds a RunError, filling in the diagnostic payload from
// req. Adapters and the orchestrator should always go through this
// constructor so no raised error is ever missing its payload.
func NewRunError(kind Kind, req *RunRequest, message string) *RunError {
	e := &RunError{Kind: kind, Message: message}
	if req != nil {
		e.Provider = req.Provider
		e.ModelName = req.ModelName
		e.GroundingMode = req.GroundingMode
	}
	return e
}

// WithToolChoice records the tool_choice value sent to the provider.
func (e *RunError) WithToolChoice(toolChoice string) *RunError {
	e.ToolChoiceSent = toolChoice
	return e
}

// WithEnforcementMode records whether enforcement was "hard", "soft", or
// "none".
func (e *RunError) WithEnforcementMode(mode string) *RunError {
	e.EnforcementMode = mode
	return e
}

// WithErr attaches an underlying transport/parse error for errors.Unwrap.
func (e *RunError) WithErr(err error) *RunError {
	e.Err = err
	return e
}

// WithStatus records the HTTP status code that produced this error.
func (e *RunError) WithStatus(status int) *RunError {
	e.Status = status
	return e
}
