// Package llmcore is a provider-agnostic runtime for issuing LLM requests
// with strict invariants around web-grounding, locale ambient context,
// structured output, and repeatability. It normalizes OpenAI's Responses
// API and Google Vertex's Gemini API behind one RunRequest/RunResult
// contract.
package llmcore

// GroundingMode controls whether and how strictly a run must be backed by
// live web retrieval.
type GroundingMode string

const (
	// GroundingOff disallows any tool call; a tool call observed in the
	// response is a contract violation (tool_used_in_ungrounded).
	GroundingOff GroundingMode = "OFF"
	// GroundingPreferred requests grounding but accepts an ungrounded
	// result without raising.
	GroundingPreferred GroundingMode = "PREFERRED"
	// GroundingRequired fails closed: a run that cannot be evidenced as
	// grounded raises rather than returning an ungrounded RunResult.
	GroundingRequired GroundingMode = "REQUIRED"
)

// SchemaDescriptor describes a JSON Schema the caller wants the model's
// output validated (and, where the provider supports it, enforced)
// against.
type SchemaDescriptor struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// RunRequest is the immutable input to an adapter run. A RunRequest is
// consumed exactly once; the orchestrator may derive a shallow copy to
// apply capability-driven coercions, but it never mutates the original.
type RunRequest struct {
	RunID    string
	ClientID string

	// Provider is one of "openai" or "vertex"; "google" and "gemini"
	// resolve to "vertex" via ResolveProvider.
	Provider  string
	ModelName string
	Region    string

	GroundingMode GroundingMode

	SystemText string
	// ALSBlock is an opaque ambient-locale-signals string, capped at
	// ALSMaxLength characters.
	ALSBlock   string
	UserPrompt string

	Temperature *float64
	TopP        *float64
	Seed        *int64

	Schema *SchemaDescriptor

	// AllowEquivFallback is only consulted when GroundingMode is
	// GroundingPreferred.
	AllowEquivFallback bool

	TimeoutSeconds float64
}

// Clone returns a shallow copy of req, safe for the orchestrator/adapter to
// coerce (e.g. clamping Temperature to a model-locked value) without
// mutating the caller's original request.
func (req *RunRequest) Clone() *RunRequest {
	clone := *req
	return &clone
}

// Citation is a single piece of grounding evidence. Source is "web_search"
// for provider-evidenced retrieval; RunResult.Citations is always a list of
// Citation values, never free-form strings.
type Citation struct {
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// RunResult is the uniform output of an adapter run.
type RunResult struct {
	RunID     string
	Provider  string
	ModelName string
	Region    string

	GroundedEffective bool
	ToolCallCount     int
	Citations         []Citation

	JSONText  string
	JSONObj   map[string]any
	JSONValid bool

	LatencyMS         int64
	SystemFingerprint string
	// Usage is a flat integer map: usage_input_tokens, usage_output_tokens,
	// usage_total_tokens, and usage_reasoning_tokens when the provider
	// exposes reasoning-token accounting.
	Usage map[string]int

	Error *RunError

	// Meta carries adapter-specific diagnostics: tool-choice sent,
	// enforcement mode, reasoning effort, schema-applied flag, budget
	// used, retry counts, effective temperature, provoker hash.
	Meta map[string]any
}

// CapabilityRecord is the set of per-model quirks the capability registry
// tracks: what the model will accept, and what it requires.
type CapabilityRecord struct {
	SupportsRequiredToolChoice   bool
	SupportsGrounding            bool
	CanCombineSchemaAndGrounding bool
	// TemperatureLockedTo, when non-nil, is the only legal temperature for
	// this model; any caller-supplied value is coerced to it.
	TemperatureLockedTo     *float64
	ReasoningRequired       bool
	DefaultMaxOutputTokens  int
	GroundedMaxOutputTokens int
}
