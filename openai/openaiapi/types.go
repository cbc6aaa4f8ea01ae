// Package openaiapi models the subset of OpenAI's Responses API wire
// format this adapter needs. It began as a trim of the SDK's
// openai/openaiapi/response.go, which modeled the full Responses API
// (including ~20 SSE streaming event types and function/MCP/custom tool
// variants) but was never actually called from anywhere in that repo.
// This spec has no streaming and no function-calling surface, so only the
// message/web-search/reasoning/schema slice survives, rewritten around
// this spec's RunRequest/RunResult semantics instead of the teacher's
// LanguageModelInput/ModelResponse types.
package openaiapi

// ReasoningEffort is the effort level sent in Reasoning.Effort.
type ReasoningEffort string

const (
	ReasoningEffortMinimal ReasoningEffort = "minimal"
	ReasoningEffortLow     ReasoningEffort = "low"
	ReasoningEffortMedium  ReasoningEffort = "medium"
	ReasoningEffortHigh    ReasoningEffort = "high"
)

// Reasoning configures reasoning-model behavior.
type Reasoning struct {
	Effort ReasoningEffort `json:"effort,omitempty"`
}

// InputContent is a single typed content part of an input message. This
// adapter only ever sends input_text parts.
type InputContent struct {
	Type string `json:"type"` // "input_text"
	Text string `json:"text"`
}

// InputItem is one message in the `input` array.
type InputItem struct {
	Role    string         `json:"role"` // "system" | "user"
	Content []InputContent `json:"content"`
}

// WebSearchTool is the hosted web_search tool. Filters/SearchContextSize/
// UserLocation exist in the full Responses API surface but this spec
// never sets them, so they're omitted rather than carried as dead fields.
type WebSearchTool struct {
	Type string `json:"type"` // "web_search"
}

// Tool is the request's tools array entry. This adapter only ever sends
// WebSearchTool, so Tool is an alias of it; no other tool shape can be
// expressed.
type Tool = WebSearchTool

// JSONSchemaFormat is the `text.format` value for schema-constrained
// output, OpenAI's json_schema format variant. The plain-text and
// json_object variants exist in the full API but aren't used by this
// spec, so they're left out.
type JSONSchemaFormat struct {
	Type   string         `json:"type"` // "json_schema"
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// TextConfig is the request's `text` field, carrying the structured
// output format when a schema is applied.
type TextConfig struct {
	Format *JSONSchemaFormat `json:"format,omitempty"`
}

// ResponseCreateParams is the request body for POST /v1/responses.
type ResponseCreateParams struct {
	Model            string      `json:"model"`
	Input            []InputItem `json:"input"`
	Tools            []Tool      `json:"tools,omitempty"`
	ToolChoice       string      `json:"tool_choice,omitempty"` // "auto" | "required" | "none"
	Temperature      *float64    `json:"temperature,omitempty"`
	TopP             *float64    `json:"top_p,omitempty"`
	MaxOutputTokens  *int        `json:"max_output_tokens,omitempty"`
	Reasoning        *Reasoning  `json:"reasoning,omitempty"`
	Text             *TextConfig `json:"text,omitempty"`
}

// OutputContent is one content part of a message output item.
type OutputContent struct {
	Type string `json:"type"` // "output_text" | "refusal"
	Text string `json:"text,omitempty"`
}

// WebSearchCallStatus is the completion status of a web_search_call
// output item. Only "completed" (and its legacy spellings) count as
// evidence of a successful search; "failed"/"searching" do not.
type WebSearchCallStatus string

// Chunk is one piece of grounding evidence inside a web_search_call
// output item: the Responses API exposes this as a `citations` (or
// `sources`) array of {url,title} pairs attached to the call.
type Chunk struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// OutputItem is one entry in the response's `output` array. A single Go
// struct models all three item types this adapter cares about
// (message/web_search_call/reasoning); fields that don't apply to a given
// Type are simply left zero, matching how the raw JSON itself only
// populates the fields relevant to its "type" discriminator.
type OutputItem struct {
	Type string `json:"type"` // "message" | "web_search_call" | "reasoning"

	// message
	Content []OutputContent `json:"content,omitempty"`

	// web_search_call
	Status    string  `json:"status,omitempty"`
	Citations []Chunk `json:"citations,omitempty"`

	// reasoning has no fields this adapter reads beyond Type.
}

// OutputTokensDetails carries the nested output-token breakdown the usage
// flattener walks.
type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Usage is the response's usage block.
type Usage struct {
	InputTokens         int                  `json:"input_tokens"`
	OutputTokens        int                  `json:"output_tokens"`
	TotalTokens         int                  `json:"total_tokens"`
	OutputTokensDetails *OutputTokensDetails `json:"output_tokens_details,omitempty"`
}

// Response is the decoded POST /v1/responses response body.
type Response struct {
	Output            []OutputItem `json:"output"`
	OutputText        string       `json:"output_text,omitempty"`
	Usage             *Usage       `json:"usage,omitempty"`
	SystemFingerprint string       `json:"system_fingerprint,omitempty"`
}
