// Package vertexapi models the subset of Vertex AI's Gemini
// generateContent wire format this adapter needs. It is a trim of the
// SDK's google/googleapi/genai.go: that file modeled the full
// google.genai.types surface (function calling, inline blob/file data,
// speech synthesis, thinking config) for a chat-completion style model
// with no grounding support. This spec needs none of the multimodal or
// function-calling surface, but needs two things genai.go never carried
// at all: the GoogleSearch tool variant and the GroundingMetadata family
// that comes back on a grounded candidate.
package vertexapi

import "encoding/json"

// GenerateContentParameters is the request body for
// publishers/google/models/{model}:generateContent.
type GenerateContentParameters struct {
	Model             string                 `json:"-"` // carried in the URL, not the body
	Contents          []Content              `json:"contents"`
	Tools             []Tool                 `json:"tools,omitempty"`
	SystemInstruction *Content               `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerateContentConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of the conversation; this adapter only ever sends
// a single user turn built from system text + ALS block + user prompt.
type Content struct {
	Parts []Part `json:"parts,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Part is a single content part. Only Text is ever populated; the
// image/audio/file/function-call variants genai.go modeled have no
// caller in this spec.
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerateContentConfig is the request's generationConfig block.
type GenerateContentConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
}

// Tool is one entry in the request's tools array. This adapter only
// ever sends the hosted GoogleSearch tool (spec §4.4); the
// FunctionDeclarations variant genai.go modeled has no caller here.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

// GoogleSearch is the empty-bodied hosted search tool marker.
type GoogleSearch struct{}

// Type is the Vertex Schema's type discriminator.
type Type string

const (
	TypeString  Type = "STRING"
	TypeNumber  Type = "NUMBER"
	TypeBoolean Type = "BOOLEAN"
	TypeObject  Type = "OBJECT"
	TypeArray   Type = "ARRAY"
)

// Schema is Vertex's constrained-decoding schema representation, a
// restricted subset of JSON Schema. Built by translateSchema from the
// caller's SchemaDescriptor.
type Schema struct {
	Type       Type              `json:"type"`
	Properties map[string]Schema `json:"properties,omitempty"`
	Items      *Schema           `json:"items,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

// GenerateContentResponse is the decoded response body.
type GenerateContentResponse struct {
	Candidates    []Candidate                          `json:"candidates,omitempty"`
	ModelVersion  string                                `json:"modelVersion,omitempty"`
	ResponseID    string                                `json:"responseId,omitempty"`
	UsageMetadata *GenerateContentResponseUsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one response variation.
type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
}

// UnmarshalJSON also accepts the snake_case grounding_metadata spelling
// some SDK/API versions emit, per original_source's
// _gget(candidate, ["grounding_metadata", "groundingMetadata"]). Go's
// encoding/json matches keys case-insensitively but not across the
// underscore boundary, so the snake_case form needs an explicit second
// field to land in.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type alias Candidate
	aux := &struct {
		GroundingMetadataSnake *GroundingMetadata `json:"grounding_metadata,omitempty"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if c.GroundingMetadata == nil {
		c.GroundingMetadata = aux.GroundingMetadataSnake
	}
	return nil
}

// GroundingMetadata is the candidate-level grounding evidence block that
// has no equivalent anywhere in the teacher's genai.go (the teacher
// never modeled grounding at all).
type GroundingMetadata struct {
	WebSearchQueries []string         `json:"webSearchQueries,omitempty"`
	GroundingChunks  []GroundingChunk `json:"groundingChunks,omitempty"`
}

// UnmarshalJSON also accepts web_search_queries/grounding_chunks, per
// original_source's _gget(gm, ["web_search_queries", "webSearchQueries"])
// and _gget(gm, ["grounding_chunks", "groundingChunks"]).
func (g *GroundingMetadata) UnmarshalJSON(data []byte) error {
	type alias GroundingMetadata
	aux := &struct {
		WebSearchQueriesSnake []string         `json:"web_search_queries,omitempty"`
		GroundingChunksSnake  []GroundingChunk `json:"grounding_chunks,omitempty"`
		*alias
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(g.WebSearchQueries) == 0 {
		g.WebSearchQueries = aux.WebSearchQueriesSnake
	}
	if len(g.GroundingChunks) == 0 {
		g.GroundingChunks = aux.GroundingChunksSnake
	}
	return nil
}

// GroundingChunk is one piece of retrieval evidence.
type GroundingChunk struct {
	Web *GroundingChunkWeb `json:"web,omitempty"`
}

// GroundingChunkWeb is the web-source half of a GroundingChunk.
type GroundingChunkWeb struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// GenerateContentResponseUsageMetadata is the response's usage block.
// Vertex's Gemini API exposes this much less reliably than OpenAI's
// Responses API (original_source's adapter ships an empty usage map
// unconditionally); this adapter reads what's present and leaves the
// rest zero.
type GenerateContentResponseUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}
