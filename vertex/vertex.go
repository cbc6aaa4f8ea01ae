// Package vertex implements the §4.4 Vertex AI Gemini adapter: the
// grounding-capability model allowlist, the tools/schema mutual-exclusion
// rule, ALS concatenation into a single contents string, tolerant
// grounding-metadata extraction across camelCase/snake_case field
// spellings, and JSON-Schema-to-Vertex-Schema translation. Its HTTP call
// shape is carried over from the SDK's google/google.go adapter,
// retargeted at Vertex's publishers/google/models/{model}:generateContent
// endpoint and ADC bearer-token auth instead of Google AI Studio's
// x-goog-api-key header.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	llmcore "github.com/contestra/llm-core"
	"github.com/contestra/llm-core/internal/httpx"
	"github.com/contestra/llm-core/vertex/vertexapi"
)

const defaultBaseURL = "https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s"

// groundingCapableModels is the allowlist original_source's
// _assert_grounding_capable enforces: only these short model names are
// configured for GoogleSearch grounding.
var groundingCapableModels = map[string]bool{
	"gemini-2.5-pro":   true,
	"gemini-2.5-flash": true,
	"gemini-2.0-flash": true,
}

var codeFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Adapter fulfils RunRequests against Vertex AI's Gemini models.
type Adapter struct {
	Project    string
	Location   string
	HTTPClient *http.Client
	Registry   *llmcore.Registry

	// BaseURLOverride, when set, replaces the computed
	// *-aiplatform.googleapis.com URL (tests point this at an httptest
	// server instead of a real Vertex endpoint).
	BaseURLOverride string

	// TokenFunc resolves the bearer token for each call; defaults to ADC
	// resolution via bearerToken. Tests override this to avoid needing
	// real Google credentials.
	TokenFunc func(ctx context.Context) (string, error)
}

// NewAdapter builds an Adapter from loaded configuration.
func NewAdapter(cfg llmcore.Config, registry *llmcore.Registry) *Adapter {
	if registry == nil {
		registry = llmcore.DefaultRegistry
	}
	return &Adapter{
		Project:    cfg.VertexProject,
		Location:   cfg.VertexLocation,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Registry:   registry,
		TokenFunc:  bearerToken,
	}
}

func (a *Adapter) registry() *llmcore.Registry {
	if a.Registry != nil {
		return a.Registry
	}
	return llmcore.DefaultRegistry
}

func shortModelName(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

func groundingCapable(model string) bool {
	return groundingCapableModels[shortModelName(model)]
}

// Run implements llmcore.Provider.
func (a *Adapter) Run(ctx context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	return llmcore.TraceRun(ctx, req, func(ctx context.Context) (*llmcore.RunResult, error) {
		return a.run(ctx, req)
	})
}

func (a *Adapter) run(ctx context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	start := time.Now()
	needsGrounding := req.GroundingMode == llmcore.GroundingRequired || req.GroundingMode == llmcore.GroundingPreferred

	if needsGrounding && !groundingCapable(req.ModelName) {
		return nil, llmcore.NewRunError(llmcore.KindModelNotGroundingCapable, req,
			fmt.Sprintf("model %q is not configured for GoogleSearch grounding", req.ModelName))
	}

	capability := a.registry().Get(req.ModelName)
	schemaApplied := req.Schema != nil && !needsGrounding

	config := &vertexapi.GenerateContentConfig{
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Seed:        req.Seed,
	}

	var tools []vertexapi.Tool
	switch {
	case needsGrounding:
		// Vertex's contract is mutually exclusive: grounding mode forces
		// plain text and drops any schema, per original_source's comment
		// "CRITICAL FIX ... Separate grounding and schema modes completely".
		tools = []vertexapi.Tool{{GoogleSearch: &vertexapi.GoogleSearch{}}}
		config.ResponseMimeType = "text/plain"
	case schemaApplied:
		config.ResponseMimeType = "application/json"
		schema := translateSchema(req.Schema.Schema)
		config.ResponseSchema = &schema
	}

	contents := buildContents(req, needsGrounding)

	params := vertexapi.GenerateContentParameters{
		Contents:         []vertexapi.Content{{Role: "user", Parts: []vertexapi.Part{{Text: contents}}}},
		Tools:            tools,
		GenerationConfig: config,
	}

	resp, rerr := a.call(ctx, req, req.ModelName, params)
	if rerr != nil {
		return nil, rerr
	}

	text := extractText(resp)
	if text == "" {
		return nil, llmcore.NewRunError(llmcore.KindNoMessageOutput, req, "no text in Vertex response")
	}

	cleaned := stripCodeFence(text)
	var parsed map[string]any
	jsonValid := json.Unmarshal([]byte(cleaned), &parsed) == nil

	var jsonObj map[string]any
	switch {
	case jsonValid:
		jsonObj, text = parsed, cleaned
	case needsGrounding:
		// Best-effort parse failed; fall back to the wrapper rather than
		// raising, per spec §4.4's "json_valid is false if it doesn't parse".
		jsonObj = map[string]any{"response": text}
	}

	signals, rerr := extractGroundingSignals(resp, req)
	if rerr != nil {
		return nil, rerr
	}

	if req.GroundingMode == llmcore.GroundingRequired && !signals.Grounded {
		return nil, llmcore.NewRunError(llmcore.KindNoGroundingMetadata, req,
			"required grounding produced no grounding metadata")
	}

	usage := map[string]int{}
	if resp.UsageMetadata != nil {
		usage["usage_input_tokens"] = resp.UsageMetadata.PromptTokenCount
		usage["usage_output_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		usage["usage_total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}

	meta := map[string]any{
		"api":             "vertex",
		"schema_applied":  schemaApplied,
		"tools_enabled":   needsGrounding,
		"queries_count":   len(signals.Queries),
		"citations_count": len(signals.Citations),
		"temperature_locked": capability.TemperatureLockedTo != nil,
	}

	return &llmcore.RunResult{
		RunID:             req.RunID,
		Provider:          "vertex",
		ModelName:         req.ModelName,
		Region:            a.Location,
		GroundedEffective: signals.Grounded,
		ToolCallCount:     signals.ToolCalls,
		Citations:         signals.Citations,
		JSONText:          text,
		JSONObj:           jsonObj,
		JSONValid:         jsonValid,
		LatencyMS:         time.Since(start).Milliseconds(),
		SystemFingerprint: resp.ModelVersion,
		Usage:             usage,
		Meta:              meta,
	}, nil
}

// buildContents concatenates the system text (or the locale directive from
// llmcore.EffectiveSystemText), the ALS block, and the user prompt, in that
// order, into the single contents string Vertex expects (spec §4.4: unlike
// OpenAI there is no separate system turn for this adapter).
func buildContents(req *llmcore.RunRequest, needsGrounding bool) string {
	var b strings.Builder
	if systemText := llmcore.EffectiveSystemText(req); systemText != "" {
		b.WriteString(systemText)
		b.WriteString("\n\n")
	}
	if req.ALSBlock != "" {
		b.WriteString(req.ALSBlock)
		b.WriteString("\n")
	}
	b.WriteString(req.UserPrompt)

	if needsGrounding && req.Schema != nil {
		b.WriteString("\n\nReturn your response as valid JSON matching the requested format.")
	}
	return strings.TrimSpace(b.String())
}

// stripCodeFence removes a markdown ```json ... ``` fence if present,
// supplementing the spec's JSON parsing step with original_source's
// _strip_code_fences behavior (Gemini frequently wraps JSON output in a
// fence even when response_mime_type=application/json is set).
func stripCodeFence(s string) string {
	if s == "" || !strings.Contains(s, "```") {
		return strings.TrimSpace(s)
	}
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func extractText(resp *vertexapi.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// groundingSignals is an alias of llmcore.GroundingSignals. Vertex's
// candidate-level groundingChunks/webSearchQueries pair is translated into
// the shared extractor's chunk/query inputs and passed through
// llmcore.ExtractGroundingSignals.
type groundingSignals = llmcore.GroundingSignals

// extractGroundingSignals pulls grounding evidence from the first
// candidate, building citations exclusively from groundingChunks (never
// from any separate citations field), per original_source's
// _vertex_grounding_signals / _citations_from_chunks.
func extractGroundingSignals(resp *vertexapi.GenerateContentResponse, req *llmcore.RunRequest) (groundingSignals, *llmcore.RunError) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return groundingSignals{}, nil
	}

	gm := resp.Candidates[0].GroundingMetadata
	queries := gm.WebSearchQueries

	var chunks []any
	for _, c := range gm.GroundingChunks {
		if c.Web == nil || c.Web.URI == "" {
			continue
		}
		chunks = append(chunks, map[string]any{"uri": c.Web.URI, "title": c.Web.Title})
	}

	return llmcore.ExtractGroundingSignals(chunks, queries)
}

// translateSchema converts the caller's JSON Schema into Vertex's
// constrained-decoding Schema, following original_source's _to_schema:
// only string/number/boolean/array-of-string/object are handled, with
// unknown types defaulting to string.
func translateSchema(schema map[string]any) vertexapi.Schema {
	properties, _ := schema["properties"].(map[string]any)
	required := toStringSlice(schema["required"])

	props := make(map[string]vertexapi.Schema, len(properties))
	for name, raw := range properties {
		propDef, _ := raw.(map[string]any)
		props[name] = translateProperty(propDef)
	}

	return vertexapi.Schema{
		Type:       vertexapi.TypeObject,
		Properties: props,
		Required:   required,
	}
}

func translateProperty(propDef map[string]any) vertexapi.Schema {
	propType, _ := propDef["type"].(string)
	switch propType {
	case "array":
		items, _ := propDef["items"].(map[string]any)
		itemType, _ := items["type"].(string)
		if itemType == "string" {
			return vertexapi.Schema{Type: vertexapi.TypeArray, Items: &vertexapi.Schema{Type: vertexapi.TypeString}}
		}
		return vertexapi.Schema{Type: vertexapi.TypeArray, Items: &vertexapi.Schema{Type: vertexapi.TypeString}}
	case "number":
		return vertexapi.Schema{Type: vertexapi.TypeNumber}
	case "boolean":
		return vertexapi.Schema{Type: vertexapi.TypeBoolean}
	case "string", "":
		return vertexapi.Schema{Type: vertexapi.TypeString}
	default:
		return vertexapi.Schema{Type: vertexapi.TypeString}
	}
}

func toStringSlice(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// call issues one POST .../generateContent request, authenticating with
// an ADC bearer token and classifying auth/rate-limit/transport failures
// into RunErrors the same way the OpenAI adapter does.
func (a *Adapter) call(ctx context.Context, req *llmcore.RunRequest, model string, params vertexapi.GenerateContentParameters) (*vertexapi.GenerateContentResponse, *llmcore.RunError) {
	tokenFunc := a.TokenFunc
	if tokenFunc == nil {
		tokenFunc = bearerToken
	}
	token, err := tokenFunc(ctx)
	if err != nil {
		return nil, llmcore.NewRunError(llmcore.KindAuthRequired, req, err.Error()).WithErr(err)
	}

	base := a.BaseURLOverride
	if base == "" {
		base = fmt.Sprintf(defaultBaseURL, a.Location, a.Project, a.Location)
	}
	url := fmt.Sprintf("%s/publishers/google/models/%s:generateContent", base, shortModelName(model))

	result, err := httpx.DoJSON[vertexapi.GenerateContentResponse](ctx, a.HTTPClient, httpx.JSONRequestConfig{
		URL:     url,
		Headers: map[string]string{"Authorization": "Bearer " + token},
		Body:    params,
	})
	if err != nil {
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, err.Error()).WithErr(err)
	}

	switch {
	case result.StatusCode == http.StatusUnauthorized || result.StatusCode == http.StatusForbidden:
		return nil, llmcore.NewRunError(llmcore.KindAuthRequired, req, string(result.Body)).WithStatus(result.StatusCode)
	case result.StatusCode == http.StatusTooManyRequests:
		return nil, llmcore.NewRunError(llmcore.KindProviderRateLimited, req, string(result.Body)).WithStatus(result.StatusCode)
	case result.StatusCode >= 400:
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, string(result.Body)).WithStatus(result.StatusCode)
	}

	return result.Value, nil
}
