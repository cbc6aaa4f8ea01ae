package vertex

import (
	"context"
	"fmt"
	"net/http"
	"time"

	llmcore "github.com/contestra/llm-core"
	"github.com/contestra/llm-core/internal/httpx"
	"github.com/contestra/llm-core/vertex/vertexapi"
)

const directGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DirectFallback is the supplemented "direct Gemini" diagnostic path
// (SPEC_FULL.md supplemented feature 3): when Vertex ADC auth is
// unavailable, an operator can fall back to calling Google AI Studio's
// Gemini API directly with an API key, the way the teacher's
// google/google.go GoogleModel does (x-goog-api-key header against
// generativelanguage.googleapis.com rather than an ADC bearer token
// against *-aiplatform.googleapis.com). Only permitted when grounding is
// off: the direct API's grounding support and quota characteristics
// aren't validated against this spec's invariants, so this path exists
// for plain-text diagnostics only.
type DirectFallback struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewDirectFallback builds a DirectFallback adapter. Wiring it into an
// Orchestrator is the caller's choice — it is never selected
// automatically. Neither this package nor the Orchestrator reads
// Config.AllowGeminiDirect (ALLOW_GEMINI_DIRECT); nothing here checks that
// flag before the fallback is used.
func NewDirectFallback(apiKey string) *DirectFallback {
	return &DirectFallback{
		APIKey:     apiKey,
		BaseURL:    directGeminiBaseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Run implements llmcore.Provider. It refuses any grounded request: this
// path exists only for plain-text diagnostics when Vertex ADC is down.
func (f *DirectFallback) Run(ctx context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	if req.GroundingMode != llmcore.GroundingOff {
		return nil, llmcore.NewRunError(llmcore.KindModelNotGroundingCapable, req,
			"direct Gemini fallback only serves ungrounded requests")
	}

	start := time.Now()
	contents := buildContents(req, false)

	params := vertexapi.GenerateContentParameters{
		Contents: []vertexapi.Content{{Role: "user", Parts: []vertexapi.Part{{Text: contents}}}},
		GenerationConfig: &vertexapi.GenerateContentConfig{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			Seed:        req.Seed,
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", f.BaseURL, shortModelName(req.ModelName))
	result, err := httpx.DoJSON[vertexapi.GenerateContentResponse](ctx, f.HTTPClient, httpx.JSONRequestConfig{
		URL:     url,
		Headers: map[string]string{"x-goog-api-key": f.APIKey},
		Body:    params,
	})
	if err != nil {
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, err.Error()).WithErr(err)
	}
	switch {
	case result.StatusCode == http.StatusUnauthorized || result.StatusCode == http.StatusForbidden:
		return nil, llmcore.NewRunError(llmcore.KindAuthRequired, req, string(result.Body)).WithStatus(result.StatusCode)
	case result.StatusCode >= 400:
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, string(result.Body)).WithStatus(result.StatusCode)
	}

	text := extractText(result.Value)
	if text == "" {
		return nil, llmcore.NewRunError(llmcore.KindNoMessageOutput, req, "no text in direct Gemini response")
	}

	return &llmcore.RunResult{
		RunID:             req.RunID,
		Provider:          "vertex",
		ModelName:         req.ModelName,
		GroundedEffective: false,
		JSONText:          text,
		LatencyMS:         time.Since(start).Milliseconds(),
		SystemFingerprint: result.Value.ModelVersion,
		Meta:              map[string]any{"api": "vertex_direct_fallback"},
	}, nil
}
