// Package openai implements the §4.3 OpenAI Responses API adapter: the
// REQUIRED-on-GPT-5 soft fallback state machine, provoker retries,
// token-starvation retries, capability probing, and usage flattening.
// Its http.Client construction and status-check style are carried over
// from the SDK's openai/openai.go Chat Completions adapter, retargeted at
// the Responses API endpoint and request/response shapes instead.
package openai

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	llmcore "github.com/contestra/llm-core"
	"github.com/contestra/llm-core/internal/httpx"
	"github.com/contestra/llm-core/internal/ptr"
	"github.com/contestra/llm-core/openai/openaiapi"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/responses"

	// defaultMaxOutputTokens / defaultGroundedMaxOutputTokensGPT5 seed a
	// budget when the model's capability record carries a zero
	// DefaultMaxOutputTokens/GroundedMaxOutputTokens (e.g. a YAML entry that
	// omits them). A model the registry has never seen gets the registry's
	// fallback record, whose non-zero budgets are used instead.
	defaultMaxOutputTokens             = 512
	defaultGroundedMaxOutputTokensGPT5 = 1536
	minMaxOutputTokens                 = 16
)

var searchFirstDirective = "Policy for stable facts: when a hosted web_search tool is available, call web_search before answering. Keep internal deliberation minimal. After the tool call, answer concisely and include one official citation."

// Adapter fulfils RunRequests against OpenAI's Responses API.
type Adapter struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Registry   *llmcore.Registry

	// GPT5ToolsMaxOutputTokens overrides the grounded-mode token ceiling
	// for GPT-5-family models (env GPT5_TOOLS_MAX_OUTPUT_TOKENS, spec §6).
	// Zero means "use the registry's GroundedMaxOutputTokens, or
	// defaultGroundedMaxOutputTokensGPT5 when that is zero".
	GPT5ToolsMaxOutputTokens int

	// now is overridable in tests so the provoker's literal date is
	// deterministic.
	now func() time.Time
}

// NewAdapter builds an Adapter from loaded configuration.
func NewAdapter(cfg llmcore.Config, registry *llmcore.Registry) *Adapter {
	if registry == nil {
		registry = llmcore.DefaultRegistry
	}
	return &Adapter{
		APIKey:                   cfg.OpenAIAPIKey,
		BaseURL:                  defaultBaseURL,
		HTTPClient:               &http.Client{Timeout: 60 * time.Second},
		Registry:                 registry,
		GPT5ToolsMaxOutputTokens: cfg.GPT5ToolsMaxOutputTokens,
		now:                      time.Now,
	}
}

func (a *Adapter) registry() *llmcore.Registry {
	if a.Registry != nil {
		return a.Registry
	}
	return llmcore.DefaultRegistry
}

func (a *Adapter) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gpt-5")
}

// Run implements llmcore.Provider.
func (a *Adapter) Run(ctx context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	return llmcore.TraceRun(ctx, req, func(ctx context.Context) (*llmcore.RunResult, error) {
		return a.run(ctx, req)
	})
}

func (a *Adapter) run(ctx context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	start := time.Now()
	model := req.ModelName
	gpt5 := isGPT5(model)
	capability := a.registry().Get(model)

	wantsTools := req.GroundingMode != llmcore.GroundingOff

	var toolChoice, enforcementMode string
	softRequired := false

	switch req.GroundingMode {
	case llmcore.GroundingOff:
		enforcementMode = "none"
	case llmcore.GroundingPreferred:
		toolChoice, enforcementMode = "auto", "none"
	case llmcore.GroundingRequired:
		supportsRequired := a.registry().EnsureProbed(model, "openai", func() bool {
			return a.probeRequiredToolChoice(ctx, model)
		})
		if supportsRequired {
			toolChoice, enforcementMode = "required", "hard"
		} else {
			toolChoice, enforcementMode, softRequired = "auto", "soft", true
		}
	}

	effectiveTemperature := req.Temperature
	if capability.TemperatureLockedTo != nil {
		effectiveTemperature = capability.TemperatureLockedTo
	}

	budget := capability.DefaultMaxOutputTokens
	if budget == 0 {
		budget = defaultMaxOutputTokens
	}
	if wantsTools && gpt5 {
		groundedBudget := capability.GroundedMaxOutputTokens
		if a.GPT5ToolsMaxOutputTokens > 0 {
			groundedBudget = a.GPT5ToolsMaxOutputTokens
		}
		if groundedBudget == 0 {
			groundedBudget = defaultGroundedMaxOutputTokensGPT5
		}
		budget = groundedBudget
	}
	if budget < minMaxOutputTokens {
		budget = minMaxOutputTokens
	}

	systemText := effectiveSystemTextForOpenAI(req, softRequired)

	var reasoning *openaiapi.Reasoning
	if gpt5 && wantsTools {
		reasoning = &openaiapi.Reasoning{Effort: openaiapi.ReasoningEffortLow}
	}

	schemaApplied := req.Schema != nil && (req.GroundingMode == llmcore.GroundingOff || capability.CanCombineSchemaAndGrounding)

	buildParams := func(userPrompt string, outputBudget int) openaiapi.ResponseCreateParams {
		params := openaiapi.ResponseCreateParams{
			Model:           model,
			Input:           buildInputItems(systemText, req.ALSBlock, userPrompt),
			Temperature:     effectiveTemperature,
			TopP:            req.TopP,
			MaxOutputTokens: ptr.To(outputBudget),
			Reasoning:       reasoning,
		}
		if wantsTools {
			params.Tools = []openaiapi.Tool{{Type: "web_search"}}
			params.ToolChoice = toolChoice
		}
		if schemaApplied {
			params.Text = &openaiapi.TextConfig{Format: &openaiapi.JSONSchemaFormat{
				Type:   "json_schema",
				Name:   req.Schema.Name,
				Schema: req.Schema.Schema,
				Strict: req.Schema.Strict,
			}}
		}
		return params
	}

	params := buildParams(req.UserPrompt, budget)
	resp, rerr := a.call(ctx, req, toolChoice, enforcementMode, params)
	if rerr != nil {
		return nil, rerr
	}

	text, toolItems, hasReasoning := parseOutput(resp)
	retryCount := 0

	if text == "" && hasReasoning && budget < defaultGroundedMaxOutputTokensGPT5*2 {
		retryParams := buildParams(req.UserPrompt, budget*2)
		retryResp, rerr := a.call(ctx, req, toolChoice, enforcementMode, retryParams)
		if rerr == nil {
			resp = retryResp
			text, toolItems, _ = parseOutput(resp)
			retryCount++
		}
	}

	chunks, queries := collectEvidence(toolItems)
	signals, rerr := llmcore.ExtractGroundingSignals(chunks, queries)
	if rerr != nil {
		return nil, rerr
	}

	provokerHash := ""
	if req.GroundingMode == llmcore.GroundingRequired && softRequired && signals.ToolCalls == 0 {
		provoker := a.defaultProvoker()
		provokedPrompt := strings.TrimRight(req.UserPrompt, " \t\n") + "\n\n" + provoker
		retryParams := buildParams(provokedPrompt, budget)
		retryResp, rerr := a.call(ctx, req, toolChoice, enforcementMode, retryParams)
		if rerr == nil {
			retryText, retryItems, _ := parseOutput(retryResp)
			retryChunks, retryQueries := collectEvidence(retryItems)
			retrySignals, rerr2 := llmcore.ExtractGroundingSignals(retryChunks, retryQueries)
			if rerr2 != nil {
				return nil, rerr2
			}
			if retrySignals.ToolCalls > 0 {
				resp, text, signals = retryResp, retryText, retrySignals
				provokerHash = hashText(provoker)
			}
		}
	}

	if text == "" {
		return nil, llmcore.NewRunError(llmcore.KindNoMessageOutput, req, "no message output after retries").
			WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode)
	}

	switch req.GroundingMode {
	case llmcore.GroundingOff:
		if signals.ToolCalls > 0 {
			return nil, llmcore.NewRunError(llmcore.KindToolUsedInUngrounded, req, "tool call observed in ungrounded run").
				WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode)
		}
	case llmcore.GroundingRequired:
		if signals.ToolCalls == 0 {
			kind := llmcore.KindNoToolCallInRequired
			if softRequired {
				kind = llmcore.KindNoToolCallInSoftRequired
			}
			return nil, llmcore.NewRunError(kind, req, "required grounding produced zero tool calls").
				WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode)
		}
	}

	var jsonObj map[string]any
	jsonValid := false
	if schemaApplied && text != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			jsonObj, jsonValid = parsed, true
		}
	}

	usage := flattenUsage(resp.Usage)

	meta := map[string]any{
		"tool_choice_sent":            toolChoice,
		"enforcement_mode":            enforcementMode,
		"schema_applied":              schemaApplied,
		"reasoning_effort":            string(nonNilEffort(reasoning)),
		"effective_max_output_tokens": budget,
		"retry_count":                 retryCount,
		"effective_temperature":       effectiveTemperature,
	}
	if provokerHash != "" {
		meta["provoker_hash"] = provokerHash
	}

	return &llmcore.RunResult{
		RunID:             req.RunID,
		Provider:          "openai",
		ModelName:         model,
		Region:            req.Region,
		GroundedEffective: signals.Grounded,
		ToolCallCount:     signals.ToolCalls,
		Citations:         signals.Citations,
		JSONText:          text,
		JSONObj:           jsonObj,
		JSONValid:         jsonValid,
		LatencyMS:         time.Since(start).Milliseconds(),
		SystemFingerprint: resp.SystemFingerprint,
		Usage:             usage,
		Meta:              meta,
	}, nil
}

func nonNilEffort(r *openaiapi.Reasoning) openaiapi.ReasoningEffort {
	if r == nil {
		return ""
	}
	return r.Effort
}

// effectiveSystemTextForOpenAI layers the soft-required search-first
// directive on top of the shared ALS locale directive (als.go), per spec
// §4.3's soft-required path step 1.
func effectiveSystemTextForOpenAI(req *llmcore.RunRequest, softRequired bool) string {
	base := llmcore.EffectiveSystemText(req)
	if !softRequired {
		return base
	}
	if base == "" {
		return searchFirstDirective
	}
	return searchFirstDirective + "\n\n" + base
}

func buildInputItems(systemText, alsBlock, userPrompt string) []openaiapi.InputItem {
	var items []openaiapi.InputItem
	if systemText != "" {
		items = append(items, openaiapi.InputItem{
			Role:    "system",
			Content: []openaiapi.InputContent{{Type: "input_text", Text: systemText}},
		})
	}
	if alsBlock != "" {
		items = append(items, openaiapi.InputItem{
			Role:    "user",
			Content: []openaiapi.InputContent{{Type: "input_text", Text: alsBlock}},
		})
	}
	items = append(items, openaiapi.InputItem{
		Role:    "user",
		Content: []openaiapi.InputContent{{Type: "input_text", Text: userPrompt}},
	})
	return items
}

func (a *Adapter) defaultProvoker() string {
	today := a.clock().Format("2006-01-02")
	return fmt.Sprintf("As of %s, include a citation to an official source (e.g. government or standards body) with a working link.", today)
}

func hashText(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// parseOutput extracts message text, the raw web_search_call output
// items, and whether a reasoning item was present.
func parseOutput(resp *openaiapi.Response) (text string, searchItems []openaiapi.OutputItem, hasReasoning bool) {
	if resp == nil {
		return "", nil, false
	}
	var texts []string
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					texts = append(texts, c.Text)
				}
			}
		case "web_search_call":
			switch item.Status {
			case "", "completed", "ok", "success", "succeeded":
				searchItems = append(searchItems, item)
			}
		case "reasoning":
			hasReasoning = true
		}
	}
	text = strings.Join(texts, "\n\n")
	if text == "" {
		text = resp.OutputText
	}
	return text, searchItems, hasReasoning
}

// collectEvidence flattens web_search_call items into the extractor's raw
// chunk/query inputs: one synthetic query entry per successful call
// (spec §4.2 step 2: "OpenAI-style counts web-search call records"), and
// one chunk per citation attached to any call.
func collectEvidence(items []openaiapi.OutputItem) (chunks []any, queries []string) {
	for i, item := range items {
		queries = append(queries, fmt.Sprintf("web_search_call_%d", i))
		for _, c := range item.Citations {
			chunks = append(chunks, map[string]any{"uri": c.URL, "title": c.Title})
		}
	}
	return chunks, queries
}

// flattenUsage mirrors original_source's _flatten_usage_openai: leave
// input/output tokens as-is, flatten the reasoning-token detail, and
// compute total_tokens if the provider didn't report one.
func flattenUsage(u *openaiapi.Usage) map[string]int {
	out := map[string]int{}
	if u == nil {
		return out
	}
	out["usage_input_tokens"] = u.InputTokens
	out["usage_output_tokens"] = u.OutputTokens
	if u.TotalTokens != 0 {
		out["usage_total_tokens"] = u.TotalTokens
	} else {
		out["usage_total_tokens"] = u.InputTokens + u.OutputTokens
	}
	if u.OutputTokensDetails != nil {
		out["usage_reasoning_tokens"] = u.OutputTokensDetails.ReasoningTokens
	}
	return out
}

// call issues one POST /v1/responses request and classifies transport,
// auth, and rate-limit failures into RunErrors. A successful (2xx)
// response is returned with a nil error; the caller interprets its
// content.
func (a *Adapter) call(ctx context.Context, req *llmcore.RunRequest, toolChoice, enforcementMode string, params openaiapi.ResponseCreateParams) (*openaiapi.Response, *llmcore.RunError) {
	result, err := httpx.DoJSON[openaiapi.Response](ctx, a.HTTPClient, httpx.JSONRequestConfig{
		URL: a.BaseURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + a.APIKey,
		},
		Body: params,
	})
	if err != nil {
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, err.Error()).
			WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode).WithErr(err)
	}

	switch {
	case result.StatusCode == http.StatusUnauthorized || result.StatusCode == http.StatusForbidden:
		return nil, llmcore.NewRunError(llmcore.KindAuthRequired, req, string(result.Body)).
			WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode).WithStatus(result.StatusCode)
	case result.StatusCode == http.StatusTooManyRequests:
		return nil, llmcore.NewRunError(llmcore.KindProviderRateLimited, req, string(result.Body)).
			WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode).WithStatus(result.StatusCode)
	case result.StatusCode >= 400:
		return nil, llmcore.NewRunError(llmcore.KindProviderTransportError, req, string(result.Body)).
			WithToolChoice(toolChoice).WithEnforcementMode(enforcementMode).WithStatus(result.StatusCode)
	}

	return result.Value, nil
}

// probeRequiredToolChoice issues the minimal synthetic REQUIRED-mode
// request spec §4.3 describes and classifies by status code: 200 or 429
// means the syntax was accepted (rate-limited doesn't mean rejected), 400
// means the model doesn't support tool_choice=required.
func (a *Adapter) probeRequiredToolChoice(ctx context.Context, model string) bool {
	params := openaiapi.ResponseCreateParams{
		Model: model,
		Input: []openaiapi.InputItem{{
			Role:    "user",
			Content: []openaiapi.InputContent{{Type: "input_text", Text: "What is today's date?"}},
		}},
		Tools:           []openaiapi.Tool{{Type: "web_search"}},
		ToolChoice:      "required",
		MaxOutputTokens: ptr.To(minMaxOutputTokens),
	}

	result, err := httpx.DoJSON[openaiapi.Response](ctx, a.HTTPClient, httpx.JSONRequestConfig{
		URL:     a.BaseURL,
		Headers: map[string]string{"Authorization": "Bearer " + a.APIKey},
		Body:    params,
	})
	if err != nil {
		return false
	}
	return result.StatusCode == http.StatusOK || result.StatusCode == http.StatusTooManyRequests
}
