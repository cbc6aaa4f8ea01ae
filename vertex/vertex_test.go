package vertex_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	llmcore "github.com/contestra/llm-core"
	"github.com/contestra/llm-core/vertex"
	"github.com/contestra/llm-core/vertex/vertexapi"
)

func newAdapter(t *testing.T, handler http.HandlerFunc) *vertex.Adapter {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &vertex.Adapter{
		Project:         "test-project",
		Location:        "europe-west4",
		HTTPClient:      server.Client(),
		Registry:        llmcore.NewRegistry(),
		BaseURLOverride: server.URL,
		TokenFunc:       func(context.Context) (string, error) { return "test-token", nil },
	}
}

func writeResponse(w http.ResponseWriter, resp vertexapi.GenerateContentResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestRun_UngroundedRequest_ParsesJSON(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "```json\n{\"answer\": 42}\n```"}}},
			}},
			ModelVersion: "gemini-2.5-pro-001",
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r1",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-pro",
		GroundingMode: llmcore.GroundingOff,
		UserPrompt:    "reply with json",
		Schema:        &llmcore.SchemaDescriptor{Name: "answer", Schema: map[string]any{"type": "object"}},
	}

	result, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, result.JSONValid)
	assert.Equal(t, float64(42), result.JSONObj["answer"])
	assert.Equal(t, "gemini-2.5-pro-001", result.SystemFingerprint)
}

func TestRun_RequiredGrounding_ModelNotCapable(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the network for an unsupported model")
	})

	req := &llmcore.RunRequest{
		RunID:         "r2",
		Provider:      "vertex",
		ModelName:     "gemini-1.5-flash",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "what's new today",
	}

	_, err := adapter.Run(context.Background(), req)
	rerr, ok := err.(*llmcore.RunError)
	assert.True(t, ok)
	assert.Equal(t, llmcore.KindModelNotGroundingCapable, rerr.Kind)
}

func TestRun_RequiredGrounding_NoMetadataFailsClosed(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "an answer with no grounding"}}},
			}},
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r3",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-flash",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "what's the latest policy",
	}

	_, err := adapter.Run(context.Background(), req)
	rerr, ok := err.(*llmcore.RunError)
	assert.True(t, ok)
	assert.Equal(t, llmcore.KindNoGroundingMetadata, rerr.Kind)
}

func TestRun_RequiredGrounding_MetadataPresent(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "grounded answer"}}},
				GroundingMetadata: &vertexapi.GroundingMetadata{
					WebSearchQueries: []string{"latest policy"},
					GroundingChunks: []vertexapi.GroundingChunk{
						{Web: &vertexapi.GroundingChunkWeb{URI: "https://gov.example", Title: "Gov"}},
					},
				},
			}},
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r4",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-flash",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "what's the latest policy",
	}

	result, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, result.GroundedEffective)
	assert.Equal(t, 1, result.ToolCallCount)
	assert.Len(t, result.Citations, 1)
	assert.Equal(t, "https://gov.example", result.Citations[0].URI)
}

func TestRun_GroundingAndSchemaAreMutuallyExclusive(t *testing.T) {
	var sawMimeType string
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var body vertexapi.GenerateContentParameters
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.GenerationConfig != nil {
			sawMimeType = body.GenerationConfig.ResponseMimeType
		}
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "ok"}}},
				GroundingMetadata: &vertexapi.GroundingMetadata{
					WebSearchQueries: []string{"q"},
				},
			}},
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r5",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-pro",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "ground this",
		Schema:        &llmcore.SchemaDescriptor{Name: "x", Schema: map[string]any{"type": "object"}},
	}

	_, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "text/plain", sawMimeType)
}

func TestRun_RequiredGrounding_SnakeCaseMetadataTolerated(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Raw snake_case payload: candidate.grounding_metadata, plus
		// web_search_queries/grounding_chunks inside it. The camelCase
		// struct tags alone would decode this to zero values.
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "grounded answer"}]},
				"grounding_metadata": {
					"web_search_queries": ["latest policy"],
					"grounding_chunks": [
						{"web": {"uri": "https://gov.example", "title": "Gov"}}
					]
				}
			}]
		}`))
	})

	req := &llmcore.RunRequest{
		RunID:         "r7",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-flash",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "what's the latest policy",
	}

	result, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, result.GroundedEffective)
	assert.Equal(t, 1, result.ToolCallCount)
	assert.Len(t, result.Citations, 1)
	assert.Equal(t, "https://gov.example", result.Citations[0].URI)
}

func TestRun_RequiredGrounding_SchemaBestEffortParse(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "```json\n{\"answer\": 7}\n```"}}},
				GroundingMetadata: &vertexapi.GroundingMetadata{
					WebSearchQueries: []string{"q"},
				},
			}},
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r8",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-pro",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "ground and return json",
		Schema:        &llmcore.SchemaDescriptor{Name: "x", Schema: map[string]any{"type": "object"}},
	}

	result, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, result.JSONValid)
	assert.Equal(t, float64(7), result.JSONObj["answer"])
}

func TestRun_RequiredGrounding_SchemaParseFailureFallsBackToWrapper(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "not json at all"}}},
				GroundingMetadata: &vertexapi.GroundingMetadata{
					WebSearchQueries: []string{"q"},
				},
			}},
		})
	})

	req := &llmcore.RunRequest{
		RunID:         "r9",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-pro",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "ground and return json",
		Schema:        &llmcore.SchemaDescriptor{Name: "x", Schema: map[string]any{"type": "object"}},
	}

	result, err := adapter.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, result.JSONValid)
	assert.Equal(t, "not json at all", result.JSONObj["response"])
}

func TestAuthFailurePropagates(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	})

	req := &llmcore.RunRequest{
		RunID:         "r6",
		Provider:      "vertex",
		ModelName:     "gemini-2.5-pro",
		GroundingMode: llmcore.GroundingOff,
		UserPrompt:    "hi",
	}

	_, err := adapter.Run(context.Background(), req)
	rerr, ok := err.(*llmcore.RunError)
	assert.True(t, ok)
	assert.Equal(t, llmcore.KindAuthRequired, rerr.Kind)
}
