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

func TestDirectFallback_RefusesGroundedRequests(t *testing.T) {
	fb := vertex.NewDirectFallback("api-key")
	req := &llmcore.RunRequest{
		RunID:         "r1",
		GroundingMode: llmcore.GroundingRequired,
		UserPrompt:    "ground this",
	}
	_, err := fb.Run(context.Background(), req)
	rerr, ok := err.(*llmcore.RunError)
	assert.True(t, ok)
	assert.Equal(t, llmcore.KindModelNotGroundingCapable, rerr.Kind)
}

func TestDirectFallback_PlainTextRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "api-key", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vertexapi.GenerateContentResponse{
			Candidates: []vertexapi.Candidate{{
				Content: &vertexapi.Content{Parts: []vertexapi.Part{{Text: "diagnostic answer"}}},
			}},
		})
	}))
	t.Cleanup(server.Close)

	fb := vertex.NewDirectFallback("api-key")
	fb.BaseURL = server.URL
	fb.HTTPClient = server.Client()

	req := &llmcore.RunRequest{
		RunID:         "r2",
		GroundingMode: llmcore.GroundingOff,
		ModelName:     "gemini-2.0-flash",
		UserPrompt:    "diagnose",
	}

	result, err := fb.Run(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "diagnostic answer", result.JSONText)
}
