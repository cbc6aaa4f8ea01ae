package llmcore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestExtractGroundingSignals_NoEvidenceIsUngrounded(t *testing.T) {
	signals, rerr := ExtractGroundingSignals(nil, nil)
	assert.Nil(t, rerr)
	assert.False(t, signals.Grounded)
	assert.Equal(t, 0, signals.ToolCalls)
}

func TestExtractGroundingSignals_QueriesDriveToolCallCount(t *testing.T) {
	signals, rerr := ExtractGroundingSignals(nil, []string{"q1", "q2", "q3"})
	assert.Nil(t, rerr)
	assert.True(t, signals.Grounded)
	assert.Equal(t, 3, signals.ToolCalls)
}

func TestExtractGroundingSignals_CitationsDriveToolCallCountWhenNoQueries(t *testing.T) {
	chunks := []any{
		map[string]any{"uri": "https://a.example", "title": "A"},
		map[string]any{"uri": "https://b.example", "title": "B"},
	}
	signals, rerr := ExtractGroundingSignals(chunks, nil)
	assert.Nil(t, rerr)
	assert.True(t, signals.Grounded)
	assert.Equal(t, 2, signals.ToolCalls)
}

func TestExtractGroundingSignals_DedupesByURI(t *testing.T) {
	chunks := []any{
		map[string]any{"uri": "https://a.example", "title": "first"},
		map[string]any{"uri": "https://a.example", "title": "duplicate"},
	}
	signals, rerr := ExtractGroundingSignals(chunks, nil)
	assert.Nil(t, rerr)
	if diff := cmp.Diff(1, len(signals.Citations)); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "first", signals.Citations[0].Title)
}

func TestExtractGroundingSignals_TolerantShapes(t *testing.T) {
	cite := Citation{URI: "https://c.example", Title: "C", Source: "web_search"}
	chunks := []any{
		"https://bare.example",
		cite,
		&cite,
		map[string]any{"url": "https://alt-key.example"},
	}
	signals, rerr := ExtractGroundingSignals(chunks, nil)
	assert.Nil(t, rerr)
	assert.Equal(t, 3, len(signals.Citations))
}

func TestExtractGroundingSignals_UnrecoverableShapeRaises(t *testing.T) {
	chunks := []any{42}
	_, rerr := ExtractGroundingSignals(chunks, nil)
	assert.NotNil(t, rerr)
	assert.Equal(t, KindExtractorShapeViolation, rerr.Kind)
}

func TestExtractGroundingSignals_EmptyBareStringIsUnrecoverable(t *testing.T) {
	chunks := []any{""}
	_, rerr := ExtractGroundingSignals(chunks, nil)
	assert.NotNil(t, rerr)
	assert.Equal(t, KindExtractorShapeViolation, rerr.Kind)
}

func TestExtractGroundingSignals_MapWithoutURIIsUnrecoverable(t *testing.T) {
	chunks := []any{map[string]any{"title": "no uri here"}}
	_, rerr := ExtractGroundingSignals(chunks, nil)
	assert.NotNil(t, rerr)
	assert.Equal(t, KindExtractorShapeViolation, rerr.Kind)
}
