package llmcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_IsRaised(t *testing.T) {
	assert.True(t, KindNoToolCallInRequired.IsRaised())
	assert.True(t, KindAuthRequired.IsRaised())
	assert.False(t, KindJSONParseFailed.IsRaised())
	assert.False(t, KindCancelled.IsRaised())
}

func TestRunError_BuildersChain(t *testing.T) {
	req := &RunRequest{Provider: "openai", ModelName: "gpt-5", GroundingMode: GroundingRequired}
	underlying := errors.New("boom")

	rerr := NewRunError(KindProviderTransportError, req, "transport failed").
		WithToolChoice("auto").
		WithEnforcementMode("soft").
		WithStatus(500).
		WithErr(underlying)

	assert.Equal(t, "openai", rerr.Provider)
	assert.Equal(t, "gpt-5", rerr.ModelName)
	assert.Equal(t, GroundingRequired, rerr.GroundingMode)
	assert.Equal(t, "auto", rerr.ToolChoiceSent)
	assert.Equal(t, "soft", rerr.EnforcementMode)
	assert.Equal(t, 500, rerr.Status)
	assert.ErrorIs(t, rerr, underlying)
}

func TestRunError_ErrorStringIncludesDiagnostics(t *testing.T) {
	req := &RunRequest{Provider: "vertex", ModelName: "gemini-2.5-pro", GroundingMode: GroundingOff}
	rerr := NewRunError(KindNoMessageOutput, req, "empty output")
	msg := rerr.Error()
	assert.Contains(t, msg, "vertex")
	assert.Contains(t, msg, "gemini-2.5-pro")
	assert.Contains(t, msg, "empty output")
}
