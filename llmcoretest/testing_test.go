package llmcoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	llmcore "github.com/contestra/llm-core"
)

func TestMockProvider_ReturnsEnqueuedResultsInOrder(t *testing.T) {
	m := NewMockProvider()
	m.Enqueue(
		NewMockRunResult(llmcore.RunResult{RunID: "first"}),
		NewMockRunResult(llmcore.RunResult{RunID: "second"}),
	)

	r1, err := m.Run(context.Background(), &llmcore.RunRequest{RunID: "first"})
	assert.NoError(t, err)
	assert.Equal(t, "first", r1.RunID)

	r2, err := m.Run(context.Background(), &llmcore.RunRequest{RunID: "second"})
	assert.NoError(t, err)
	assert.Equal(t, "second", r2.RunID)
}

func TestMockProvider_ErrorsWhenExhausted(t *testing.T) {
	m := NewMockProvider()
	_, err := m.Run(context.Background(), &llmcore.RunRequest{RunID: "x"})
	assert.Error(t, err)
}

func TestMockProvider_TracksInputs(t *testing.T) {
	m := NewMockProvider()
	m.Enqueue(NewMockRunResult(llmcore.RunResult{}))
	_, _ = m.Run(context.Background(), &llmcore.RunRequest{RunID: "tracked"})
	assert.Len(t, m.TrackedInputs(), 1)
	assert.Equal(t, "tracked", m.TrackedInputs()[0].RunID)
}

func TestMockProvider_Restore(t *testing.T) {
	m := NewMockProvider()
	m.Enqueue(NewMockRunResult(llmcore.RunResult{}))
	_, _ = m.Run(context.Background(), &llmcore.RunRequest{RunID: "x"})
	m.Restore()
	assert.Empty(t, m.TrackedInputs())
	_, err := m.Run(context.Background(), &llmcore.RunRequest{RunID: "y"})
	assert.Error(t, err)
}
