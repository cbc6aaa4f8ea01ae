// Package llmcoretest provides a mock llmcore.Provider for orchestrator
// tests that shouldn't make a real HTTP round trip, adapted from the
// enqueue/tracked-inputs pattern in the SDK's llmsdktest package.
package llmcoretest

import (
	"context"
	"errors"

	llmcore "github.com/contestra/llm-core"
)

// MockRunResult is a result for a mocked Run call: either a RunResult or
// an error, never both.
type MockRunResult struct {
	Result *llmcore.RunResult
	Error  error
}

// NewMockRunResult constructs a mocked result that returns result.
func NewMockRunResult(result llmcore.RunResult) MockRunResult {
	return MockRunResult{Result: &result}
}

// NewMockRunError constructs a mocked result that returns err.
func NewMockRunError(err error) MockRunResult {
	return MockRunResult{Error: err}
}

// MockProvider implements llmcore.Provider, returning enqueued results in
// FIFO order and tracking every request it was called with.
type MockProvider struct {
	mockedResults []MockRunResult
	trackedInputs []llmcore.RunRequest
}

// NewMockProvider constructs an empty MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Run returns the next enqueued result, tracking req. It errors if no
// result has been enqueued, so an unexpectedly-extra call fails loudly
// rather than blocking or panicking.
func (m *MockProvider) Run(_ context.Context, req *llmcore.RunRequest) (*llmcore.RunResult, error) {
	if len(m.mockedResults) == 0 {
		return nil, errors.New("llmcoretest: no mocked run results available")
	}

	result := m.mockedResults[0]
	m.mockedResults = m.mockedResults[1:]
	m.trackedInputs = append(m.trackedInputs, *req)

	if result.Error != nil {
		return nil, result.Error
	}
	return result.Result, nil
}

// Enqueue appends results to be returned sequentially by Run.
func (m *MockProvider) Enqueue(results ...MockRunResult) {
	m.mockedResults = append(m.mockedResults, results...)
}

// TrackedInputs returns every RunRequest passed to Run so far, in order.
func (m *MockProvider) TrackedInputs() []llmcore.RunRequest {
	return m.trackedInputs
}

// Reset clears tracked inputs without touching enqueued results.
func (m *MockProvider) Reset() {
	m.trackedInputs = nil
}

// Restore clears both enqueued results and tracked inputs.
func (m *MockProvider) Restore() {
	m.mockedResults = nil
	m.Reset()
}
