package llmcore

import "context"

// Provider is implemented by each adapter package (openai.Adapter,
// vertex.Adapter). It is the only interface the orchestrator depends on,
// which keeps this package free of any import on the adapter packages
// (they import llmcore, not the other way around) and lets tests supply
// llmcoretest.MockProvider instead of a real one.
type Provider interface {
	Run(ctx context.Context, req *RunRequest) (*RunResult, error)
}

// Orchestrator is the thin dispatch layer described in spec §4.5: it
// validates a RunRequest, routes it to the adapter registered for its
// resolved provider, and surfaces whatever the adapter returns unchanged.
// It performs no retries itself; only the adapters' own declared retries
// (token-starvation, soft-required provoker) re-invoke a provider.
type Orchestrator struct {
	adapters map[string]Provider
	registry *Registry
}

// NewOrchestrator builds an Orchestrator dispatching to adapters, keyed by
// canonical provider name ("openai", "vertex"). registry may be nil, in
// which case DefaultRegistry is used.
func NewOrchestrator(adapters map[string]Provider, registry *Registry) *Orchestrator {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Orchestrator{adapters: adapters, registry: registry}
}

// RunAsyncResult is delivered on the channel returned by RunAsync.
type RunAsyncResult struct {
	Result *RunResult
	Err    error
}

// Run validates req, resolves its provider, and dispatches to the
// matching adapter, blocking until the adapter returns. This is the
// blocking entry point spec §5 requires alongside RunAsync.
func (o *Orchestrator) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	if rerr := ValidateRequest(req); rerr != nil {
		return nil, rerr
	}

	resolved, rerr := ResolveProvider(req.Provider)
	if rerr != nil {
		return nil, rerr
	}

	adapter, ok := o.adapters[resolved]
	if !ok {
		return nil, NewRunError(KindUnknownProvider, req, "no adapter registered for provider "+resolved)
	}

	dispatched := req.Clone()
	dispatched.Provider = resolved

	select {
	case <-ctx.Done():
		// Spec §7 marks cancelled as embedded, not raised: the caller gets a
		// RunResult carrying the error, with no citations and zero usage,
		// rather than an error return.
		return &RunResult{
			RunID:     req.RunID,
			Provider:  resolved,
			ModelName: req.ModelName,
			Error:     NewRunError(KindCancelled, req, ctx.Err().Error()),
		}, nil
	default:
	}

	return adapter.Run(ctx, dispatched)
}

// RunAsync is the cooperative entry point: it launches Run on a goroutine
// and returns immediately with a channel that receives exactly one
// RunAsyncResult. A parallel-thread implementation can run many of these
// concurrently without any change to adapter internals, per spec §5.
func (o *Orchestrator) RunAsync(ctx context.Context, req *RunRequest) <-chan RunAsyncResult {
	ch := make(chan RunAsyncResult, 1)
	go func() {
		result, err := o.Run(ctx, req)
		ch <- RunAsyncResult{Result: result, Err: err}
		close(ch)
	}()
	return ch
}

// ValidateRequest exposes the §4.1 validation pass as an independent entry
// point for callers that want to validate before committing to a run.
func (o *Orchestrator) ValidateRequest(req *RunRequest) *RunError {
	return ValidateRequest(req)
}

// GetSupportedModels returns the registry's known model keys for the
// given provider name, after alias resolution. Grounded on
// original_source's orchestrator.get_supported_models.
func (o *Orchestrator) GetSupportedModels(provider string) ([]string, *RunError) {
	resolved, rerr := ResolveProvider(provider)
	if rerr != nil {
		return nil, rerr
	}
	return o.registry.SupportedModels(resolved), nil
}

// Registry returns the capability registry this orchestrator's adapters
// should use, so adapters constructed alongside it share one cache.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}
