package llmcore

import (
	"fmt"
	"unicode/utf8"
)

// knownProviders is the set of canonical provider keys a RunRequest may
// resolve to after alias resolution.
var knownProviders = map[string]bool{
	"openai": true,
	"vertex": true,
}

// providerAliases maps caller-facing provider spellings to the canonical
// key the orchestrator dispatches on. "google" and "gemini" both speak to
// the Vertex adapter.
var providerAliases = map[string]string{
	"openai": "openai",
	"vertex": "vertex",
	"google": "vertex",
	"gemini": "vertex",
}

// ResolveProvider maps a caller-supplied provider name to its canonical
// key, applying the openai/vertex/google/gemini alias table. An unknown
// name yields KindUnknownProvider.
func ResolveProvider(name string) (string, *RunError) {
	resolved, ok := providerAliases[name]
	if !ok {
		return "", &RunError{
			Kind:    KindUnknownProvider,
			Message: fmt.Sprintf("unknown provider %q", name),
		}
	}
	return resolved, nil
}

// ValidateRequest performs the §4.1 validation pass: known provider,
// non-empty run_id/user_prompt, ALS length cap, temperature/top_p ranges,
// and schema well-formedness. It makes no network call. A validation
// failure always yields KindInvalidRequest (unknown-provider aliasing
// happens first and can yield KindUnknownProvider instead, since the
// orchestrator needs to distinguish "not a request I understand" from
// "not a provider I have").
func ValidateRequest(req *RunRequest) *RunError {
	if req == nil {
		return NewRunError(KindInvalidRequest, req, "request is nil")
	}

	resolved, rerr := ResolveProvider(req.Provider)
	if rerr != nil {
		return rerr
	}
	if !knownProviders[resolved] {
		return NewRunError(KindUnknownProvider, req, fmt.Sprintf("provider %q has no adapter", resolved))
	}

	if req.RunID == "" {
		return NewRunError(KindInvalidRequest, req, "run_id must not be empty")
	}
	if req.UserPrompt == "" {
		return NewRunError(KindInvalidRequest, req, "user_prompt must not be empty")
	}
	if utf8.RuneCountInString(req.ALSBlock) > ALSMaxLength {
		return NewRunError(KindInvalidRequest, req, fmt.Sprintf("als_block exceeds %d characters", ALSMaxLength))
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return NewRunError(KindInvalidRequest, req, "temperature must be within [0, 2]")
	}
	if req.TopP != nil && (*req.TopP < 0 || *req.TopP > 1) {
		return NewRunError(KindInvalidRequest, req, "top_p must be within [0, 1]")
	}
	switch req.GroundingMode {
	case GroundingOff, GroundingPreferred, GroundingRequired:
	default:
		return NewRunError(KindInvalidRequest, req, fmt.Sprintf("unknown grounding_mode %q", req.GroundingMode))
	}
	if req.Schema != nil {
		if req.Schema.Strict && req.Schema.Schema == nil {
			return NewRunError(KindInvalidRequest, req, "schema.strict requires a non-nil schema object")
		}
	}

	return nil
}
