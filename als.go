package llmcore

// ALSMaxLength is the hard cap on RunRequest.ALSBlock length (spec
// invariant 1). A block of exactly this length is accepted; one character
// longer is rejected with KindInvalidRequest.
const ALSMaxLength = 350

// localeSystemDirective is injected as the system instruction when a
// caller supplies an ALSBlock but no SystemText: it tells the model to use
// the ambient locale context silently, without naming the underlying
// country or region back to the user.
const localeSystemDirective = "Use the ambient context provided to infer the user's locale and bias your answer accordingly. Do not name or mention the specific country, region, or locale identifiers themselves in your response."

// EffectiveSystemText returns the system instruction an adapter should
// send: the caller's SystemText verbatim if set, otherwise the locale
// directive when an ALS block is present, otherwise empty. Both adapters
// call this before layering any provider-specific system-text additions
// (e.g. the OpenAI soft-required search-first directive).
func EffectiveSystemText(req *RunRequest) string {
	if req.SystemText != "" {
		return req.SystemText
	}
	if req.ALSBlock != "" {
		return localeSystemDirective
	}
	return ""
}
