package llmcore

import "fmt"

// GroundingSignals is the result of the §4.2 extractor: a pure function
// from provider-reported evidence to a canonical, deduplicated view of
// whether and how much web retrieval happened.
type GroundingSignals struct {
	Grounded  bool
	ToolCalls int
	Citations []Citation
	Queries   []string
}

// ExtractGroundingSignals normalizes provider-specific grounding evidence
// into GroundingSignals. Both adapters call this with their own
// provider-shaped evidence translated to the generic inputs below:
//
//   - chunks holds one entry per provider "chunk" or per-call citation
//     record, in whatever shape survived JSON decoding: a map[string]any
//     ("dict"), a bare string (treated as a URI), or an already-built
//     Citation. This mirrors the dynamic shapes original_source's Python
//     adapters tolerate from provider SDKs.
//   - queries holds provider-reported search query strings already pulled
//     out by the adapter (one per OpenAI web_search_call item, or
//     Vertex's grounding_metadata.web_search_queries).
//
// Per spec invariant 3, grounded is derived only from this evidence, never
// from whether tools were present in the request.
func ExtractGroundingSignals(chunks []any, queries []string) (GroundingSignals, *RunError) {
	citations, rerr := normalizeCitations(chunks)
	if rerr != nil {
		return GroundingSignals{}, rerr
	}

	grounded := len(citations) > 0 || len(queries) > 0

	toolCalls := 0
	switch {
	case len(queries) > 0:
		toolCalls = len(queries)
	case len(citations) > 0:
		toolCalls = len(citations)
	}

	return GroundingSignals{
		Grounded:  grounded,
		ToolCalls: toolCalls,
		Citations: citations,
		Queries:   queries,
	}, nil
}

// normalizeCitations coerces each raw chunk into a Citation, deduplicates
// by URI (first occurrence wins, preserving order), and raises
// extractor_shape_violation for any chunk that survives coercion as
// something other than dict-shaped. This is a programmer error: it means
// a provider chunk arrived in a shape this adapter's own parsing code
// should never have produced.
func normalizeCitations(raws []any) ([]Citation, *RunError) {
	seen := make(map[string]bool, len(raws))
	out := make([]Citation, 0, len(raws))

	for _, raw := range raws {
		citation, ok := normalizeCitation(raw)
		if !ok {
			return nil, &RunError{
				Kind:    KindExtractorShapeViolation,
				Message: fmt.Sprintf("grounding chunk is not dict-shaped after normalization: %#v", raw),
			}
		}
		if citation.URI == "" || seen[citation.URI] {
			continue
		}
		seen[citation.URI] = true
		out = append(out, citation)
	}

	return out, nil
}

// normalizeCitation is the _coerce_citations-equivalent defensive step
// (SPEC_FULL.md supplemented feature 5): it tolerates a chunk arriving as
// a bare string (the URI), a loosely-typed map missing title/source, or an
// already-built Citation, and turns all three into the canonical shape.
// Anything else (nil, a slice, a number, ...) is reported as unrecoverable
// so normalizeCitations can raise the shape violation.
func normalizeCitation(raw any) (Citation, bool) {
	switch v := raw.(type) {
	case Citation:
		return v, true
	case *Citation:
		if v == nil {
			return Citation{}, false
		}
		return *v, true
	case string:
		if v == "" {
			return Citation{}, false
		}
		return Citation{URI: v, Source: "web_search"}, true
	case map[string]any:
		uri, _ := v["uri"].(string)
		if uri == "" {
			uri, _ = v["url"].(string)
		}
		if uri == "" {
			return Citation{}, false
		}
		title, _ := v["title"].(string)
		source, _ := v["source"].(string)
		if source == "" {
			source = "web_search"
		}
		return Citation{URI: uri, Title: title, Source: source}, true
	default:
		return Citation{}, false
	}
}
