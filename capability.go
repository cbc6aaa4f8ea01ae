package llmcore

import (
	"sort"
	"sync"

	"github.com/contestra/llm-core/internal/ptr"
	"gopkg.in/yaml.v3"
)

// staticDefaultsByProvider seeds the registry with the model quirks this
// spec calls out by name: GPT-5-family models reject tool_choice=required
// and need a locked temperature; Gemini 2.x models are grounding-capable;
// everything else gets a conservative default record.
var staticDefaultsByProvider = map[string]map[string]CapabilityRecord{
	"openai": {
		"gpt-5": {
			SupportsRequiredToolChoice:   false,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: false,
			TemperatureLockedTo:          ptr.To(1.0),
			ReasoningRequired:            true,
			DefaultMaxOutputTokens:       2048,
			GroundedMaxOutputTokens:      4096,
		},
		"gpt-5-mini": {
			SupportsRequiredToolChoice:   false,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: false,
			TemperatureLockedTo:          ptr.To(1.0),
			ReasoningRequired:            true,
			DefaultMaxOutputTokens:       2048,
			GroundedMaxOutputTokens:      4096,
		},
		"gpt-4.1": {
			SupportsRequiredToolChoice:   true,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: true,
			DefaultMaxOutputTokens:       1024,
			GroundedMaxOutputTokens:      2048,
		},
		"gpt-4o": {
			SupportsRequiredToolChoice:   true,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: true,
			DefaultMaxOutputTokens:       1024,
			GroundedMaxOutputTokens:      2048,
		},
	},
	"vertex": {
		"gemini-2.5-pro": {
			SupportsRequiredToolChoice:   true,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: false,
			DefaultMaxOutputTokens:       2048,
			GroundedMaxOutputTokens:      4096,
		},
		"gemini-2.5-flash": {
			SupportsRequiredToolChoice:   true,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: false,
			DefaultMaxOutputTokens:       2048,
			GroundedMaxOutputTokens:      4096,
		},
		"gemini-2.0-flash": {
			SupportsRequiredToolChoice:   true,
			SupportsGrounding:            true,
			CanCombineSchemaAndGrounding: false,
			DefaultMaxOutputTokens:       1024,
			GroundedMaxOutputTokens:      2048,
		},
	},
}

// fallbackRecord is returned for a model the registry has never seen.
var fallbackRecord = CapabilityRecord{
	SupportsRequiredToolChoice:   false,
	SupportsGrounding:            false,
	CanCombineSchemaAndGrounding: false,
	DefaultMaxOutputTokens:       1024,
	GroundedMaxOutputTokens:      2048,
}

// Registry is the process-local, lazily-populated capability map
// described in spec §4.6 and §5: static defaults plus probe-driven
// updates, single-writer-many-reader, "lost race is fine".
type Registry struct {
	mu        sync.RWMutex
	records   map[string]CapabilityRecord
	providers map[string]string // model -> provider, for GetSupportedModels

	probeOnceMu sync.Mutex
	probeOnce   map[string]*sync.Once
}

// NewRegistry builds a registry seeded with the static defaults above.
func NewRegistry() *Registry {
	r := &Registry{
		records:   make(map[string]CapabilityRecord),
		providers: make(map[string]string),
		probeOnce: make(map[string]*sync.Once),
	}
	for provider, models := range staticDefaultsByProvider {
		for model, rec := range models {
			r.records[model] = rec
			r.providers[model] = provider
		}
	}
	return r
}

// DefaultRegistry is the registry the orchestrator and adapters use unless
// a caller supplies their own (tests construct their own via NewRegistry
// to avoid cross-test pollution of the probe cache).
var DefaultRegistry = NewRegistry()

// Get returns the capability record for model, or a conservative fallback
// if the model has never been seen (no static default, no probe yet).
func (r *Registry) Get(model string) CapabilityRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.records[model]; ok {
		return rec
	}
	return fallbackRecord
}

// Set replaces (or inserts) the capability record for model. Concurrent
// writers racing on the same model key is expected and harmless: the
// last write wins, which is exactly the "lost race is fine" semantics
// spec §5 calls for.
func (r *Registry) Set(model string, rec CapabilityRecord, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[model] = rec
	if provider != "" {
		r.providers[model] = provider
	}
}

// EnsureProbed guarantees probe is invoked at most once per model for the
// lifetime of this registry (the testable property from spec §8). probe
// should issue the minimal synthetic tool_choice=required request and
// report whether it was accepted; its result is merged into the model's
// capability record as SupportsRequiredToolChoice.
func (r *Registry) EnsureProbed(model string, provider string, probe func() (supportsRequired bool)) bool {
	r.probeOnceMu.Lock()
	once, ok := r.probeOnce[model]
	if !ok {
		once = &sync.Once{}
		r.probeOnce[model] = once
	}
	r.probeOnceMu.Unlock()

	once.Do(func() {
		supports := probe()
		rec := r.Get(model)
		rec.SupportsRequiredToolChoice = supports
		r.Set(model, rec, provider)
	})

	return r.Get(model).SupportsRequiredToolChoice
}

// SupportedModels returns the sorted list of model keys the registry has
// static or probed entries for under the given provider. Grounded on
// original_source's orchestrator.get_supported_models.
func (r *Registry) SupportedModels(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for model, p := range r.providers {
		if p == provider {
			out = append(out, model)
		}
	}
	sort.Strings(out)
	return out
}

// capabilityYAML is the on-disk shape of an optional capability-defaults
// seed file, decoded with gopkg.in/yaml.v3 (see SPEC_FULL.md's ambient
// stack section). It is additive: LoadYAML merges entries on top of
// whatever the registry already has, it never clears it.
type capabilityYAML struct {
	Providers map[string]map[string]struct {
		SupportsRequiredToolChoice  bool     `yaml:"supports_required_toolchoice"`
		SupportsGrounding           bool     `yaml:"supports_grounding"`
		CanCombineSchemaAndGrounding bool    `yaml:"can_combine_schema_and_grounding"`
		TemperatureLockedTo         *float64 `yaml:"temperature_locked_to"`
		ReasoningRequired           bool     `yaml:"reasoning_required"`
		DefaultMaxOutputTokens      int      `yaml:"default_max_output_tokens"`
		GroundedMaxOutputTokens     int      `yaml:"grounded_max_output_tokens"`
	} `yaml:"providers"`
}

// LoadYAML merges a capability_defaults.yaml-shaped document into the
// registry, overwriting any model key it names.
func (r *Registry) LoadYAML(data []byte) error {
	var doc capabilityYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for provider, models := range doc.Providers {
		for model, rec := range models {
			r.Set(model, CapabilityRecord{
				SupportsRequiredToolChoice:   rec.SupportsRequiredToolChoice,
				SupportsGrounding:            rec.SupportsGrounding,
				CanCombineSchemaAndGrounding: rec.CanCombineSchemaAndGrounding,
				TemperatureLockedTo:          rec.TemperatureLockedTo,
				ReasoningRequired:            rec.ReasoningRequired,
				DefaultMaxOutputTokens:       rec.DefaultMaxOutputTokens,
				GroundedMaxOutputTokens:      rec.GroundedMaxOutputTokens,
			}, provider)
		}
	}
	return nil
}
