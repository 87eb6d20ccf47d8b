package tts

import (
	"fmt"
	"sort"

	"video-dubber/models"
)

// Registry resolves provider names to synthesizers.
type Registry struct {
	providers map[string]Synthesizer
	fallback  string
}

// NewRegistry registers each synthesizer under its Name. defaultName is used
// when a request names no provider.
func NewRegistry(defaultName string, synths ...Synthesizer) *Registry {
	r := &Registry{providers: make(map[string]Synthesizer, len(synths)), fallback: defaultName}
	for _, s := range synths {
		r.providers[s.Name()] = s
	}
	return r
}

// Get returns the synthesizer for name. Unknown names wrap models.ErrSynthesis.
func (r *Registry) Get(name string) (Synthesizer, error) {
	if name == "" {
		name = r.fallback
	}
	s, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown TTS provider %q", models.ErrSynthesis, name)
	}
	return s, nil
}

// Has reports whether name resolves to a registered provider.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
