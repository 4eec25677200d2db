// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"net/http"
	"sort"
	"sync"

	"github.com/adiadia/app-builder/internal/domain"
	caps "github.com/adiadia/app-builder/internal/engine/capabilities"
)

// Registry maps component types to capabilities. It is safe for concurrent
// use so capabilities can be registered while workflows run.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[domain.ComponentType]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[domain.ComponentType]Capability, 16),
	}
}

// Register adds or replaces the capability for componentType.
func (r *Registry) Register(componentType domain.ComponentType, capability Capability) {
	if capability == nil {
		panic("engine.Registry.Register requires a capability")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[componentType] = capability
}

func (r *Registry) Lookup(componentType domain.ComponentType) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[componentType]
	return c, ok
}

// Types returns the registered component types in sorted order.
func (r *Registry) Types() []domain.ComponentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ComponentType, 0, len(r.capabilities))
	for t := range r.capabilities {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type RegistryOptions struct {
	// HTTPClient is used by the api-call capability.
	HTTPClient *http.Client
}

// DefaultRegistry returns a registry with every built-in component type.
func DefaultRegistry(opts RegistryOptions) *Registry {
	r := NewRegistry()
	r.Register(domain.ComponentChatbot, &caps.Chatbot{})
	r.Register(domain.ComponentTextAnalysis, &caps.TextAnalysis{})
	r.Register(domain.ComponentImageGeneration, &caps.ImageGeneration{})
	r.Register(domain.ComponentDataProcessor, &caps.DataProcessor{})
	r.Register(domain.ComponentAPICall, caps.NewAPICall(opts.HTTPClient))
	r.Register(domain.ComponentSpeechToText, &caps.SpeechToText{})
	r.Register(domain.ComponentDocumentAnalysis, &caps.DocumentAnalysis{})
	r.Register(domain.ComponentCodeGenerator, &caps.CodeGenerator{})
	r.Register(domain.ComponentVisualSearch, &caps.VisualSearch{})
	return r
}
