// Package provider talks to the external image-generation services. Both
// adapters take the same request and hand back final image bytes; the
// difference is purely transport (one blocking call vs submit-then-poll).
package provider

import (
	"context"
	"fmt"

	"roomlift/api/internal/models"
)

// Request is one edit invocation: source bytes, their mime type, the
// resolved prompt and any model-specific inference parameters, forwarded
// opaquely.
type Request struct {
	TaskID string
	Image  []byte
	MIME   string
	Prompt string
	Params map[string]string
}

type Result struct {
	Image []byte
}

type Adapter interface {
	Kind() models.ProviderKind
	Edit(ctx context.Context, req Request) (Result, error)
}

// Registry selects the adapter for a model's provider kind.
type Registry struct {
	adapters map[models.ProviderKind]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[models.ProviderKind]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Kind()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) ForKind(kind models.ProviderKind) (Adapter, error) {
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider kind %q", kind)
	}
	return adapter, nil
}
