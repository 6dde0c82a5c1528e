package providers

import (
	"fmt"
)

// Registry maps catalog models to the adapters that serve them.
type Registry struct {
	catalog  *Catalog
	adapters map[Tag]Adapter
}

func NewRegistry(catalog *Catalog, adapters ...Adapter) *Registry {
	r := &Registry{catalog: catalog, adapters: make(map[Tag]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Tag()] = a
	}
	return r
}

// Resolve finds the adapter for model. An empty model selects the catalog
// default for kind.
func (r *Registry) Resolve(model string, kind Kind) (Adapter, Model, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return nil, Model{}, invalid("generation_type", "generation_type must be one of image, video, audio")
	}

	var (
		m  Model
		ok bool
	)
	if model == "" {
		m, ok = r.catalog.Default(kind)
		if !ok {
			return nil, Model{}, invalid("model", fmt.Sprintf("no default model for %s generation", kind))
		}
	} else {
		m, ok = r.catalog.Lookup(model)
		if !ok {
			return nil, Model{}, invalid("model", fmt.Sprintf("unknown model %q", model))
		}
	}

	if m.Kind != kind {
		return nil, Model{}, invalid("model", fmt.Sprintf("model %q produces %s, not %s", m.Name, m.Kind, kind))
	}

	a, ok := r.adapters[m.Provider]
	if !ok {
		return nil, Model{}, invalid("model", fmt.Sprintf("provider %s is not configured", m.Provider))
	}
	return a, m, nil
}

// Prepare resolves the adapter, fills unset fields from the model defaults,
// and validates the result.
func (r *Registry) Prepare(req Request) (Adapter, Request, error) {
	a, m, err := r.Resolve(req.Model, req.Kind)
	if err != nil {
		return nil, Request{}, err
	}

	req.Model = m.Name
	if req.Width == nil && m.Width > 0 {
		req.Width = ptr(m.Width)
	}
	if req.Height == nil && m.Height > 0 {
		req.Height = ptr(m.Height)
	}
	if req.Duration == nil && m.Duration > 0 && req.Kind == KindVideo {
		req.Duration = ptr(m.Duration)
	}
	if req.Resolution == "" {
		req.Resolution = m.Resolution
	}
	if req.Voice == "" {
		req.Voice = m.Voice
	}

	if err := Validate(req, a.Limits()); err != nil {
		return nil, Request{}, err
	}
	return a, req, nil
}

func ptr[T any](v T) *T { return &v }
