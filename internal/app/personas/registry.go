package personas

import "github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"

// Registry is the fixed, ordered set of personas. It is built once at
// startup and never changes.
type Registry struct {
	order  []domain.PersonaName
	byName map[domain.PersonaName]domain.Persona
}

// NewRegistry builds a registry from the given personas, preserving order.
func NewRegistry(ps ...domain.Persona) *Registry {
	r := &Registry{byName: make(map[domain.PersonaName]domain.Persona, len(ps))}
	for _, p := range ps {
		if _, dup := r.byName[p.Name]; dup {
			continue
		}
		r.order = append(r.order, p.Name)
		r.byName[p.Name] = p
	}
	return r
}

// Default returns the three Joyful Bites personas.
func Default() *Registry {
	return NewRegistry(BusyBrenda, HungryHiro, UrbanUro)
}

func (r *Registry) All() []domain.Persona {
	out := make([]domain.Persona, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) Get(name domain.PersonaName) (domain.Persona, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) Len() int { return len(r.order) }
