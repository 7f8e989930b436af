package trigger

import (
	"sync"
	"time"

	"github.com/quillnotes/quill/pkg/note"
)

// Registration associates a directive (by cache key and note) with its
// computed triggers.
type Registration struct {
	Key      string
	NoteID   note.ID
	Triggers []Trigger
}

// Registry collects registrations and answers the "next trigger across all
// registrations" query. It does not own any timers; the external scheduler
// polls NextAfter and fires callbacks itself.
type Registry struct {
	mu   sync.Mutex
	regs map[regKey]Registration
}

type regKey struct {
	key    string
	noteID note.ID
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[regKey]Registration)}
}

// Register inserts or replaces the registration for a directive.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[regKey{reg.Key, reg.NoteID}] = reg
}

// Unregister removes a directive's registration.
func (r *Registry) Unregister(key string, id note.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.regs, regKey{key, id})
}

// All returns all current registrations.
func (r *Registry) All() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	regs := make([]Registration, 0, len(r.regs))
	for _, reg := range r.regs {
		regs = append(regs, reg)
	}
	return regs
}

// NextAfter returns the earliest trigger instant strictly after t across all
// registrations, together with the registration owning it.
func (r *Registry) NextAfter(t time.Time) (time.Time, Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best time.Time
	var bestReg Registration
	found := false
	for _, reg := range r.regs {
		for _, trig := range reg.Triggers {
			next, ok := trig.NextAfter(t)
			if !ok {
				continue
			}
			if !found || next.Before(best) {
				best, bestReg, found = next, reg, true
			}
		}
	}
	return best, bestReg, found
}

// FiringAt returns the registrations with a trigger firing at the given
// instant.
func (r *Registry) FiringAt(t time.Time) []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Registration
	for _, reg := range r.regs {
		for _, trig := range reg.Triggers {
			if trig.FiresAt(t) {
				out = append(out, reg)
				break
			}
		}
	}
	return out
}
