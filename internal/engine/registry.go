package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"firestige.xyz/otusdpi/internal/core"
	"firestige.xyz/otusdpi/pkg/dissector"
)

// Registry holds dissector registrations keyed by protocol id and name.
// It implements dissector.Registry.
type Registry struct {
	mu     sync.RWMutex
	byID   map[dissector.ProtocolID]dissector.Registration
	byName map[string]dissector.ProtocolID
	order  []dissector.ProtocolID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[dissector.ProtocolID]dissector.Registration),
		byName: make(map[string]dissector.ProtocolID),
	}
}

// Register adds a dissector. Names are matched case-insensitively.
func (r *Registry) Register(reg dissector.Registration) error {
	if reg.ID == dissector.ProtocolUnknown {
		return fmt.Errorf("%w: id 0 is reserved for unknown", core.ErrInvalidProtocol)
	}
	if reg.Name == "" || reg.Search == nil {
		return fmt.Errorf("%w: name and search function are required", core.ErrInvalidProtocol)
	}

	key := strings.ToLower(reg.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[reg.ID]; ok {
		return fmt.Errorf("%w: id %d", core.ErrDissectorExists, reg.ID)
	}
	if _, ok := r.byName[key]; ok {
		return fmt.Errorf("%w: %s", core.ErrDissectorExists, reg.Name)
	}

	r.byID[reg.ID] = reg
	r.byName[key] = reg.ID
	r.order = append(r.order, reg.ID)
	return nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (dissector.Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return dissector.Registration{}, false
	}
	return r.byID[id], true
}

// Name returns the registered name of id, "Unknown" for ProtocolUnknown and
// unregistered ids.
func (r *Registry) Name(id dissector.ProtocolID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.byID[id]; ok {
		return reg.Name
	}
	return "Unknown"
}

// List returns registrations in registration order.
func (r *Registry) List() []dissector.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dissector.Registration, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Names returns registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byID))
	for _, reg := range r.byID {
		names = append(names, reg.Name)
	}
	sort.Strings(names)
	return names
}
