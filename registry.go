package otpcore

import "sync"

// Registry is a process-wide name-to-Ref directory. The zero value is not
// usable; construct one with NewRegistry, or use the package-level default
// that Start/StartSupervisor register into when given a name.
type Registry struct {
	mu    sync.RWMutex
	names map[string]Ref
}

// NewRegistry builds a private registry, useful in tests that must not leak
// registrations across cases.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]Ref)}
}

// Register binds name to ref. Fails AlreadyRegistered if name is already bound.
func (r *Registry) Register(name string, ref Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[name]; exists {
		return &AlreadyRegistered{Name: name}
	}
	r.names[name] = ref
	return nil
}

// Unregister removes name's binding, if any. Idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.names, name)
	r.mu.Unlock()
}

// Whereis looks up the Ref currently bound to name.
func (r *Registry) Whereis(name string) (Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.names[name]
	return ref, ok
}

func (r *Registry) clear() {
	r.mu.Lock()
	r.names = make(map[string]Ref)
	r.mu.Unlock()
}

// unregisterIfMatches removes name's binding only if it still points at ref,
// so a stale unregister from a long-dead process can't clobber a name that
// has since been reused.
func (r *Registry) unregisterIfMatches(name string, ref Ref) {
	r.mu.Lock()
	if cur, ok := r.names[name]; ok && cur == ref {
		delete(r.names, name)
	}
	r.mu.Unlock()
}

var defaultRegistry = NewRegistry()

// Register binds name to ref in the default, process-wide registry.
func Register(name string, ref Ref) error { return defaultRegistry.Register(name, ref) }

// Unregister removes name's binding in the default registry.
func Unregister(name string) { defaultRegistry.Unregister(name) }

// Whereis looks up name in the default registry.
func Whereis(name string) (Ref, bool) { return defaultRegistry.Whereis(name) }
