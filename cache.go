package scoped

import (
	"go.uber.org/zap"
)

// getSingleton returns the cached instance for the descriptor at index in
// services[name], constructing it in the owning scope on first use.
//
// A descriptor pinned to another scope name is resolved in the nearest ancestor of
// that name and the result is also cached here, so later requests from this scope
// skip the walk.
func (s *Scope) getSingleton(name string, index int, opts []any) (any, error) {
	s.mu.Lock()
	list := s.services[name]
	if index < 0 || index >= len(list) {
		s.mu.Unlock()
		return nil, nil
	}
	d := list[index]
	slots := s.slotsLocked(name)
	if slots[index].set {
		v := slots[index].value
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	if d.scope != "" && d.scope != s.name {
		owner := s.parent
		for owner != nil && owner.name != d.scope {
			owner = owner.parent
		}
		if owner == nil {
			return nil, &ScopeNotFoundError{Service: name, Scope: d.scope}
		}

		if ownerIndex := owner.indexOf(name, d); ownerIndex >= 0 {
			instance, err := owner.getSingleton(name, ownerIndex, opts)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("singleton propagated",
				zap.String("service", name),
				zap.String("owner", owner.name),
				zap.String("owner_id", owner.id),
			)
			return s.store(name, index, instance), nil
		}
		// The owner never saw this descriptor (registered after the sub-scope was
		// made), so it lives here.
		s.logger.Debug("owner lacks descriptor, constructing locally",
			zap.String("service", name),
			zap.String("owner", owner.name),
		)
	}

	instance, err := s.construct(name, index, d, opts)
	if err != nil {
		return nil, err
	}
	return s.store(name, index, instance), nil
}

// slotsLocked returns the cache slots for name, sized to the service list.
// Callers must hold s.mu.
func (s *Scope) slotsLocked(name string) []instanceSlot {
	slots := s.instances[name]
	if n := len(s.services[name]); len(slots) < n {
		grown := make([]instanceSlot, n)
		copy(grown, slots)
		slots = grown
		s.instances[name] = slots
	}
	return slots
}

// store caches instance at index unless another resolution got there first, in
// which case the earlier instance wins and is returned.
func (s *Scope) store(name string, index int, instance any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := s.slotsLocked(name)
	if slots[index].set {
		return slots[index].value
	}
	slots[index] = instanceSlot{value: instance, set: true}
	return instance
}
