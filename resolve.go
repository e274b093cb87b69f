package scoped

// Require resolves the most recently registered implementation of name.
// It returns nil without error when nothing is registered. The first element of
// opts, if any, is passed to the constructor as its options.
func (s *Scope) Require(name string, opts ...any) (any, error) {
	list := s.descriptors(name)
	if len(list) == 0 {
		return nil, nil
	}
	index := len(list) - 1
	return s.resolve(name, index, list[index], opts)
}

// GetServices resolves every implementation of name in registration order.
// Registration order is expected to follow dependency order.
func (s *Scope) GetServices(name string, opts ...any) ([]any, error) {
	list := s.descriptors(name)
	instances := make([]any, 0, len(list))
	for i, d := range list {
		instance, err := s.resolve(name, i, d, opts)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (s *Scope) resolve(name string, index int, d *Descriptor, opts []any) (any, error) {
	s.metrics.resolution(name, d.Lifetime())
	if d.IsTransient() {
		return s.construct(name, index, d, opts)
	}
	return s.getSingleton(name, index, opts)
}
