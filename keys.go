package scoped

import (
	"fmt"
	"reflect"
)

// Key is a typed handle for a service name.
type Key[T any] struct {
	name string
}

// NewKey returns a handle for the service registered under name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the service name.
func (k Key[T]) Name() string {
	return k.name
}

func (k Key[T]) typeName() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func (k Key[T]) cast(v any) (T, error) {
	var zero T
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Service: k.name, Expected: k.typeName(), Got: fmt.Sprintf("%T", v)}
	}
	return typed, nil
}

// Provide registers d under key and returns the key for later resolution.
func Provide[T any](s *Scope, key Key[T], d *Descriptor) (Key[T], error) {
	return key, s.Register(key.name, d)
}

// Resolve is the typed form of Scope.Require. The boolean is false when nothing
// is registered under key.
func Resolve[T any](s *Scope, key Key[T], opts ...any) (T, bool, error) {
	var zero T
	v, err := s.Require(key.name, opts...)
	if err != nil {
		return zero, false, err
	}
	if v == nil {
		return zero, false, nil
	}
	typed, err := key.cast(v)
	if err != nil {
		return zero, false, err
	}
	return typed, true, nil
}

// ResolveAll is the typed form of Scope.GetServices.
func ResolveAll[T any](s *Scope, key Key[T], opts ...any) ([]T, error) {
	instances, err := s.GetServices(key.name, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(instances))
	for _, v := range instances {
		typed, err := key.cast(v)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}
