package scoped

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"go.uber.org/zap"
)

// construct builds one instance of d for the service name registered at index.
// It performs constructor or property injection but never caches.
func (s *Scope) construct(name string, index int, d *Descriptor, opts []any) (any, error) {
	if d == nil {
		return nil, nil
	}

	key := s.id + ":" + name + ":" + strconv.Itoa(index)
	if err := startResolving(key, name); err != nil {
		return nil, err
	}
	defer finishResolving(key)

	var (
		instance any
		err      error
	)
	switch {
	case d.kind == kindStatic || d.kind == kindProperties:
		instance = d.value
	case d.static && d.kind == kindInjectFactory:
		instance = d.injectFactory
	case d.static:
		instance = d.factory
	case d.kind == kindInjectFactory:
		instance, err = s.constructInjected(name, d, opts)
	default:
		instance, err = s.constructDefault(name, d, opts)
	}
	if err != nil {
		return nil, err
	}

	for _, p := range d.properties {
		dep, err := s.Require(p.service)
		if err != nil {
			return nil, err
		}
		if err := injectProperty(instance, p.property, dep); err != nil {
			return nil, &PropertyInjectionError{Property: p.property, Service: p.service, Err: err}
		}
	}

	if !d.IsStatic() {
		s.metrics.construction(name)
		s.logger.Debug("service constructed",
			zap.String("service", name),
			zap.Int("index", index),
			zap.Stringer("lifetime", d.Lifetime()),
		)
	}
	return instance, nil
}

func (s *Scope) constructInjected(name string, d *Descriptor, opts []any) (any, error) {
	if d.injectFactory == nil {
		return nil, &ConstructionError{Service: name, Err: errors.New("nil factory")}
	}

	args := make([]any, 0, len(d.inject)+1)
	for _, dep := range d.inject {
		v, err := s.Require(dep)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if len(opts) > 0 {
		args = append(args, opts[0])
	}

	instance, err := d.injectFactory(args...)
	if err != nil {
		return nil, &ConstructionError{Service: name, Err: err}
	}
	return instance, nil
}

func (s *Scope) constructDefault(name string, d *Descriptor, opts []any) (any, error) {
	if d.factory == nil {
		return nil, &ConstructionError{Service: name, Err: errors.New("nil factory")}
	}

	var options any
	if len(opts) > 0 {
		options = opts[0]
	}
	instance, err := d.factory(s, options)
	if err != nil {
		return nil, &ConstructionError{Service: name, Err: err}
	}
	return instance, nil
}

// injectProperty assigns value onto the named property of instance, overwriting
// whatever was there.
func injectProperty(instance any, property string, value any) error {
	if injector, ok := instance.(PropertyInjector); ok {
		return injector.InjectProperty(property, value)
	}

	rv := reflect.ValueOf(instance)
	if rv.Kind() == reflect.Map {
		return injectEntry(rv, property, value)
	}
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target %T is not a pointer to struct or a map", instance)
	}

	field := rv.Elem().FieldByName(property)
	if !field.IsValid() {
		return fmt.Errorf("%T has no field %s", instance, property)
	}
	if !field.CanSet() {
		return fmt.Errorf("field %s is not settable (not exported?)", property)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	vv := reflect.ValueOf(value)
	if !vv.Type().AssignableTo(field.Type()) {
		return fmt.Errorf("resolved type %v is not assignable to field type %v", vv.Type(), field.Type())
	}
	field.Set(vv)
	return nil
}

// injectEntry stores value under property in a string-keyed map.
func injectEntry(m reflect.Value, property string, value any) error {
	if m.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("map %v is not keyed by string", m.Type())
	}
	if m.IsNil() {
		return fmt.Errorf("map %v is nil", m.Type())
	}

	elem := m.Type().Elem()
	vv := reflect.Zero(elem)
	if value != nil {
		vv = reflect.ValueOf(value)
		if !vv.Type().AssignableTo(elem) {
			return fmt.Errorf("resolved type %v is not assignable to map element type %v", vv.Type(), elem)
		}
	}
	m.SetMapIndex(reflect.ValueOf(property).Convert(m.Type().Key()), vv)
	return nil
}
