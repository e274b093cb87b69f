package scoped

import (
	"fmt"
	"strings"
)

// ScopeNotFoundError is returned when a singleton's owning scope cannot be reached
// by walking the parent chain from the requesting scope.
type ScopeNotFoundError struct {
	Service string
	Scope   string
}

func (e *ScopeNotFoundError) Error() string {
	return fmt.Sprintf("service %s requires scope %s, which is not an ancestor of the requesting scope", e.Service, e.Scope)
}

// CircularDependencyError represents a circular dependency detected during resolution.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// NilDescriptorError represents an attempt to register a nil descriptor.
type NilDescriptorError struct {
	Service string
}

func (e *NilDescriptorError) Error() string {
	return fmt.Sprintf("nil descriptor provided for service: %s", e.Service)
}

// NilTargetError is returned when a typed nil pointer is passed as a scope target.
type NilTargetError struct {
	Scope string
	Type  string
}

func (e *NilTargetError) Error() string {
	return fmt.Sprintf("cannot attach scope %s to nil %s", e.Scope, e.Type)
}

// ConstructionError represents a factory failure.
type ConstructionError struct {
	Service string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction failed for service %s: %v", e.Service, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// InitializationError represents an init hook failure.
type InitializationError struct {
	Service string
	Err     error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for service %s: %v", e.Service, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// PropertyInjectionError represents a failure to assign an injected property.
type PropertyInjectionError struct {
	Property string
	Service  string
	Err      error
}

func (e *PropertyInjectionError) Error() string {
	return fmt.Sprintf("cannot inject service %s into property %s: %v", e.Service, e.Property, e.Err)
}

func (e *PropertyInjectionError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a type assertion failure on a typed key.
type TypeMismatchError struct {
	Service  string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for service %s: expected %s, got %s", e.Service, e.Expected, e.Got)
}

// InvalidLifecycleError represents a malformed Lifecycle argument list.
type InvalidLifecycleError struct {
	Position int
	Reason   string
}

func (e *InvalidLifecycleError) Error() string {
	return fmt.Sprintf("invalid lifecycle argument at position %d: %s", e.Position, e.Reason)
}

// StepPanicError wraps a panic raised inside a sequence step.
type StepPanicError struct {
	Step  int
	Value any
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %d panicked: %v", e.Step, e.Value)
}
