package scoped

// Step is one unit of a CallService or Lifecycle chain. It must invoke done exactly
// once, either before returning or later from any goroutine.
type Step func(ctx *Context, done func(error))

// Handler receives events emitted on a scope.
type Handler func(args ...any)

// InitHook runs once per owning scope when the scope is initialized.
type InitHook func(s *Scope) error

// MethodProvider lets a service expose named steps to CallService and Lifecycle
// without relying on reflection. Returning nil means the method is absent.
type MethodProvider interface {
	Method(name string) Step
}

// PropertyInjector receives injected properties declared with InjectProperty.
// Instances that do not implement it get exported struct fields set directly.
type PropertyInjector interface {
	InjectProperty(name string, value any) error
}

// Emitter is the event-dispatch capability a scope's host object may provide.
// When the host does not implement it, handlers are wired onto the scope itself.
type Emitter interface {
	On(event string, handler Handler)
}

// Lifetime defines the caching behavior of a descriptor.
type Lifetime string

// Available lifetimes
const (
	// LifetimeSingleton caches one instance per owning scope
	LifetimeSingleton Lifetime = "singleton"
	// LifetimeTransient creates a new instance for each resolution
	LifetimeTransient Lifetime = "transient"
	// LifetimeStatic resolves to the registered value itself
	LifetimeStatic Lifetime = "static"
)

func (l Lifetime) String() string {
	return string(l)
}
