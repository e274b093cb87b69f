package scoped

// Factory builds an instance from the requesting scope and the caller's options.
// options is nil when the caller supplied none.
type Factory func(s *Scope, options any) (any, error)

// InjectFactory builds an instance from dependencies resolved in declared order,
// followed by the caller's options when supplied.
type InjectFactory func(args ...any) (any, error)

type descriptorKind int

const (
	kindFactory descriptorKind = iota
	kindInjectFactory
	kindStatic
	kindProperties
)

type propertyBinding struct {
	property string
	service  string
}

// Descriptor is one registered implementation of a service.
// Create descriptors with NewFactory, NewInjectFactory, NewStatic or NewProperties.
type Descriptor struct {
	kind          descriptorKind
	factory       Factory
	injectFactory InjectFactory
	value         any

	scope      string
	transient  bool
	static     bool
	inject     []string
	properties []propertyBinding
	onInit     InitHook
	onEvents   map[string][]Handler
	eventOrder []string
}

// DescriptorOption configures a Descriptor.
type DescriptorOption func(*Descriptor)

// InScope pins a singleton to the nearest ancestor scope with the given name.
func InScope(name string) DescriptorOption {
	return func(d *Descriptor) {
		d.scope = name
	}
}

// Transient makes every resolution produce a new instance.
func Transient() DescriptorOption {
	return func(d *Descriptor) {
		d.transient = true
	}
}

// Static marks a factory descriptor as never constructed. It resolves to the
// factory function itself, the same value on every call.
func Static() DescriptorOption {
	return func(d *Descriptor) {
		d.static = true
	}
}

// InjectProperty assigns the instance of service onto property after construction.
func InjectProperty(property, service string) DescriptorOption {
	return func(d *Descriptor) {
		d.properties = append(d.properties, propertyBinding{property: property, service: service})
	}
}

// OnInit registers a hook run when the owning scope initializes.
func OnInit(hook InitHook) DescriptorOption {
	return func(d *Descriptor) {
		d.onInit = hook
	}
}

// OnEvent wires handler to event on the owning scope when it initializes.
func OnEvent(event string, handler Handler) DescriptorOption {
	return func(d *Descriptor) {
		if d.onEvents == nil {
			d.onEvents = make(map[string][]Handler)
		}
		if _, ok := d.onEvents[event]; !ok {
			d.eventOrder = append(d.eventOrder, event)
		}
		d.onEvents[event] = append(d.onEvents[event], handler)
	}
}

func newDescriptor(kind descriptorKind, opts []DescriptorOption) *Descriptor {
	d := &Descriptor{kind: kind}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFactory registers fn as a constructor called with (scope, options).
func NewFactory(fn Factory, opts ...DescriptorOption) *Descriptor {
	d := newDescriptor(kindFactory, opts)
	d.factory = fn
	return d
}

// NewInjectFactory registers fn as a constructor receiving the services named in
// inject, resolved in order.
func NewInjectFactory(inject []string, fn InjectFactory, opts ...DescriptorOption) *Descriptor {
	d := newDescriptor(kindInjectFactory, opts)
	d.inject = append([]string(nil), inject...)
	d.injectFactory = fn
	return d
}

// NewStatic registers value as its own singleton instance.
func NewStatic(value any, opts ...DescriptorOption) *Descriptor {
	d := newDescriptor(kindStatic, opts)
	d.value = value
	return d
}

// NewProperties registers value as a non-constructible object whose declared
// properties are injected on resolution.
func NewProperties(value any, opts ...DescriptorOption) *Descriptor {
	d := newDescriptor(kindProperties, opts)
	d.value = value
	return d
}

// Scope returns the name of the scope the descriptor must live in, or "".
func (d *Descriptor) Scope() string {
	return d.scope
}

// Inject returns the constructor injection list.
func (d *Descriptor) Inject() []string {
	return append([]string(nil), d.inject...)
}

// IsStatic reports whether resolution returns a fixed value without construction.
func (d *Descriptor) IsStatic() bool {
	return d.static || d.kind == kindStatic || d.kind == kindProperties
}

// IsTransient reports whether the descriptor is never cached.
func (d *Descriptor) IsTransient() bool {
	return d.transient
}

// Lifetime reports how resolutions of the descriptor are cached.
func (d *Descriptor) Lifetime() Lifetime {
	switch {
	case d.IsStatic():
		return LifetimeStatic
	case d.transient:
		return LifetimeTransient
	default:
		return LifetimeSingleton
	}
}

// belongsTo reports whether the descriptor is initialized by a scope named name.
func (d *Descriptor) belongsTo(name string) bool {
	return d.scope == "" || d.scope == name
}

// ServiceMap maps a service name to its implementations in registration order.
type ServiceMap map[string][]*Descriptor

// Clone returns a copy whose lists can grow independently while still sharing
// the descriptors.
func (m ServiceMap) Clone() ServiceMap {
	out := make(ServiceMap, len(m))
	for name, list := range m {
		out[name] = append([]*Descriptor(nil), list...)
	}
	return out
}
