// Package scoped provides hierarchical service scopes: named registries that resolve
// singleton or transient implementations, walk up to the ancestor that owns a
// singleton, and drive ordered asynchronous calls across every implementation of a
// service.
package scoped

import (
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Target is any value that can carry a Scope. Embed Host to make a type scopable.
type Target interface {
	Scope() *Scope
	attach(s *Scope)
}

// Host carries the Scope attached to its embedding value.
type Host struct {
	scope *Scope
}

// Scope returns the attached scope, or nil if the host has not been scoped.
func (h *Host) Scope() *Scope {
	return h.scope
}

func (h *Host) attach(s *Scope) {
	h.scope = s
}

type instanceSlot struct {
	value any
	set   bool
}

// Scope is a named service registry chained to an optional parent.
// Singletons are cached per owning scope and shared with every descendant that
// resolves through it.
type Scope struct {
	id     string
	name   string
	parent *Scope
	target Target

	services  ServiceMap
	names     []string
	instances map[string][]instanceSlot

	initialized bool
	inited      map[*Descriptor]bool
	handlers    map[string][]Handler

	base    *zap.Logger
	logger  *zap.Logger
	metrics *Metrics
	seq     *sequencer

	mu sync.RWMutex
}

// MakeScope attaches a new scope named name to target. Re-scoping an already
// scoped target is a no-op returning the existing scope. When WithServices is
// supplied the scope is initialized immediately; if that fails the target is left
// unscoped. A typed nil target is rejected with NilTargetError.
func MakeScope(name string, target Target, opts ...Option) (*Scope, error) {
	if target != nil {
		if v := reflect.ValueOf(target); v.Kind() == reflect.Ptr && v.IsNil() {
			return nil, &NilTargetError{Scope: name, Type: v.Type().String()}
		}
		if existing := target.Scope(); existing != nil {
			return existing, nil
		}
	}

	o := &scopeOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	s := &Scope{
		id:        uuid.NewString(),
		name:      name,
		parent:    o.parent,
		target:    target,
		services:  o.services.Clone(),
		instances: make(map[string][]instanceSlot),
		inited:    make(map[*Descriptor]bool),
		handlers:  make(map[string][]Handler),
	}
	for svc := range s.services {
		s.names = append(s.names, svc)
	}
	sort.Strings(s.names)

	logger, metrics := o.logger, o.metrics
	if o.parent != nil {
		if logger == nil {
			logger = o.parent.base
		}
		if metrics == nil {
			metrics = o.parent.metrics
		}
	}
	if logger == nil {
		logger = zap.NewNop().Named("scoped")
	}
	s.base = logger
	s.logger = logger.With(zap.String("scope", name), zap.String("scope_id", s.id))
	s.metrics = metrics
	s.seq = &sequencer{logger: s.logger, metrics: metrics}

	var self any = s
	if target != nil {
		target.attach(s)
		self = target
	}
	s.register(name, NewStatic(self))

	if o.parent != nil {
		s.logger.Debug("scope created", zap.String("parent", o.parent.name))
	} else {
		s.logger.Debug("scope created")
	}

	if o.services != nil {
		if err := s.Initialize(); err != nil {
			if target != nil {
				target.attach(nil)
			}
			return nil, err
		}
	}
	return s, nil
}

// NewScope creates a scope that is its own target.
func NewScope(name string, opts ...Option) (*Scope, error) {
	return MakeScope(name, nil, opts...)
}

// MakeSubScope scopes target as a child of s, starting from a copy of the
// services currently registered on s. A nil target makes the child its own target.
func (s *Scope) MakeSubScope(name string, target Target) (*Scope, error) {
	s.mu.RLock()
	services := s.services.Clone()
	s.mu.RUnlock()

	return MakeScope(name, target, WithServices(services), WithParent(s))
}

// Scope returns s, so a Scope can be passed wherever a Target is expected.
func (s *Scope) Scope() *Scope { return s }

func (s *Scope) attach(*Scope) {}

// ID returns the unique identifier assigned when the scope was created.
func (s *Scope) ID() string { return s.id }

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Target returns the host object the scope is attached to, or the scope itself.
func (s *Scope) Target() any {
	if s.target == nil {
		return s
	}
	return s.target
}

// Logger returns the scope logger.
func (s *Scope) Logger() *zap.Logger { return s.logger }

// Initialized reports whether Initialize has completed at least once.
func (s *Scope) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Has reports whether at least one implementation of name is registered.
func (s *Scope) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.services[name]) > 0
}

// Services returns a copy of the service map.
func (s *Scope) Services() ServiceMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services.Clone()
}

// Register appends d to the implementations of name. If the scope is already
// initialized and d belongs to it, d is initialized right away.
func (s *Scope) Register(name string, d *Descriptor) error {
	if d == nil {
		return &NilDescriptorError{Service: name}
	}

	initNow := s.register(name, d)
	s.logger.Debug("service registered",
		zap.String("service", name),
		zap.Stringer("lifetime", d.Lifetime()),
		zap.String("affinity", d.scope),
	)
	if initNow {
		if err := s.initDescriptor(name, d); err != nil {
			s.release([]pendingInit{{name: name, descriptor: d}})
			return err
		}
	}
	return nil
}

func (s *Scope) register(name string, d *Descriptor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[name]; !ok {
		s.names = append(s.names, name)
	}
	s.services[name] = append(s.services[name], d)

	if s.initialized && d.belongsTo(s.name) && !s.inited[d] {
		s.inited[d] = true
		return true
	}
	return false
}

type pendingInit struct {
	name       string
	descriptor *Descriptor
}

// Initialize runs init hooks and wires event handlers for every descriptor that
// belongs to this scope. Each descriptor is initialized at most once per scope, so
// calling Initialize again only picks up later registrations. When a hook fails,
// the failing descriptor and those after it stay pending and a later call retries
// them.
func (s *Scope) Initialize() error {
	for {
		pending := s.claimPending()
		if len(pending) == 0 {
			break
		}
		for i, p := range pending {
			if err := s.initDescriptor(p.name, p.descriptor); err != nil {
				s.release(pending[i:])
				return err
			}
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

func (s *Scope) claimPending() []pendingInit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []pendingInit
	for _, name := range s.names {
		for _, d := range s.services[name] {
			if s.inited[d] || !d.belongsTo(s.name) {
				continue
			}
			s.inited[d] = true
			pending = append(pending, pendingInit{name: name, descriptor: d})
		}
	}
	return pending
}

// release returns claimed descriptors to the pending set.
func (s *Scope) release(pending []pendingInit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pending {
		delete(s.inited, p.descriptor)
	}
}

func (s *Scope) initDescriptor(name string, d *Descriptor) error {
	if d.onInit != nil {
		if err := d.onInit(s); err != nil {
			return &InitializationError{Service: name, Err: err}
		}
	}
	if len(d.eventOrder) == 0 {
		return nil
	}

	var emitter Emitter = s
	if e, ok := s.target.(Emitter); ok {
		emitter = e
	}
	for _, event := range d.eventOrder {
		for _, h := range d.onEvents[event] {
			emitter.On(event, h)
		}
	}
	s.logger.Debug("event handlers wired", zap.String("service", name), zap.Strings("events", d.eventOrder))
	return nil
}

// On registers handler for event on the scope's own emitter.
func (s *Scope) On(event string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], handler)
}

// Emit calls every handler registered for event, in registration order.
func (s *Scope) Emit(event string, args ...any) {
	s.mu.RLock()
	handlers := append([]Handler(nil), s.handlers[event]...)
	s.mu.RUnlock()

	for _, h := range handlers {
		h(args...)
	}
}

func (s *Scope) descriptors(name string) []*Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Descriptor(nil), s.services[name]...)
}

func (s *Scope) indexOf(name string, d *Descriptor) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, candidate := range s.services[name] {
		if candidate == d {
			return i
		}
	}
	return -1
}
