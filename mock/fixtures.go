package mock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/centraunit/scoped"
)

// Recorder collects markers from steps in the order they ran.
type Recorder struct {
	mu      sync.Mutex
	markers []string
	active  int32
	overlap bool
}

func (r *Recorder) Add(marker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, marker)
}

// Enter and Leave bracket a step so tests can detect overlapping execution.
func (r *Recorder) Enter() {
	if atomic.AddInt32(&r.active, 1) > 1 {
		r.mu.Lock()
		r.overlap = true
		r.mu.Unlock()
	}
}

func (r *Recorder) Leave() {
	atomic.AddInt32(&r.active, -1)
}

func (r *Recorder) Markers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.markers...)
}

func (r *Recorder) Overlapped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlap
}

// Database is a dependency-free service.
type Database struct {
	DSN       string
	Connected bool
}

// NewDatabase is a scoped.Factory; options, when a string, becomes the DSN.
func NewDatabase(s *scoped.Scope, options any) (any, error) {
	db := &Database{Connected: true, DSN: "memory"}
	if dsn, ok := options.(string); ok {
		db.DSN = dsn
	}
	return db, nil
}

// Cache depends on Database through constructor injection.
type Cache struct {
	DB      *Database
	Options any
	Args    int
}

// NewCache is a scoped.InjectFactory expecting a *Database and optional options.
func NewCache(args ...any) (any, error) {
	c := &Cache{Args: len(args)}
	if len(args) > 0 {
		db, ok := args[0].(*Database)
		if !ok && args[0] != nil {
			return nil, fmt.Errorf("expected *Database, got %T", args[0])
		}
		c.DB = db
	}
	if len(args) > 1 {
		c.Options = args[1]
	}
	return c, nil
}

// Repository receives its dependencies through property injection.
type Repository struct {
	DB    *Database
	Cache *Cache
	name  string
}

// Settings implements scoped.PropertyInjector instead of exposing fields.
type Settings struct {
	Injected map[string]any
}

func (s *Settings) InjectProperty(name string, value any) error {
	if s.Injected == nil {
		s.Injected = make(map[string]any)
	}
	s.Injected[name] = value
	return nil
}

// Counter counts how many instances a factory built.
type Counter struct {
	n int64
}

func (c *Counter) Count() int64 {
	return atomic.LoadInt64(&c.n)
}

// Factory returns a scoped.Factory producing a fresh *Database per call.
func (c *Counter) Factory() scoped.Factory {
	return func(s *scoped.Scope, options any) (any, error) {
		atomic.AddInt64(&c.n, 1)
		return &Database{DSN: fmt.Sprintf("db-%d", c.Count())}, nil
	}
}

// Worker records its Start and Stop calls.
type Worker struct {
	Name     string
	Recorder *Recorder
	// Async completes the step from another goroutine.
	Async bool
	// Fail is returned from Start when set.
	Fail error
}

func (w *Worker) Start(ctx *scoped.Context, done func(error)) {
	w.run("Start", w.Fail, done)
}

func (w *Worker) Stop(ctx *scoped.Context, done func(error)) {
	w.run("Stop", nil, done)
}

// Describe has the wrong signature and is never treated as a step.
func (w *Worker) Describe() string {
	return w.Name
}

func (w *Worker) run(phase string, fail error, done func(error)) {
	w.Recorder.Enter()
	w.Recorder.Add(w.Name + "." + phase)
	finish := func() {
		w.Recorder.Leave()
		done(fail)
	}
	if w.Async {
		go finish()
		return
	}
	finish()
}

// Plugin exposes steps through scoped.MethodProvider.
type Plugin struct {
	Name     string
	Recorder *Recorder
}

func (p *Plugin) Method(name string) scoped.Step {
	if name != "start" {
		return nil
	}
	return func(ctx *scoped.Context, done func(error)) {
		p.Recorder.Add(p.Name + ".start")
		done(nil)
	}
}

// App is a host object that can carry a scope.
type App struct {
	scoped.Host
	Title string
}

// Bus is a host object with its own event dispatch.
type Bus struct {
	scoped.Host
	mu       sync.Mutex
	handlers map[string][]scoped.Handler
}

func (b *Bus) On(event string, handler scoped.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string][]scoped.Handler)
	}
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) Fire(event string, args ...any) {
	b.mu.Lock()
	handlers := append([]scoped.Handler(nil), b.handlers[event]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(args...)
	}
}
