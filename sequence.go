package scoped

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Sequence is a prebuilt chain of steps. It may be run any number of times. A nil
// context is replaced by a fresh one for each run.
type Sequence func(ctx *Context, done func(error))

// Run executes the sequence and blocks until it finishes.
func (seq Sequence) Run(ctx *Context) error {
	result := make(chan error, 1)
	seq(ctx, func(err error) {
		result <- err
	})
	return <-result
}

// sequencer executes steps strictly one after another. Each step is started by a
// single driver goroutine only after the previous step reported back, so chains of
// any length run without growing the stack.
type sequencer struct {
	logger  *zap.Logger
	metrics *Metrics
}

func (q *sequencer) run(steps []Step, ctx *Context, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	if len(steps) == 0 {
		done(nil)
		return
	}
	go q.drive(steps, ctx.orNew(), done)
}

func (q *sequencer) drive(steps []Step, ctx *Context, done func(error)) {
	results := make(chan error, 1)
	for i, step := range steps {
		var once sync.Once
		next := func(err error) {
			once.Do(func() {
				results <- err
			})
		}

		q.invoke(i, step, ctx, next)

		if err := <-results; err != nil {
			q.metrics.step("error")
			q.logger.Warn("step failed, aborting sequence",
				zap.Int("step", i),
				zap.Int("steps", len(steps)),
				zap.Error(err),
			)
			done(err)
			return
		}
		q.metrics.step("ok")
	}
	done(nil)
}

func (q *sequencer) invoke(i int, step Step, ctx *Context, next func(error)) {
	defer func() {
		if r := recover(); r != nil {
			next(&StepPanicError{Step: i, Value: r})
		}
	}()
	step(ctx, next)
}

// methodOf returns the named step exposed by instance, or nil when it has none.
func methodOf(instance any, method string) Step {
	if instance == nil {
		return nil
	}
	if provider, ok := instance.(MethodProvider); ok {
		return provider.Method(method)
	}

	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return nil
	}
	if fn, ok := m.Interface().(func(*Context, func(error))); ok {
		return fn
	}
	return nil
}

func (s *Scope) bindMethod(name, method string) ([]Step, error) {
	instances, err := s.GetServices(name)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(instances))
	for i, instance := range instances {
		step := methodOf(instance, method)
		if step == nil {
			s.logger.Debug("implementation lacks method, skipping",
				zap.String("service", name),
				zap.String("method", method),
				zap.Int("index", i),
			)
			continue
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// CallService calls method on every implementation of name, in registration
// order, one at a time. Implementations without the method are skipped. The first
// error aborts the chain and is passed to done; resolution errors are reported
// through done as well.
func (s *Scope) CallService(name, method string, ctx *Context, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	steps, err := s.bindMethod(name, method)
	if err != nil {
		done(err)
		return
	}
	s.seq.run(steps, ctx, done)
}

// Lifecycle builds a reusable Sequence from parts. A pair of strings
// (service, method) expands to one step per implementation resolved now; a Step,
// Sequence or func(*Context, func(error)) is used as a single step.
func (s *Scope) Lifecycle(parts ...any) (Sequence, error) {
	var steps []Step
	for i := 0; i < len(parts); {
		switch p := parts[i].(type) {
		case string:
			if i+1 >= len(parts) {
				return nil, &InvalidLifecycleError{Position: i, Reason: fmt.Sprintf("service %q has no method", p)}
			}
			method, ok := parts[i+1].(string)
			if !ok {
				return nil, &InvalidLifecycleError{Position: i + 1, Reason: fmt.Sprintf("expected method name, got %T", parts[i+1])}
			}
			bound, err := s.bindMethod(p, method)
			if err != nil {
				return nil, err
			}
			steps = append(steps, bound...)
			i += 2
			continue
		case Step:
			if p == nil {
				return nil, &InvalidLifecycleError{Position: i, Reason: "nil step"}
			}
			steps = append(steps, p)
		case Sequence:
			if p == nil {
				return nil, &InvalidLifecycleError{Position: i, Reason: "nil sequence"}
			}
			steps = append(steps, Step(p))
		case func(*Context, func(error)):
			if p == nil {
				return nil, &InvalidLifecycleError{Position: i, Reason: "nil step"}
			}
			steps = append(steps, p)
		default:
			return nil, &InvalidLifecycleError{Position: i, Reason: fmt.Sprintf("unsupported %T", p)}
		}
		i++
	}

	s.logger.Debug("lifecycle built", zap.Int("steps", len(steps)))
	return func(ctx *Context, done func(error)) {
		s.seq.run(steps, ctx, done)
	}, nil
}
