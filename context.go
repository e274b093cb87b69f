package scoped

import (
	"context"
	"sync"
)

// Context is the value shared by every step of a CallService or Lifecycle chain.
// Steps publish results with Set and read them back with Value; lookups that miss
// fall through to the wrapped context.Context, so deadlines and request values
// reach every step.
type Context struct {
	context.Context

	mu     sync.RWMutex
	values map[any]any
}

// NewContext wraps parent. A nil parent is replaced by context.Background.
func NewContext(parent context.Context) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{Context: parent, values: make(map[any]any)}
}

// Set stores val under key, replacing any earlier value. Later steps of the same
// run observe it.
func (c *Context) Set(key, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = val
}

// Value returns the value stored with Set, falling back to the wrapped context.
// It is safe to call on a nil *Context.
func (c *Context) Value(key any) any {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	val, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return val
	}
	if c.Context != nil {
		return c.Context.Value(key)
	}
	return nil
}

// orNew returns c, or a fresh background Context when c is nil, so steps can
// always publish values.
func (c *Context) orNew() *Context {
	if c == nil {
		return NewContext(nil)
	}
	return c
}
