package scoped

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var goroutinePrefix = []byte("goroutine ")

// goid returns the current goroutine ID. Resolution chains are tracked per
// goroutine because factories call back into Require without passing any state.
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	id, _ := strconv.ParseInt(string(field), 10, 64)
	return id
}

// resolutionState is the chain of services being constructed on one goroutine.
type resolutionState struct {
	chain map[string]bool
	path  []string
}

var (
	resolutionStates sync.Map
	statePool        = sync.Pool{
		New: func() any {
			return &resolutionState{
				chain: make(map[string]bool, 8),
				path:  make([]string, 0, 8),
			}
		},
	}
)

// startResolving marks key as under construction on the calling goroutine.
func startResolving(key, label string) error {
	id := goid()
	v, ok := resolutionStates.Load(id)
	if !ok {
		v = statePool.Get()
		resolutionStates.Store(id, v)
	}
	state := v.(*resolutionState)

	if state.chain[key] {
		path := append(append([]string(nil), state.path...), label)
		return &CircularDependencyError{Path: path}
	}
	state.chain[key] = true
	state.path = append(state.path, label)
	return nil
}

func finishResolving(key string) {
	id := goid()
	v, ok := resolutionStates.Load(id)
	if !ok {
		return
	}
	state := v.(*resolutionState)
	delete(state.chain, key)
	if len(state.path) > 0 {
		state.path = state.path[:len(state.path)-1]
	}

	if len(state.chain) == 0 {
		resolutionStates.Delete(id)
		state.path = state.path[:0]
		statePool.Put(state)
	}
}
