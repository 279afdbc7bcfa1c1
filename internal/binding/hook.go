package binding

import (
	"context"
	"sync"

	"agency/internal/docstore"
)

// hook is the subscription state machine shared by Collection and Document.
type hook[T any] struct {
	kind string

	mu       sync.Mutex
	gen      uint64
	key      string
	handle   docstore.Handle
	state    State[T]
	closed   bool
	observer func(State[T])

	stopAfter func() bool
}

func (h *hook[T]) init(ctx context.Context, kind string, observer func(State[T]), closeFn func()) {
	h.kind = kind
	h.observer = observer
	h.stopAfter = context.AfterFunc(ctx, closeFn)
}

func (h *hook[T]) State() State[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Key is the descriptor key the hook is bound to, empty when idle.
func (h *hook[T]) Key() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.key
}

// rebind moves the hook to the descriptor identified by key. An unchanged key
// is a no-op, so a memoized descriptor never opens a second listener.
func (h *hook[T]) rebind(key string, open func(gen uint64) docstore.Handle) {
	h.mu.Lock()
	if h.closed || key == h.key {
		h.mu.Unlock()
		return
	}

	h.gen++
	gen := h.gen
	previous := h.handle
	h.handle = nil
	h.key = key

	var zero T
	h.state = State[T]{Data: zero, IsLoading: key != ""}
	h.emitLocked()
	h.mu.Unlock()

	h.release(previous)
	if key == "" {
		return
	}

	handle := open(gen)

	h.mu.Lock()
	if h.closed || h.gen != gen {
		h.mu.Unlock()
		handle.Unsubscribe()
		return
	}
	h.handle = handle
	activeSubscriptions.WithLabelValues(h.kind).Inc()
	h.mu.Unlock()
}

// apply mutates state on behalf of the listener opened at gen.
func (h *hook[T]) apply(gen uint64, mutate func(state *State[T])) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || gen != h.gen {
		discardedCallbacks.WithLabelValues(h.kind).Inc()
		return false
	}

	mutate(&h.state)
	h.emitLocked()
	return true
}

func (h *hook[T]) fail(gen uint64, info *ErrorInfo) {
	applied := h.apply(gen, func(state *State[T]) {
		state.IsLoading = false
		state.Err = info
	})
	if applied {
		subscriptionErrors.WithLabelValues(h.kind, string(info.Kind)).Inc()
	}
}

func (h *hook[T]) emitLocked() {
	if h.observer != nil {
		h.observer(h.state)
	}
}

// close cancels the active listener. Once it returns no observer call is made.
func (h *hook[T]) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.gen++
	previous := h.handle
	h.handle = nil
	h.mu.Unlock()

	if h.stopAfter != nil {
		h.stopAfter()
	}
	h.release(previous)
}

func (h *hook[T]) release(handle docstore.Handle) {
	if handle == nil {
		return
	}
	handle.Unsubscribe()
	activeSubscriptions.WithLabelValues(h.kind).Dec()
}
