package docstore

import (
	"context"
	"sync"
)

type listener struct {
	collection string
	wake       chan struct{}
	stop       chan struct{}
	stopOnce   sync.Once
}

func newListener(collection string) *listener {
	return &listener{
		collection: collection,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

func (l *listener) Unsubscribe() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

func (l *listener) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *listener) stopped(ctx context.Context) bool {
	select {
	case <-l.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// hub fans write notifications out to the listeners of a collection. A
// notification only wakes a listener; the listener re-reads the store itself,
// so bursts of writes collapse into one evaluation.
type hub struct {
	mu           sync.Mutex
	byCollection map[string]map[*listener]struct{}
}

func newHub() *hub {
	return &hub{byCollection: make(map[string]map[*listener]struct{})}
}

func (h *hub) add(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.byCollection[l.collection]
	if !ok {
		set = make(map[*listener]struct{})
		h.byCollection[l.collection] = set
	}
	set[l] = struct{}{}
}

func (h *hub) remove(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.byCollection[l.collection]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(h.byCollection, l.collection)
	}
}

func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for l := range h.byCollection[collection] {
		l.notify()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, set := range h.byCollection {
		total += len(set)
	}
	return total
}

// evaluation is one read of a listener's target. fingerprint identifies the
// result so unchanged results are not delivered twice.
type evaluation struct {
	fingerprint string
	deliver     func()
}

// runListener evaluates immediately, then again after every wake until the
// listener is stopped, ctx ends, the store closes or an error is delivered.
func runListener(
	ctx context.Context,
	l *listener,
	closed <-chan struct{},
	evaluate func() (evaluation, error),
	onError func(error),
	done func(),
) {
	defer done()

	delivered := false
	last := ""
	for {
		result, err := evaluate()
		if l.stopped(ctx) {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		if !delivered || result.fingerprint != last {
			result.deliver()
			delivered = true
			last = result.fingerprint
		}

		select {
		case <-l.wake:
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		case <-closed:
			if !l.stopped(ctx) {
				onError(ErrUnavailable)
			}
			return
		}
	}
}
