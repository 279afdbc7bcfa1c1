package binding

import (
	"sync"

	"agency/internal/docstore"
	"github.com/goccy/go-reflect"
)

// Memo caches a descriptor and rebuilds it only when one of its dependencies
// changes. Dependencies compare shallowly: slices, maps, pointers, channels
// and funcs by identity, everything else with ==.
type Memo[D any] struct {
	mu    sync.Mutex
	ready bool
	deps  []any
	value D
}

func (m *Memo[D]) Get(build func() D, deps ...any) D {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready && sameDeps(m.deps, deps) {
		return m.value
	}

	m.value = build()
	m.deps = append([]any(nil), deps...)
	m.ready = true
	return m.value
}

// MemoizeQuery is Memo.Get for collection descriptors. A nil result from
// build is kept as nil, which hooks treat as "do not subscribe".
func MemoizeQuery(m *Memo[*docstore.Query], build func() *docstore.Query, deps ...any) *docstore.Query {
	return m.Get(build, deps...)
}

func MemoizeDoc(m *Memo[*docstore.DocRef], build func() *docstore.DocRef, deps ...any) *docstore.DocRef {
	return m.Get(build, deps...)
}

func sameDeps(previous []any, next []any) bool {
	if len(previous) != len(next) {
		return false
	}
	for idx := range previous {
		if !sameDep(previous[idx], next[idx]) {
			return false
		}
	}
	return true
}

func sameDep(left any, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	leftValue := reflect.ValueOf(left)
	rightValue := reflect.ValueOf(right)
	if leftValue.Type() != rightValue.Type() {
		return false
	}

	switch leftValue.Kind() {
	case reflect.Slice:
		return leftValue.Pointer() == rightValue.Pointer() && leftValue.Len() == rightValue.Len()
	case reflect.Map, reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return leftValue.Pointer() == rightValue.Pointer()
	}

	if !leftValue.Type().Comparable() {
		return false
	}
	return safeEqual(left, right)
}

// safeEqual guards == for comparable structs whose interface fields hold
// uncomparable values.
func safeEqual(left any, right any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return left == right
}
