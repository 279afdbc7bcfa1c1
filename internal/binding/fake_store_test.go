package binding

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"agency/internal/docstore"
	"github.com/stretchr/testify/require"
)

// fakeStore hands out listeners whose callbacks the test fires by hand, so a
// test can deliver events after Unsubscribe the way a slow network would.
type fakeStore struct {
	docstore.Store

	mu        sync.Mutex
	listeners []*fakeListener
}

type fakeListener struct {
	key          string
	onQuery      func(docstore.QuerySnapshot)
	onDocument   func(docstore.DocumentSnapshot)
	onError      func(error)
	unsubscribed atomic.Bool
}

func (l *fakeListener) Unsubscribe() {
	l.unsubscribed.Store(true)
}

func (l *fakeListener) snapshot(docs ...docstore.Document) {
	l.onQuery(docstore.QuerySnapshot{Docs: docs})
}

func (l *fakeListener) document(exists bool, data string) {
	snapshot := docstore.DocumentSnapshot{Exists: exists}
	if exists {
		snapshot.Data = json.RawMessage(data)
	}
	l.onDocument(snapshot)
}

func (l *fakeListener) fail(err error) {
	l.onError(err)
}

func (s *fakeStore) ListenQuery(
	_ context.Context,
	q *docstore.Query,
	onSnapshot func(docstore.QuerySnapshot),
	onError func(error),
) docstore.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &fakeListener{key: q.Key(), onQuery: onSnapshot, onError: onError}
	s.listeners = append(s.listeners, l)
	return l
}

func (s *fakeStore) ListenDocument(
	_ context.Context,
	ref *docstore.DocRef,
	onSnapshot func(docstore.DocumentSnapshot),
	onError func(error),
) docstore.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &fakeListener{key: ref.Key(), onDocument: onSnapshot, onError: onError}
	s.listeners = append(s.listeners, l)
	return l
}

func (s *fakeStore) opened() []*fakeListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeListener(nil), s.listeners...)
}

func (s *fakeStore) last(t *testing.T) *fakeListener {
	t.Helper()

	listeners := s.opened()
	require.NotEmpty(t, listeners, "expected an open listener")
	return listeners[len(listeners)-1]
}

type talent struct {
	ID       string `json:"-"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	Approved bool   `json:"approved"`
}

func (t *talent) SetDocumentID(id string) {
	t.ID = id
}

func talentDoc(id string, name string, category string) docstore.Document {
	raw, _ := json.Marshal(talent{Name: name, Category: category, Approved: true})
	return docstore.Document{
		Ref:  docstore.DocRef{Collection: "talents", ID: id},
		Data: raw,
	}
}

// recorder collects every state an observer sees.
type recorder[T any] struct {
	mu     sync.Mutex
	states []State[T]
}

func (r *recorder[T]) observe(state State[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder[T]) all() []State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State[T](nil), r.states...)
}
