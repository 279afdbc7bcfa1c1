package binding

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"agency/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func names(state State[[]talent]) []string {
	if state.Data == nil {
		return nil
	}
	out := make([]string, 0, len(state.Data))
	for _, item := range state.Data {
		out = append(out, item.Name)
	}
	return out
}

func approvedTalents() *docstore.Query {
	return docstore.Collection("talents").Where("approved", true)
}

func TestCollectionNullThenQueryTransitions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := &fakeStore{}
	rec := &recorder[[]talent]{}
	hook := NewCollection[talent](context.Background(), store, Config{}, rec.observe)
	defer hook.Close()

	assert.Equal(t, State[[]talent]{}, hook.State())

	hook.Bind(nil)
	assert.Empty(t, store.opened(), "nil descriptor must not subscribe")
	assert.Empty(t, rec.all())

	hook.Bind(approvedTalents())
	store.last(t).snapshot(talentDoc("t1", "Ana", "model"), talentDoc("t2", "Ben", "artist"))

	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, State[[]talent]{IsLoading: true}, states[0])
	assert.False(t, states[1].IsLoading)
	assert.Nil(t, states[1].Err)
	assert.Equal(t, []string{"Ana", "Ben"}, names(states[1]))
	assert.Equal(t, "t1", states[1].Data[0].ID)
}

func TestCollectionRebindNeverShowsStaleData(t *testing.T) {
	store := &fakeStore{}
	rec := &recorder[[]talent]{}
	hook := NewCollection[talent](context.Background(), store, Config{}, rec.observe)
	defer hook.Close()

	d0 := approvedTalents().Where("category", "model")
	d1 := approvedTalents().Where("category", "artist")
	d2 := approvedTalents().Where("category", "photographer")

	hook.Bind(d0)
	l0 := store.last(t)
	l0.snapshot(talentDoc("m1", "Model One", "model"))

	hook.Bind(d1)
	l1 := store.last(t)
	assert.True(t, l0.unsubscribed.Load(), "previous listener must be cancelled")
	l0.snapshot(talentDoc("m2", "Late Model", "model"))
	l1.snapshot(talentDoc("a1", "Artist One", "artist"))

	hook.Bind(nil)
	assert.True(t, l1.unsubscribed.Load())
	l1.snapshot(talentDoc("a2", "Late Artist", "artist"))

	hook.Bind(d2)
	l2 := store.last(t)
	l0.fail(docstore.ErrUnavailable)
	l1.snapshot(talentDoc("a3", "Later Artist", "artist"))
	l2.snapshot(talentDoc("p1", "Photographer One", "photographer"))

	require.Len(t, store.opened(), 3)

	states := rec.all()
	loading := 0
	for _, state := range states {
		if state.IsLoading {
			loading++
			assert.Nil(t, state.Data)
		}
		assert.Nil(t, state.Err, "errors from superseded listeners must be dropped")
		for _, name := range names(state) {
			assert.NotContains(t, []string{"Late Model", "Late Artist", "Later Artist"}, name)
		}
	}
	assert.Equal(t, 3, loading, "one loading transition per non-nil descriptor")

	assert.Equal(t, []State[[]talent]{
		{IsLoading: true},
		{Data: []talent{{ID: "m1", Name: "Model One", Category: "model", Approved: true}}},
		{IsLoading: true},
		{Data: []talent{{ID: "a1", Name: "Artist One", Category: "artist", Approved: true}}},
		{},
		{IsLoading: true},
		{Data: []talent{{ID: "p1", Name: "Photographer One", Category: "photographer", Approved: true}}},
	}, states)
}

func TestCollectionEquivalentDescriptorDoesNotResubscribe(t *testing.T) {
	store := &fakeStore{}
	hook := NewCollection[talent](context.Background(), store, Config{}, nil)
	defer hook.Close()

	hook.Bind(approvedTalents().Where("category", "model"))
	store.last(t).snapshot(talentDoc("m1", "Model One", "model"))

	hook.Bind(docstore.Collection("talents").Where("category", "model").Where("approved", true))

	require.Len(t, store.opened(), 1)
	assert.False(t, store.last(t).unsubscribed.Load())
	assert.Equal(t, []string{"Model One"}, names(hook.State()))
}

func TestCollectionErrorKeepsLastSnapshot(t *testing.T) {
	store := &fakeStore{}
	hook := NewCollection[talent](context.Background(), store, Config{}, nil)
	defer hook.Close()

	hook.Bind(approvedTalents())
	listener := store.last(t)
	listener.snapshot(talentDoc("t1", "Ana", "model"))
	listener.fail(docstore.ErrPermissionDenied)

	state := hook.State()
	assert.False(t, state.IsLoading)
	assert.Equal(t, []string{"Ana"}, names(state))
	require.NotNil(t, state.Err)
	assert.Equal(t, KindPermissionDenied, state.Err.Kind)
	assert.Equal(t, ErrorContext{Path: "talents", Operation: docstore.OpList}, state.Err.Context)
}

func TestCollectionErrorBeforeDataLeavesDataNil(t *testing.T) {
	store := &fakeStore{}
	hook := NewCollection[talent](context.Background(), store, Config{}, nil)
	defer hook.Close()

	hook.Bind(docstore.Collection("messages"))
	store.last(t).fail(docstore.ErrUnavailable)

	state := hook.State()
	assert.Nil(t, state.Data)
	assert.False(t, state.IsLoading)
	require.NotNil(t, state.Err)
	assert.Equal(t, KindNetwork, state.Err.Kind)
}

func TestCollectionEmptyResultIsNotNil(t *testing.T) {
	store := &fakeStore{}
	hook := NewCollection[talent](context.Background(), store, Config{}, nil)
	defer hook.Close()

	hook.Bind(approvedTalents())
	store.last(t).snapshot()

	state := hook.State()
	assert.NotNil(t, state.Data)
	assert.Empty(t, state.Data)
}

func TestCollectionRejectsMalformedDocuments(t *testing.T) {
	store := &fakeStore{}
	hook := NewCollection[talent](context.Background(), store, Config{Logger: zaptest.NewLogger(t)}, nil)
	defer hook.Close()

	hook.Bind(approvedTalents())
	store.last(t).snapshot(
		talentDoc("t1", "Ana", "model"),
		docstore.Document{Ref: docstore.DocRef{Collection: "talents", ID: "bad"}, Data: json.RawMessage(`{"name": 42}`)},
		docstore.Document{Ref: docstore.DocRef{Collection: "talents", ID: "blank"}, Data: json.RawMessage(`{"category": "model"}`)},
		talentDoc("t2", "Ben", "artist"),
	)

	assert.Equal(t, []string{"Ana", "Ben"}, names(hook.State()))
}

func TestCollectionCloseSuppressesLateSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := &fakeStore{}
	rec := &recorder[[]talent]{}
	hook := NewCollection[talent](context.Background(), store, Config{}, rec.observe)

	hook.Bind(approvedTalents())
	listener := store.last(t)

	var wg sync.WaitGroup
	wg.Add(1)
	time.AfterFunc(100*time.Millisecond, func() {
		defer wg.Done()
		listener.snapshot(talentDoc("t1", "Ana", "model"))
	})

	time.Sleep(50 * time.Millisecond)
	hook.Close()
	wg.Wait()

	assert.True(t, listener.unsubscribed.Load())
	assert.Equal(t, []State[[]talent]{{IsLoading: true}}, rec.all())
	assert.Equal(t, State[[]talent]{IsLoading: true}, hook.State())

	hook.Bind(approvedTalents().Take(3))
	assert.Len(t, store.opened(), 1, "a closed hook ignores Bind")
}

func TestCollectionClosesWhenContextEnds(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeStore{}
	rec := &recorder[[]talent]{}
	hook := NewCollection[talent](ctx, store, Config{}, rec.observe)

	hook.Bind(approvedTalents())
	listener := store.last(t)

	cancel()
	require.Eventually(t, listener.unsubscribed.Load, time.Second, 5*time.Millisecond)

	listener.snapshot(talentDoc("t1", "Ana", "model"))
	assert.Len(t, rec.all(), 1)
}

func TestCollectionFollowsBadgerStore(t *testing.T) {
	store, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	hook := NewCollection[talent](ctx, store, Config{}, nil)
	defer hook.Close()

	hook.Bind(approvedTalents())
	require.Eventually(t, func() bool {
		state := hook.State()
		return !state.IsLoading && state.Data != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = store.Create(ctx, "talents", talent{Name: "Ana", Category: "model", Approved: true})
	require.NoError(t, err)
	_, err = store.Create(ctx, "talents", talent{Name: "Hidden", Category: "model"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "talents", talent{Name: "Ben", Category: "artist", Approved: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"Ana", "Ben"}, names(hook.State()))
	}, 2*time.Second, 10*time.Millisecond)
}
