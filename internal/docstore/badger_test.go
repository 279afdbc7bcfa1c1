package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestStore(t *testing.T, rules Rules) *Badger {
	t.Helper()

	store, err := Open(Options{InMemory: true, Logger: zaptest.NewLogger(t), Rules: rules})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type talentDoc struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Approved bool   `json:"approved"`
	Rate     int    `json:"rate"`
}

func decodeNames(t *testing.T, snapshot QuerySnapshot) []string {
	t.Helper()

	names := make([]string, 0, len(snapshot.Docs))
	for _, doc := range snapshot.Docs {
		var value talentDoc
		require.NoError(t, json.Unmarshal(doc.Data, &value))
		names = append(names, value.Name)
	}
	return names
}

func TestCreateGetAndMissingDocument(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	ref, err := store.Create(ctx, "talents", talentDoc{Name: "Ana", Category: "model"})
	require.NoError(t, err)
	assert.Equal(t, "talents", ref.Collection)
	assert.NotEmpty(t, ref.ID)

	snapshot, err := store.Get(ctx, ref)
	require.NoError(t, err)
	require.True(t, snapshot.Exists)
	assert.JSONEq(t, `{"name":"Ana","category":"model","approved":false,"rate":0}`, string(snapshot.Data))

	missing, err := store.Get(ctx, Doc("talents", "nobody"))
	require.NoError(t, err)
	assert.False(t, missing.Exists)
	assert.Nil(t, missing.Data)
}

func TestQueryFiltersOrderAndLimit(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	for _, talent := range []talentDoc{
		{Name: "Ana", Category: "model", Approved: true, Rate: 300},
		{Name: "Ben", Category: "artist", Approved: true, Rate: 100},
		{Name: "Cleo", Category: "model", Approved: false, Rate: 200},
		{Name: "Dev", Category: "model", Approved: true, Rate: 50},
	} {
		_, err := store.Create(ctx, "talents", talent)
		require.NoError(t, err)
	}

	approved, err := store.Query(ctx, Collection("talents").Where("approved", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Ben", "Dev"}, decodeNames(t, approved))

	models, err := store.Query(ctx, Collection("talents").Where("approved", true).Where("category", "model"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Dev"}, decodeNames(t, models))

	byRate, err := store.Query(ctx, Collection("talents").Order("rate", Descending).Take(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Cleo"}, decodeNames(t, byRate))

	limited, err := store.Query(ctx, Collection("talents").Take(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, decodeNames(t, limited))
}

func TestUpdateMergesFieldsAndRejectsMissing(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	ref, err := store.Create(ctx, "talents", talentDoc{Name: "Ana", Category: "model"})
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, ref, map[string]any{"approved": true}))
	snapshot, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana","category":"model","approved":true,"rate":0}`, string(snapshot.Data))

	err = store.Update(ctx, Doc("talents", "missing"), map[string]any{"approved": true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListenQueryDeliversInitialAndChangedSnapshots(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	snapshots := make(chan QuerySnapshot, 8)
	handle := store.ListenQuery(ctx, Collection("talents").Where("approved", true),
		func(snapshot QuerySnapshot) { snapshots <- snapshot },
		func(err error) { t.Errorf("unexpected listener error: %v", err) },
	)
	defer handle.Unsubscribe()

	first := receiveSnapshot(t, snapshots)
	assert.Empty(t, first.Docs)

	ref, err := store.Create(ctx, "talents", talentDoc{Name: "Ana", Approved: true})
	require.NoError(t, err)
	second := receiveSnapshot(t, snapshots)
	assert.Equal(t, []string{"Ana"}, decodeNames(t, second))

	// An unapproved talent does not change the result, so nothing is delivered.
	_, err = store.Create(ctx, "talents", talentDoc{Name: "Ben"})
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, ref, map[string]any{"name": "Ana B"}))
	third := receiveSnapshot(t, snapshots)
	assert.Equal(t, []string{"Ana B"}, decodeNames(t, third))
}

func TestListenDocumentReportsMissingThenCreated(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	snapshots := make(chan DocumentSnapshot, 8)
	handle := store.ListenDocument(ctx, Doc("roles_admin", "u1"),
		func(snapshot DocumentSnapshot) { snapshots <- snapshot },
		func(err error) { t.Errorf("unexpected listener error: %v", err) },
	)
	defer handle.Unsubscribe()

	select {
	case snapshot := <-snapshots:
		assert.False(t, snapshot.Exists)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial document snapshot")
	}

	require.NoError(t, store.Set(ctx, Doc("roles_admin", "u1"), map[string]any{"grantedAt": "now"}))
	select {
	case snapshot := <-snapshots:
		assert.True(t, snapshot.Exists)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for created document snapshot")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := openTestStore(t, nil)
	ctx := context.Background()

	snapshots := make(chan QuerySnapshot, 8)
	handle := store.ListenQuery(ctx, Collection("messages"),
		func(snapshot QuerySnapshot) { snapshots <- snapshot },
		func(error) {},
	)
	receiveSnapshot(t, snapshots)

	handle.Unsubscribe()
	handle.Unsubscribe()
	require.Eventually(t, func() bool { return store.ActiveListeners() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err := store.Create(ctx, "messages", map[string]any{"subject": "hi"})
	require.NoError(t, err)

	select {
	case <-snapshots:
		t.Fatal("did not expect a snapshot after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRulesDenyListenAndWrites(t *testing.T) {
	rules := func(_ context.Context, req Request) error {
		if req.Collection == "messages" && req.UID != "admin" {
			return errors.New("messages are admin only")
		}
		return nil
	}
	store := openTestStore(t, rules)

	errs := make(chan error, 1)
	handle := store.ListenQuery(WithUID(context.Background(), "u1"), Collection("messages"),
		func(QuerySnapshot) { t.Error("did not expect a snapshot") },
		func(err error) { errs <- err },
	)
	defer handle.Unsubscribe()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrPermissionDenied)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for permission error")
	}

	_, err := store.Create(WithUID(context.Background(), "u1"), "messages", map[string]any{"subject": "x"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = store.Create(Privileged(context.Background()), "messages", map[string]any{"subject": "x"})
	assert.NoError(t, err)

	snapshot, err := store.Query(WithUID(context.Background(), "admin"), Collection("messages"))
	require.NoError(t, err)
	assert.Len(t, snapshot.Docs, 1)
}

func TestCloseFailsActiveListenersAsUnavailable(t *testing.T) {
	store, err := Open(Options{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	snapshots := make(chan QuerySnapshot, 1)
	errs := make(chan error, 1)
	store.ListenQuery(context.Background(), Collection("talents"),
		func(snapshot QuerySnapshot) { snapshots <- snapshot },
		func(err error) { errs <- err },
	)
	receiveSnapshot(t, snapshots)

	require.NoError(t, store.Close())
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unavailable error")
	}
}

func TestListenersRacingCloseAllFinish(t *testing.T) {
	store, err := Open(Options{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	const listeners = 32
	errs := make(chan error, listeners)
	var started sync.WaitGroup
	started.Add(listeners)
	for i := 0; i < listeners; i++ {
		go func() {
			defer started.Done()
			store.ListenDocument(context.Background(), Doc("talents", "ana"),
				func(DocumentSnapshot) {},
				func(err error) { errs <- err },
			)
		}()
	}

	require.NoError(t, store.Close())
	started.Wait()
	require.NoError(t, store.Close())

	for i := 0; i < listeners; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrUnavailable)
		case <-time.After(2 * time.Second):
			t.Fatalf("listener %d never reported unavailable", i)
		}
	}
}

func TestListenAfterCloseReportsUnavailable(t *testing.T) {
	store, err := Open(Options{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	errs := make(chan error, 1)
	store.ListenQuery(context.Background(), Collection("talents"),
		func(QuerySnapshot) { t.Error("no snapshot expected after close") },
		func(err error) { errs <- err },
	)
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unavailable error")
	}
	assert.Zero(t, store.ActiveListeners())
}

func receiveSnapshot(t *testing.T, snapshots <-chan QuerySnapshot) QuerySnapshot {
	t.Helper()

	select {
	case snapshot := <-snapshots:
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return QuerySnapshot{}
	}
}
