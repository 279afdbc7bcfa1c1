package agency

import (
	"context"
	"sync"
	"testing"
	"time"

	"agency/internal/binding"
	"agency/internal/docstore"
	"agency/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const waitFor = 2 * time.Second

const tick = 10 * time.Millisecond

func newIdentity(t *testing.T, store docstore.Store) *identity.Local {
	t.Helper()
	return identity.NewLocal(identity.Options{Store: store, Cost: bcrypt.MinCost})
}

type statusLog struct {
	mu       sync.Mutex
	statuses []AdminStatus
}

func (l *statusLog) record(status AdminStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, status)
}

func (l *statusLog) all() []AdminStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AdminStatus(nil), l.statuses...)
}

func TestAdminWatcherGrantsAdmin(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	provider := newIdentity(t, store)
	ctx := context.Background()

	session, err := provider.SignUp(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.GrantAdmin(ctx, session.User.UID, session.User.Email))

	log := &statusLog{}
	watcher := WatchAdmin(ctx, store, provider, session.Token, binding.Config{}, log.record)
	defer watcher.Close()

	require.Eventually(t, func() bool {
		return watcher.Status() == AdminStatus{IsAdmin: true}
	}, waitFor, tick)
	assert.Equal(t, session.User.UID, watcher.UID())

	statuses := log.all()
	require.NotEmpty(t, statuses)
	assert.Equal(t, AdminStatus{IsLoading: true}, statuses[0], "role lookup starts loading")

	require.NoError(t, provider.SignOut(ctx, session.Token))
	require.Eventually(t, func() bool {
		return watcher.Status() == AdminStatus{}
	}, waitFor, tick)
	assert.Empty(t, watcher.UID())
}

func TestAdminWatcherRegularUser(t *testing.T) {
	store := newStore(t)
	provider := newIdentity(t, store)
	ctx := context.Background()

	session, err := provider.SignUp(ctx, "talent@example.com", "secret1")
	require.NoError(t, err)

	watcher := WatchAdmin(ctx, store, provider, session.Token, binding.Config{}, nil)
	defer watcher.Close()

	require.Eventually(t, func() bool {
		return watcher.Status() == AdminStatus{}
	}, waitFor, tick)
}

func TestAdminWatcherWithoutSession(t *testing.T) {
	store := newStore(t)
	provider := newIdentity(t, store)

	log := &statusLog{}
	watcher := WatchAdmin(context.Background(), store, provider, "", binding.Config{}, log.record)
	defer watcher.Close()

	assert.Equal(t, AdminStatus{}, watcher.Status())
	assert.Equal(t, []AdminStatus{{}}, log.all())
}

func TestAdminWatcherStopsWithContext(t *testing.T) {
	store := newStore(t)
	provider := newIdentity(t, store)
	ctx, cancel := context.WithCancel(context.Background())

	session, err := provider.SignUp(ctx, "talent@example.com", "secret1")
	require.NoError(t, err)

	watcher := WatchAdmin(ctx, store, provider, session.Token, binding.Config{}, nil)
	require.Eventually(t, func() bool { return !watcher.Status().IsLoading }, waitFor, tick)

	cancel()
	require.Eventually(t, func() bool { return store.ActiveListeners() == 0 }, waitFor, tick)
}

func TestDashboardFollowsStore(t *testing.T) {
	store := newStore(t)
	svc := newService(t, store)
	ctx := context.Background()
	_, err := Seed(ctx, store, nil)
	require.NoError(t, err)

	dashboard := NewDashboard(adminContext(t, svc), store, binding.Config{}, nil)
	defer dashboard.Close()

	assert.True(t, dashboard.Stats().IsLoading)
	require.Eventually(t, func() bool {
		stats := dashboard.Stats()
		return !stats.IsLoading && stats.TotalTalents == 4 && stats.TotalMessages == 3
	}, waitFor, tick)

	stats := dashboard.Stats()
	assert.Nil(t, stats.Err)
	assert.Equal(t, 3, stats.ApprovedTalents)
	assert.Equal(t, 1, stats.PendingTalents)
	assert.Equal(t, 2, stats.UnreadMessages)
	require.Len(t, stats.RecentMessages, 3)
	assert.Equal(t, "msg001", stats.RecentMessages[0].ID)

	_, err = svc.CreateMessage(ctx, ContactInput{
		Name:    "Grace",
		Email:   "grace@example.com",
		Subject: "Campaign booking",
		Message: "Looking to book two models for March.",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stats := dashboard.Stats()
		return stats.TotalMessages == 4 && stats.UnreadMessages == 3 &&
			len(stats.RecentMessages) == 4 && stats.RecentMessages[0].Name == "Grace"
	}, waitFor, tick)
}

func TestDashboardReportsPermissionErrors(t *testing.T) {
	store := newStore(t)
	dashboard := NewDashboard(docstore.WithUID(context.Background(), "u1"), store, binding.Config{}, nil)
	defer dashboard.Close()

	require.Eventually(t, func() bool {
		stats := dashboard.Stats()
		return !stats.IsLoading && stats.Err != nil
	}, waitFor, tick)
	assert.Equal(t, binding.KindPermissionDenied, dashboard.Stats().Err.Kind)
}
