package agency

import (
	"context"
	"sync"

	"agency/internal/binding"
	"agency/internal/docstore"
	"agency/internal/identity"
)

type AdminStatus struct {
	IsAdmin   bool
	IsLoading bool
}

// AdminWatcher follows the signed-in user of a session and the existence of
// their roles_admin document. It reports loading while either the user or
// the role document is still loading.
type AdminWatcher struct {
	mu          sync.Mutex
	userLoading bool
	uid         string
	role        binding.State[*AdminRole]
	last        *AdminStatus
	observer    func(AdminStatus)

	memo     binding.Memo[*docstore.DocRef]
	roleHook *binding.Document[AdminRole]
	stop     func()
	stopOnce sync.Once
}

// WatchAdmin starts watching. The role document is read with a privileged
// context: it is the server checking the session's own role. The watcher
// stops when ctx is done or Close is called.
func WatchAdmin(
	ctx context.Context,
	store docstore.Store,
	provider identity.Provider,
	token string,
	cfg binding.Config,
	observer func(AdminStatus),
) *AdminWatcher {
	w := &AdminWatcher{
		userLoading: true,
		observer:    observer,
	}
	w.roleHook = binding.NewDocument[AdminRole](docstore.Privileged(ctx), store, cfg, w.onRole)
	w.stop = provider.Watch(token, w.onUser)
	context.AfterFunc(ctx, w.Close)
	return w
}

func (w *AdminWatcher) onUser(user *identity.User) {
	uid := ""
	if user != nil {
		uid = user.UID
	}

	w.mu.Lock()
	w.userLoading = false
	w.uid = uid
	w.mu.Unlock()

	roleRef := binding.MemoizeDoc(&w.memo, func() *docstore.DocRef {
		return AdminRoleRef(uid)
	}, uid)
	w.roleHook.Bind(roleRef)
	w.emit()
}

// onRole runs under the role hook's lock, so it only records the state.
func (w *AdminWatcher) onRole(state binding.State[*AdminRole]) {
	w.mu.Lock()
	w.role = state
	w.mu.Unlock()
	w.emit()
}

func (w *AdminWatcher) Status() AdminStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

func (w *AdminWatcher) UID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uid
}

func (w *AdminWatcher) statusLocked() AdminStatus {
	return AdminStatus{
		IsAdmin:   w.role.Data != nil,
		IsLoading: w.userLoading || w.role.IsLoading,
	}
}

func (w *AdminWatcher) emit() {
	w.mu.Lock()
	status := w.statusLocked()
	if w.last != nil && *w.last == status {
		w.mu.Unlock()
		return
	}
	w.last = &status
	observer := w.observer
	w.mu.Unlock()

	if observer != nil {
		observer(status)
	}
}

func (w *AdminWatcher) Close() {
	w.stopOnce.Do(func() {
		w.stop()
		w.roleHook.Close()
	})
}
