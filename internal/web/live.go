package web

import (
	"net/http"
	"sync"

	"agency/framework"
	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/web/appcore"
	"agency/internal/web/components"
	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

const (
	talentGridID     = "talent-grid"
	dashboardStatsID = "dashboard-stats"
)

// latest hands the newest value from a hook observer to the stream loop.
// Observers run under the hook lock, so put never blocks; values that are
// overwritten before the loop wakes up are skipped.
type latest[T any] struct {
	mu    sync.Mutex
	value T
	ready chan struct{}
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ready: make(chan struct{}, 1)}
}

func (l *latest[T]) put(value T) {
	l.mu.Lock()
	l.value = value
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest[T]) take() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// serveDirectoryLive patches the talent grid on every state of the directory
// subscription. The client reopens the stream when its filter signals change.
func serveDirectoryLive(
	runtime framework.RuntimeContext[*appcore.Context],
	w http.ResponseWriter,
	r *http.Request,
	_ framework.EmptyParams,
) error {
	appCtx := runtime.AppContext()

	var signals appcore.DirectorySignalState
	if err := datastar.ReadSignals(r, &signals); err != nil {
		runtime.RespondBadRequest(w, "invalid signals")
		return nil
	}
	state := appcore.ParseDirectorySignals(signals)

	ctx := r.Context()
	updates := newLatest[binding.State[[]agency.Talent]]()
	hook := binding.NewCollection[agency.Talent](ctx, appCtx.Store(), appCtx.Binding(), updates.put)
	defer hook.Close()
	hook.Bind(agency.TalentDirectory(state.Category))

	sse := runtime.OpenLive(w, r)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates.ready:
			view := appcore.NewDirectoryPageView(appcore.Chrome{}, state, updates.take())
			if !patch(appCtx, sse, components.TalentGrid(view), talentGridID) {
				return nil
			}
		}
	}
}

// serveDashboardLive keeps the dashboard counters current for as long as
// the session holds the admin role.
func serveDashboardLive(
	runtime framework.RuntimeContext[*appcore.Context],
	w http.ResponseWriter,
	r *http.Request,
	_ framework.EmptyParams,
) error {
	appCtx := runtime.AppContext()
	adminCtx, err := appCtx.AdminContext(r.Context(), r)
	if err != nil {
		return err
	}

	ctx := r.Context()
	revoked := make(chan struct{}, 1)
	watcher := agency.WatchAdmin(ctx, appCtx.Store(), appCtx.Identity(), appCtx.SessionToken(r), appCtx.Binding(), func(status agency.AdminStatus) {
		if status.IsLoading || status.IsAdmin {
			return
		}
		select {
		case revoked <- struct{}{}:
		default:
		}
	})
	defer watcher.Close()

	updates := newLatest[agency.DashboardStats]()
	dashboard := agency.NewDashboard(adminCtx, appCtx.Store(), appCtx.Binding(), updates.put)
	defer dashboard.Close()

	sse := runtime.OpenLive(w, r)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-revoked:
			appCtx.Logger().Info("dashboard stream closed: admin role gone")
			return nil
		case <-updates.ready:
			if !patch(appCtx, sse, components.DashboardStats(updates.take()), dashboardStatsID) {
				return nil
			}
		}
	}
}

func patch(appCtx *appcore.Context, sse *datastar.ServerSentEventGenerator, component templ.Component, selectorID string) bool {
	if err := sse.PatchElementTempl(component, datastar.WithSelectorID(selectorID)); err != nil {
		appCtx.Logger().Debug("live patch stopped", zap.String("selector", selectorID), zap.Error(err))
		return false
	}
	return true
}
