package appcore

import (
	"context"

	"agency/internal/agency"
	"agency/internal/binding"
	"agency/internal/docstore"
)

// Server-rendered pages read through the same hooks the live routes use:
// bind, wait for the first settled state, close.

func settleCollection[D any](ctx context.Context, c *Context, q *docstore.Query) (binding.State[[]D], error) {
	if q == nil {
		return binding.State[[]D]{}, nil
	}

	settled := make(chan binding.State[[]D], 1)
	hook := binding.NewCollection[D](ctx, c.store, c.binding, func(state binding.State[[]D]) {
		if state.IsLoading {
			return
		}
		select {
		case settled <- state:
		default:
		}
	})
	defer hook.Close()
	hook.Bind(q)

	select {
	case state := <-settled:
		return state, nil
	case <-ctx.Done():
		return binding.State[[]D]{}, ctx.Err()
	}
}

func settleDocument[D any](ctx context.Context, c *Context, ref *docstore.DocRef) (binding.State[*D], error) {
	if ref == nil {
		return binding.State[*D]{}, nil
	}

	settled := make(chan binding.State[*D], 1)
	hook := binding.NewDocument[D](ctx, c.store, c.binding, func(state binding.State[*D]) {
		if state.IsLoading {
			return
		}
		select {
		case settled <- state:
		default:
		}
	})
	defer hook.Close()
	hook.Bind(ref)

	select {
	case state := <-settled:
		return state, nil
	case <-ctx.Done():
		return binding.State[*D]{}, ctx.Err()
	}
}

func settleAdmin(ctx context.Context, c *Context, token string) (agency.AdminStatus, error) {
	settled := make(chan agency.AdminStatus, 1)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := agency.WatchAdmin(watchCtx, c.store, c.identity, token, c.binding, func(status agency.AdminStatus) {
		if status.IsLoading {
			return
		}
		select {
		case settled <- status:
		default:
		}
	})
	defer watcher.Close()

	select {
	case status := <-settled:
		return status, nil
	case <-ctx.Done():
		return agency.AdminStatus{}, ctx.Err()
	}
}

func settleDashboard(ctx context.Context, c *Context) (agency.DashboardStats, error) {
	settled := make(chan agency.DashboardStats, 1)
	dashboard := agency.NewDashboard(ctx, c.store, c.binding, func(stats agency.DashboardStats) {
		if stats.IsLoading {
			return
		}
		select {
		case settled <- stats:
		default:
		}
	})
	defer dashboard.Close()

	select {
	case stats := <-settled:
		return stats, nil
	case <-ctx.Done():
		return agency.DashboardStats{}, ctx.Err()
	}
}
