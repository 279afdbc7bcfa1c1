package agency

import (
	"context"
	"sync"

	"agency/internal/binding"
	"agency/internal/docstore"
)

type DashboardStats struct {
	TotalTalents    int
	ApprovedTalents int
	PendingTalents  int
	TotalMessages   int
	UnreadMessages  int
	RecentMessages  []Message
	IsLoading       bool
	// Err is the first subscription error, in the order the panels render.
	Err *binding.ErrorInfo
}

// Dashboard binds one collection hook per admin dashboard panel and keeps
// the aggregate counts current. ctx must carry an admin identity.
type Dashboard struct {
	mu       sync.Mutex
	talents  [3]binding.State[[]Talent]
	messages [3]binding.State[[]Message]
	observer func(DashboardStats)

	talentHooks  []*binding.Collection[Talent]
	messageHooks []*binding.Collection[Message]
}

const (
	panelAllTalents = iota
	panelApproved
	panelPending
)

const (
	panelAllMessages = iota
	panelUnread
	panelRecent
)

func NewDashboard(ctx context.Context, store docstore.Store, cfg binding.Config, observer func(DashboardStats)) *Dashboard {
	d := &Dashboard{observer: observer}

	talentQueries := []*docstore.Query{AllTalents(), ApprovedTalents(), PendingTalents()}
	for idx, q := range talentQueries {
		hook := binding.NewCollection[Talent](ctx, store, cfg, d.talentObserver(idx))
		d.talentHooks = append(d.talentHooks, hook)
		hook.Bind(q)
	}

	messageQueries := []*docstore.Query{AllMessages(), UnreadMessages(), RecentMessages()}
	for idx, q := range messageQueries {
		hook := binding.NewCollection[Message](ctx, store, cfg, d.messageObserver(idx))
		d.messageHooks = append(d.messageHooks, hook)
		hook.Bind(q)
	}

	return d
}

func (d *Dashboard) talentObserver(idx int) func(binding.State[[]Talent]) {
	return func(state binding.State[[]Talent]) {
		d.mu.Lock()
		d.talents[idx] = state
		stats := d.statsLocked()
		observer := d.observer
		d.mu.Unlock()

		if observer != nil {
			observer(stats)
		}
	}
}

func (d *Dashboard) messageObserver(idx int) func(binding.State[[]Message]) {
	return func(state binding.State[[]Message]) {
		d.mu.Lock()
		d.messages[idx] = state
		stats := d.statsLocked()
		observer := d.observer
		d.mu.Unlock()

		if observer != nil {
			observer(stats)
		}
	}
}

func (d *Dashboard) Stats() DashboardStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statsLocked()
}

func (d *Dashboard) statsLocked() DashboardStats {
	stats := DashboardStats{
		TotalTalents:    len(d.talents[panelAllTalents].Data),
		ApprovedTalents: len(d.talents[panelApproved].Data),
		PendingTalents:  len(d.talents[panelPending].Data),
		TotalMessages:   len(d.messages[panelAllMessages].Data),
		UnreadMessages:  len(d.messages[panelUnread].Data),
		RecentMessages:  d.messages[panelRecent].Data,
	}

	for _, state := range d.talents {
		stats.IsLoading = stats.IsLoading || state.IsLoading
		if stats.Err == nil {
			stats.Err = state.Err
		}
	}
	for _, state := range d.messages {
		stats.IsLoading = stats.IsLoading || state.IsLoading
		if stats.Err == nil {
			stats.Err = state.Err
		}
	}
	return stats
}

func (d *Dashboard) Close() {
	for _, hook := range d.talentHooks {
		hook.Close()
	}
	for _, hook := range d.messageHooks {
		hook.Close()
	}
}
