package binding

import (
	"context"

	"agency/internal/docstore"
)

// Collection keeps a live, decoded view of a multi-document query.
type Collection[D any] struct {
	hook[[]D]

	ctx   context.Context
	store docstore.Store
	cfg   Config
}

// NewCollection returns an idle hook. ctx carries the caller's identity to
// the store and bounds the hook's lifetime: when ctx is done the hook closes.
// observer may be nil.
func NewCollection[D any](
	ctx context.Context,
	store docstore.Store,
	cfg Config,
	observer func(State[[]D]),
) *Collection[D] {
	c := &Collection[D]{
		ctx:   ctx,
		store: store,
		cfg:   cfg,
	}
	c.init(ctx, "collection", observer, c.Close)
	return c
}

// Bind points the hook at q. A nil q means "do not subscribe" and leaves the
// hook idle. Binding a query with the same key as the current one is a no-op.
func (c *Collection[D]) Bind(q *docstore.Query) {
	key := ""
	if q != nil {
		key = q.Key()
	}

	c.rebind(key, func(gen uint64) docstore.Handle {
		errCtx := ErrorContext{Path: q.Path(), Operation: docstore.OpList}
		return c.store.ListenQuery(c.ctx, q,
			func(snapshot docstore.QuerySnapshot) {
				docs := decodeSnapshot[D](c.cfg, snapshot)
				applied := c.apply(gen, func(state *State[[]D]) {
					state.Data = docs
					state.IsLoading = false
					state.Err = nil
				})
				if applied {
					deliveredSnapshots.WithLabelValues("collection").Inc()
				}
			},
			func(err error) {
				c.fail(gen, Classify(err, errCtx))
			},
		)
	})
}

// Close cancels the subscription. No observer call happens after Close
// returns and later Bind calls are ignored.
func (c *Collection[D]) Close() {
	c.close()
}
