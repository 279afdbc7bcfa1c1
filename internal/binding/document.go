package binding

import (
	"context"

	"agency/internal/docstore"
	"go.uber.org/zap"
)

// Document keeps a live, decoded view of one document. A document that does
// not exist resolves to {Data: nil, IsLoading: false, Err: nil}.
type Document[D any] struct {
	hook[*D]

	ctx   context.Context
	store docstore.Store
	cfg   Config
}

func NewDocument[D any](
	ctx context.Context,
	store docstore.Store,
	cfg Config,
	observer func(State[*D]),
) *Document[D] {
	d := &Document[D]{
		ctx:   ctx,
		store: store,
		cfg:   cfg,
	}
	d.init(ctx, "document", observer, d.Close)
	return d
}

func (d *Document[D]) Bind(ref *docstore.DocRef) {
	key := ""
	if ref != nil {
		key = ref.Key()
	}

	d.rebind(key, func(gen uint64) docstore.Handle {
		errCtx := ErrorContext{Path: ref.Path(), Operation: docstore.OpGet}
		return d.store.ListenDocument(d.ctx, ref,
			func(snapshot docstore.DocumentSnapshot) {
				if !snapshot.Exists {
					d.settle(gen, nil)
					return
				}

				value, err := Decode[D](d.cfg.validate(), ref.ID, snapshot.Data)
				if err != nil {
					d.cfg.logger().Warn("reject malformed document",
						zap.String("path", ref.Path()),
						zap.Error(err),
					)
					rejectedDocuments.WithLabelValues(ref.Collection).Inc()
					d.fail(gen, Classify(err, errCtx))
					return
				}
				d.settle(gen, &value)
			},
			func(err error) {
				d.fail(gen, Classify(err, errCtx))
			},
		)
	})
}

func (d *Document[D]) settle(gen uint64, value *D) {
	applied := d.apply(gen, func(state *State[*D]) {
		state.Data = value
		state.IsLoading = false
		state.Err = nil
	})
	if applied {
		deliveredSnapshots.WithLabelValues("document").Inc()
	}
}

func (d *Document[D]) Close() {
	d.close()
}
