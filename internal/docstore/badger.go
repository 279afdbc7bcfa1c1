package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
	Rules      Rules
}

// Badger is a Store persisted in an embedded badger database. Keys are
// "collection/id" and values are JSON objects. Document ids are UUIDv7, so
// key order is creation order.
type Badger struct {
	db     *badger.DB
	logger *zap.Logger
	rules  Rules
	hub    *hub

	// lifeMu makes the closed check and wg.Add in start atomic with Close.
	lifeMu   sync.Mutex
	isClosed bool
	closed   chan struct{}
	wg       sync.WaitGroup
}

var _ Store = (*Badger)(nil)

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func Open(opts Options) (*Badger, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("path is required for persistent document store")
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create document store directory %s: %w", opts.Path, err)
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: logger.Named("badger").Sugar()})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Badger{
		db:     db,
		logger: logger,
		rules:  opts.Rules,
		hub:    newHub(),
		closed: make(chan struct{}),
	}, nil
}

// Close stops every listener with ErrUnavailable and closes the database.
func (s *Badger) Close() error {
	s.lifeMu.Lock()
	if s.isClosed {
		s.lifeMu.Unlock()
		return nil
	}
	s.isClosed = true
	close(s.closed)
	s.lifeMu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

// ActiveListeners reports how many live listeners are registered.
func (s *Badger) ActiveListeners() int {
	return s.hub.count()
}

func (s *Badger) ListenQuery(
	ctx context.Context,
	q *Query,
	onSnapshot func(QuerySnapshot),
	onError func(error),
) Handle {
	collection := ""
	if q != nil {
		collection = q.Collection
	}
	l := newListener(collection)

	evaluate := func() (evaluation, error) {
		if err := q.Validate(); err != nil {
			return evaluation{}, err
		}
		snapshot, err := s.Query(ctx, q)
		if err != nil {
			return evaluation{}, err
		}
		return evaluation{
			fingerprint: queryFingerprint(snapshot),
			deliver:     func() { onSnapshot(snapshot) },
		}, nil
	}

	s.start(ctx, l, evaluate, onError)
	return l
}

func (s *Badger) ListenDocument(
	ctx context.Context,
	ref *DocRef,
	onSnapshot func(DocumentSnapshot),
	onError func(error),
) Handle {
	collection := ""
	if ref != nil {
		collection = ref.Collection
	}
	l := newListener(collection)

	evaluate := func() (evaluation, error) {
		snapshot, err := s.Get(ctx, ref)
		if err != nil {
			return evaluation{}, err
		}
		fingerprint := "missing"
		if snapshot.Exists {
			fingerprint = "doc:" + string(snapshot.Data)
		}
		return evaluation{
			fingerprint: fingerprint,
			deliver:     func() { onSnapshot(snapshot) },
		}, nil
	}

	s.start(ctx, l, evaluate, onError)
	return l
}

func (s *Badger) start(
	ctx context.Context,
	l *listener,
	evaluate func() (evaluation, error),
	onError func(error),
) {
	s.lifeMu.Lock()
	if s.isClosed {
		s.lifeMu.Unlock()
		go onError(ErrUnavailable)
		return
	}
	// Registering before the first evaluation means a write that lands in
	// between still wakes the listener.
	s.hub.add(l)
	s.wg.Add(1)
	s.lifeMu.Unlock()

	go runListener(ctx, l, s.closed, evaluate, onError, func() {
		s.hub.remove(l)
		s.wg.Done()
	})
}

func (s *Badger) Query(ctx context.Context, q *Query) (QuerySnapshot, error) {
	if err := q.Validate(); err != nil {
		return QuerySnapshot{}, err
	}
	if err := s.authorize(ctx, Request{
		Operation:  OpList,
		Collection: q.Collection,
		Filters:    q.Filters,
	}); err != nil {
		return QuerySnapshot{}, err
	}

	type row struct {
		doc  Document
		data map[string]any
	}

	prefix := []byte(q.Collection + "/")
	rows := make([]row, 0, 16)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			var data map[string]any
			if err := json.Unmarshal(raw, &data); err != nil {
				s.logger.Warn("skip undecodable document", zap.String("key", string(item.Key())), zap.Error(err))
				continue
			}
			if !matchesFilters(data, q.Filters) {
				continue
			}
			if q.OrderBy != "" {
				if _, ok := lookupField(data, q.OrderBy); !ok {
					continue
				}
			}

			id := strings.TrimPrefix(string(item.Key()), string(prefix))
			rows = append(rows, row{
				doc: Document{
					Ref:  DocRef{Collection: q.Collection, ID: id},
					Data: raw,
				},
				data: data,
			})
		}
		return nil
	})
	if err != nil {
		return QuerySnapshot{}, s.storeError("list "+q.Collection, err)
	}

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i int, j int) bool {
			left, _ := lookupField(rows[i].data, q.OrderBy)
			right, _ := lookupField(rows[j].data, q.OrderBy)
			cmp := compareValues(left, right)
			if q.Direction == Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.doc)
	}
	return QuerySnapshot{Query: q, Docs: docs}, nil
}

func (s *Badger) Get(ctx context.Context, ref *DocRef) (DocumentSnapshot, error) {
	if err := ref.Validate(); err != nil {
		return DocumentSnapshot{}, err
	}
	if err := s.authorize(ctx, Request{
		Operation:  OpGet,
		Collection: ref.Collection,
		ID:         ref.ID,
	}); err != nil {
		return DocumentSnapshot{}, err
	}

	raw, err := s.read(ref)
	if errors.Is(err, ErrNotFound) {
		return DocumentSnapshot{Ref: ref, Exists: false}, nil
	}
	if err != nil {
		return DocumentSnapshot{}, err
	}
	return DocumentSnapshot{Ref: ref, Exists: true, Data: raw}, nil
}

func (s *Badger) Create(ctx context.Context, collection string, data any) (*DocRef, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate document id: %w", err)
	}

	ref := Doc(collection, id.String())
	if err := s.Set(ctx, ref, data); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Badger) Set(ctx context.Context, ref *DocRef, data any) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	object, err := toObject(data)
	if err != nil {
		return err
	}

	existing, err := s.readObject(ref)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	op := OpUpdate
	if existing == nil {
		op = OpCreate
	}
	if err := s.authorize(ctx, Request{
		Operation:  op,
		Collection: ref.Collection,
		ID:         ref.ID,
		Data:       object,
		Existing:   existing,
	}); err != nil {
		return err
	}

	return s.write(ref, object)
}

func (s *Badger) Update(ctx context.Context, ref *DocRef, fields map[string]any) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	patch, err := toObject(fields)
	if err != nil {
		return err
	}

	existing, err := s.readObject(ref)
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(existing)+len(patch))
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range patch {
		merged[key] = value
	}

	if err := s.authorize(ctx, Request{
		Operation:  OpUpdate,
		Collection: ref.Collection,
		ID:         ref.ID,
		Data:       merged,
		Existing:   existing,
	}); err != nil {
		return err
	}

	return s.write(ref, merged)
}

func (s *Badger) Delete(ctx context.Context, ref *DocRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if err := s.authorize(ctx, Request{
		Operation:  OpDelete,
		Collection: ref.Collection,
		ID:         ref.ID,
	}); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ref.Path()))
	})
	if err != nil {
		return s.storeError("delete "+ref.Path(), err)
	}

	s.hub.notify(ref.Collection)
	return nil
}

func (s *Badger) authorize(ctx context.Context, req Request) error {
	if s.rules == nil || isPrivileged(ctx) {
		return nil
	}
	req.UID = UIDFromContext(ctx)
	if err := s.rules(ctx, req); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}

func (s *Badger) read(ref *DocRef) (json.RawMessage, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref.Path()))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Path())
	}
	if err != nil {
		return nil, s.storeError("get "+ref.Path(), err)
	}
	return raw, nil
}

func (s *Badger) readObject(ref *DocRef) (map[string]any, error) {
	raw, err := s.read(ref)
	if err != nil {
		return nil, err
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.Path(), err)
	}
	return object, nil
}

func (s *Badger) write(ref *DocRef, object map[string]any) error {
	raw, err := json.Marshal(object)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref.Path(), err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ref.Path()), raw)
	})
	if err != nil {
		return s.storeError("write "+ref.Path(), err)
	}

	s.hub.notify(ref.Collection)
	return nil
}

func (s *Badger) storeError(op string, err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toObject(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil || object == nil {
		return nil, fmt.Errorf("document must be a JSON object")
	}
	return object, nil
}

func queryFingerprint(snapshot QuerySnapshot) string {
	var b strings.Builder
	for _, doc := range snapshot.Docs {
		b.WriteString(doc.Ref.ID)
		b.WriteByte(0)
		b.Write(doc.Data)
		b.WriteByte(0)
	}
	return b.String()
}
