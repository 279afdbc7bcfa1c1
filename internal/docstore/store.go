// Package docstore is the document store behind the site: collections of
// JSON documents with equality queries, live listeners and plain writes.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("document store unavailable")
)

// Document is one stored document as returned by a query.
type Document struct {
	Ref  DocRef
	Data json.RawMessage
}

func (d Document) ID() string {
	return d.Ref.ID
}

// QuerySnapshot holds the documents matching a query in store order.
type QuerySnapshot struct {
	Query *Query
	Docs  []Document
}

// DocumentSnapshot is the current state of one document. Exists is false
// when the document is absent; that is not an error.
type DocumentSnapshot struct {
	Ref    *DocRef
	Exists bool
	Data   json.RawMessage
}

// Handle cancels a live listener. Unsubscribe is idempotent and does not wait
// for an in-flight callback to return.
type Handle interface {
	Unsubscribe()
}

// Store is consumed by the binding layer and by form handlers.
//
// Listen callbacks for one listener are invoked sequentially from a goroutine
// owned by the store. After onError the listener is finished and delivers
// nothing else. A listener also stops when ctx is done.
type Store interface {
	ListenQuery(
		ctx context.Context,
		q *Query,
		onSnapshot func(QuerySnapshot),
		onError func(error),
	) Handle
	ListenDocument(
		ctx context.Context,
		ref *DocRef,
		onSnapshot func(DocumentSnapshot),
		onError func(error),
	) Handle

	Query(ctx context.Context, q *Query) (QuerySnapshot, error)
	Get(ctx context.Context, ref *DocRef) (DocumentSnapshot, error)

	Create(ctx context.Context, collection string, data any) (*DocRef, error)
	Set(ctx context.Context, ref *DocRef, data any) error
	Update(ctx context.Context, ref *DocRef, fields map[string]any) error
	Delete(ctx context.Context, ref *DocRef) error
}

type Operation string

const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Request is what access rules see for every read and write.
type Request struct {
	Operation  Operation
	Collection string
	ID         string
	UID        string
	// Data is the incoming document for create, update and set.
	Data map[string]any
	// Existing is the stored document an update or set replaces.
	Existing map[string]any
	// Filters are the equality clauses of a list request.
	Filters []Filter
}

// Rules authorises a request. A nil Rules allows everything. Returning an
// error wrapping ErrPermissionDenied rejects the request.
type Rules func(ctx context.Context, req Request) error

type principalKey struct{}

type principal struct {
	uid        string
	privileged bool
}

// WithUID attaches the authenticated user id to ctx for rule evaluation.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{uid: uid})
}

// Privileged marks ctx as a trusted server-side caller; rules are skipped.
func Privileged(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{privileged: true})
}

func UIDFromContext(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.uid
}

func isPrivileged(ctx context.Context) bool {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.privileged
}
