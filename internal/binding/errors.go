package binding

import (
	"context"
	"errors"

	"agency/internal/docstore"
)

type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	// KindNotFound is only produced for operations that require a document.
	// Document subscriptions report a missing document as empty state.
	KindNotFound        ErrorKind = "not-found"
	KindNetwork         ErrorKind = "network-or-transient"
	KindInvalidDocument ErrorKind = "invalid-document"
	KindUnknown         ErrorKind = "unknown"
)

// ErrorContext is the resource the failing operation targeted.
type ErrorContext struct {
	Path      string
	Operation docstore.Operation
}

// ErrorInfo is the error surface handed to pages. Message is safe to render;
// the store error that caused it is kept only for logs.
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
	Context ErrorContext

	cause error
}

func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message + " (" + string(e.Context.Operation) + " " + e.Context.Path + ")"
}

func (e *ErrorInfo) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Classify maps a store error onto the error taxonomy.
func Classify(err error, errCtx ErrorContext) *ErrorInfo {
	if err == nil {
		return nil
	}

	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}

	kind := KindUnknown
	message := "Something went wrong while loading data."
	switch {
	case errors.Is(err, docstore.ErrPermissionDenied):
		kind = KindPermissionDenied
		message = "Missing or insufficient permissions."
	case errors.Is(err, docstore.ErrNotFound):
		kind = KindNotFound
		message = "The requested document does not exist."
	case errors.Is(err, docstore.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = KindNetwork
		message = "The data service is unavailable. Try again shortly."
	case errors.Is(err, errInvalidDocument):
		kind = KindInvalidDocument
		message = "The stored document has an unexpected shape."
	}

	return &ErrorInfo{
		Kind:    kind,
		Message: message,
		Context: errCtx,
		cause:   err,
	}
}
