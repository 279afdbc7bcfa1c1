// Package binding keeps page state in step with live store subscriptions.
//
// A hook (Collection or Document) owns at most one store listener. Binding it
// to a new descriptor cancels the previous listener first; binding it to nil
// leaves it idle. Every listener is opened with the hook's current generation
// and callbacks carrying an older generation are dropped, so a superseded or
// closed subscription can never overwrite fresher state.
//
// State transitions:
//
//	idle        {Data: nil, IsLoading: false, Err: nil}   descriptor is nil
//	subscribing {Data: nil, IsLoading: true,  Err: nil}   descriptor set or changed
//	active      {Data: d,   IsLoading: false, Err: nil}   snapshot received
//	failed      {Data: d?,  IsLoading: false, Err: e}     error received, last data kept
//
// Observers are called synchronously, in order, with the hook lock held. An
// observer must not call Bind or Close on the hook that invoked it.
package binding

// State is what a page renders from. For collections Data is a slice and nil
// means no data has arrived; for documents Data is a pointer and nil means no
// data or no document.
type State[T any] struct {
	Data      T
	IsLoading bool
	Err       *ErrorInfo
}
