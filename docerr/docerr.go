// Package docerr defines the typed failures returned by docore's components.
//
// Every entry point returns a result discriminating success from a typed
// failure rather than panicking or using exceptions for control flow.
// Internal invariant violations (a chunk with start >= end reaching the
// active list, a mark with a non-monotone sequence number) are a different
// matter: those are fatal and abort via panic, since they cannot be reached
// from a legitimate caller and indicate a bug in docore itself.
package docerr

import "errors"

// Kind classifies a failure so callers can branch with errors.Is/As instead
// of string-matching messages.
type Kind int

const (
	// OutOfBounds means the requested position is not reachable: a Ref whose
	// offset falls outside its chunk, or a request that walks past the
	// start/end of the document where the operation requires a concrete
	// position (deleting past EOF is not OutOfBounds; it just stops there).
	OutOfBounds Kind = iota
	// InvalidArgument means a required argument was missing or malformed:
	// an insert with no point, an attribute get/set with an empty key.
	InvalidArgument
	// Reentrancy means an edit was attempted from within an observer
	// callback while the buffer's change notification was still in flight.
	Reentrancy
	// AttributeOverflow means a single attribute's combined key+value
	// length exceeds the store's bound.
	AttributeOverflow
	// UndoExhausted means there are no more records to pop from the
	// relevant stack. This is not a caller-visible error in the usual
	// sense; Undo/Redo surface it as a distinguishing return value rather
	// than an error, but it is defined here so the two call sites share one
	// vocabulary.
	UndoExhausted
)

func (k Kind) String() string {
	switch k {
	case OutOfBounds:
		return "out_of_bounds"
	case InvalidArgument:
		return "invalid_argument"
	case Reentrancy:
		return "reentrancy"
	case AttributeOverflow:
		return "attribute_overflow"
	case UndoExhausted:
		return "undo_exhausted"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the operation that failed and, optionally, the
// underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, docerr.New(docerr.OutOfBounds, "", nil)) or, more
// idiomatically, compare against the Kind-only sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for the given operation and cause.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// sentinel is a Kind-only error usable with errors.Is(err, docerr.OutOfBoundsErr).
func sentinel(k Kind) *Error { return &Error{Kind: k} }

var (
	// OutOfBoundsErr is a Kind-only sentinel for errors.Is comparisons.
	OutOfBoundsErr = sentinel(OutOfBounds)
	// InvalidArgumentErr is a Kind-only sentinel for errors.Is comparisons.
	InvalidArgumentErr = sentinel(InvalidArgument)
	// ReentrancyErr is a Kind-only sentinel for errors.Is comparisons.
	ReentrancyErr = sentinel(Reentrancy)
	// AttributeOverflowErr is a Kind-only sentinel for errors.Is comparisons.
	AttributeOverflowErr = sentinel(AttributeOverflow)
)

// Of reports the Kind of err, if err is (or wraps) a *docore Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
