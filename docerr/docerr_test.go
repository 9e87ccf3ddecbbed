package docerr

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("offset 12 not in [0,5)")
	err := New(OutOfBounds, "piece.Insert", cause)

	want := "piece.Insert: out_of_bounds: offset 12 not in [0,5)"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) && errors.Unwrap(err) != cause {
		t.Fatalf("Unwrap() did not return the wrapped cause")
	}
}

func TestIsComparesKindOnly(t *testing.T) {
	a := New(InvalidArgument, "marks.New", errors.New("nil point"))
	if !errors.Is(a, InvalidArgumentErr) {
		t.Fatalf("expected errors.Is to match on Kind alone")
	}
	if errors.Is(a, OutOfBoundsErr) {
		t.Fatalf("expected errors.Is to not match a different Kind")
	}
}

func TestOfExtractsKind(t *testing.T) {
	err := New(Reentrancy, "document.Insert", nil)
	kind, ok := Of(err)
	if !ok || kind != Reentrancy {
		t.Fatalf("Of() = (%v, %v), want (Reentrancy, true)", kind, ok)
	}

	if _, ok := Of(errors.New("plain error")); ok {
		t.Fatalf("Of() should report false for a non-docerr error")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		OutOfBounds:       "out_of_bounds",
		InvalidArgument:   "invalid_argument",
		Reentrancy:        "reentrancy",
		AttributeOverflow: "attribute_overflow",
		UndoExhausted:     "undo_exhausted",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
