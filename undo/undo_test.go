package undo

import "testing"

func txn3() []Record {
	return []Record{
		{Target: 1, Edge: AtEnd, Delta: 1, First: true},
		{Target: 1, Edge: AtEnd, Delta: 2},
		{Target: 1, Edge: AtEnd, Delta: 3},
	}
}

func TestUndoPopOrderAndCompletion(t *testing.T) {
	l := New()
	for _, r := range txn3() {
		l.Record(r)
	}

	r, completes, ok := l.PopUndo()
	if !ok || completes || r.Delta != 3 {
		t.Fatalf("1st pop = (%v, completes=%v, ok=%v), want (Delta=3, false, true)", r, completes, ok)
	}
	r, completes, ok = l.PopUndo()
	if !ok || completes || r.Delta != 2 {
		t.Fatalf("2nd pop = (%v, completes=%v, ok=%v), want (Delta=2, false, true)", r, completes, ok)
	}
	r, completes, ok = l.PopUndo()
	if !ok || !completes || r.Delta != 1 {
		t.Fatalf("3rd pop = (%v, completes=%v, ok=%v), want (Delta=1, true, true)", r, completes, ok)
	}

	if _, _, ok := l.PopUndo(); ok {
		t.Fatalf("expected undo stack to be exhausted")
	}
}

func TestRedoReappliesForwardOrderAndCompletion(t *testing.T) {
	l := New()
	for _, r := range txn3() {
		l.Record(r)
	}
	// Undo the whole transaction, pushing each popped record onto redo the
	// way the buffer does.
	for {
		r, _, ok := l.PopUndo()
		if !ok {
			break
		}
		l.PushRedo(r)
	}

	r, completes, ok := l.PopRedo()
	if !ok || completes || r.Delta != 1 {
		t.Fatalf("1st redo pop = (%v, completes=%v), want (Delta=1, false)", r, completes)
	}
	r, completes, ok = l.PopRedo()
	if !ok || completes || r.Delta != 2 {
		t.Fatalf("2nd redo pop = (%v, completes=%v), want (Delta=2, false)", r, completes)
	}
	r, completes, ok = l.PopRedo()
	if !ok || !completes || r.Delta != 3 {
		t.Fatalf("3rd redo pop = (%v, completes=%v), want (Delta=3, true)", r, completes)
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	l := New()
	l.Record(Record{Target: 1, Edge: AtEnd, Delta: 1, First: true})
	r, _, _ := l.PopUndo()
	l.PushRedo(r)

	if _, redoTxns := l.Depth(); redoTxns != 1 {
		t.Fatalf("expected one redo transaction before the new edit")
	}

	l.Record(Record{Target: 2, Edge: AtEnd, Delta: 1, First: true})
	if _, redoTxns := l.Depth(); redoTxns != 0 {
		t.Fatalf("expected a new edit to clear the redo stack")
	}
}

func TestDepthCountsTransactionsNotRecords(t *testing.T) {
	l := New()
	for _, r := range txn3() {
		l.Record(r)
	}
	l.Record(Record{Target: 2, Edge: AtStart, Delta: 5, First: true})

	undoTxns, _ := l.Depth()
	if undoTxns != 2 {
		t.Fatalf("Depth() undo = %d, want 2", undoTxns)
	}
}

func TestNegate(t *testing.T) {
	r := Record{Target: 1, Edge: AtStart, Delta: 5, First: true}
	n := r.Negate()
	if n.Delta != -5 || n.Edge != AtStart || n.Target != 1 || n.First != true {
		t.Fatalf("Negate() = %+v, unexpected", n)
	}
}
