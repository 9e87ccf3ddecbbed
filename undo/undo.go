// Package undo implements the undo/redo log: two LIFO stacks of delta
// records, threaded together so they behave as one cursor over a
// transaction history. The log itself only knows about the stack
// discipline and the transaction-boundary (First) flag; applying a record
// to a chunk is the caller's (piece package's) job.
package undo

// Edge names which end of a chunk a Record adjusts.
type Edge int

const (
	AtStart Edge = iota
	AtEnd
)

func (e Edge) String() string {
	if e == AtStart {
		return "at_start"
	}
	return "at_end"
}

// Record is one delta against a chunk. Target is an opaque handle (the
// piece package's ChunkHandle, stored here as int to avoid a dependency
// cycle between undo and piece). Delta is signed: positive always means
// the chunk grew, negative always means it shrank, so reversal is plain
// negation. First marks the chronologically first record of a
// user-visible transaction.
type Record struct {
	Target int
	Edge   Edge
	Delta  int
	First  bool
}

// Negate returns the record that exactly reverses r.
func (r Record) Negate() Record {
	return Record{Target: r.Target, Edge: r.Edge, Delta: -r.Delta, First: r.First}
}

// Log holds the undo and redo stacks.
type Log struct {
	undo []Record
	redo []Record
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Record appends rec to the undo stack as part of a live (non-undo/redo)
// edit, discarding any redo history — the classic "a new edit abandons the
// future" editor behaviour, since the two stacks model one cursor over a
// single linear history.
func (l *Log) Record(rec Record) {
	l.undo = append(l.undo, rec)
	l.redo = l.redo[:0]
}

// PopUndo pops the topmost undo record. completes reports whether this
// record is the chronologically first record of its transaction — i.e.
// whether popping it finished reversing the whole transaction.
func (l *Log) PopUndo() (rec Record, completes bool, ok bool) {
	if len(l.undo) == 0 {
		return Record{}, false, false
	}
	rec = l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	return rec, rec.First, true
}

// PushRedo pushes rec onto the redo stack. Called by the buffer after
// reversing rec during Undo.
func (l *Log) PushRedo(rec Record) {
	l.redo = append(l.redo, rec)
}

// PopRedo pops the topmost redo record. Undo pops a transaction's records
// newest-first and pushes each onto redo, so the chronologically first
// record ends up on top and redo replays the transaction in its original
// order. completes reports whether rec was the transaction's chronologically
// last record: the next record due (the new top) carries First, meaning it
// begins the next transaction, or the stack went empty.
func (l *Log) PopRedo() (rec Record, completes bool, ok bool) {
	if len(l.redo) == 0 {
		return Record{}, false, false
	}
	rec = l.redo[len(l.redo)-1]
	l.redo = l.redo[:len(l.redo)-1]
	completes = len(l.redo) == 0 || l.redo[len(l.redo)-1].First
	return rec, completes, true
}

// PushUndo pushes rec onto the undo stack without touching the redo stack.
// Called by the buffer after reapplying rec during Redo.
func (l *Log) PushUndo(rec Record) {
	l.undo = append(l.undo, rec)
}

// Depth reports how many transactions remain on each stack, for
// collaborators deciding whether to grey out an Undo/Redo menu item.
func (l *Log) Depth() (undoTxns, redoTxns int) {
	for _, r := range l.undo {
		if r.First {
			undoTxns++
		}
	}
	for _, r := range l.redo {
		if r.First {
			redoTxns++
		}
	}
	return undoTxns, redoTxns
}
