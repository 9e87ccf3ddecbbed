// Package document wires the piece-table buffer, mark system, undo/redo
// log, and line counter into a single façade: a typed API consumed by
// external collaborators (a text view, a syntax highlighter, an LSP
// bridge), none of which this package knows about.
//
// The core is single-threaded and cooperative. Reentrancy rejection
// follows piece.Buffer's own inCallback flag rather than a blocking
// mutex: an edit attempted from inside an observer callback is an error,
// not a wait.
package document

import (
	"log/slog"

	"docore/docerr"
	"docore/linecount"
	"docore/logging"
	"docore/marks"
	"docore/piece"
)

// lineCounterGroup is the Mark System group id reserved for the Line
// Counter's own checkpoints. Application code assigns its own group ids
// starting at 1; this sits well outside that range so the two namespaces
// never collide.
const lineCounterGroup marks.GroupID = -100

// Range is a half-open document span, reused verbatim by every component
// that reports or accepts one.
type Range = linecount.Range

// Options configures a Document. Unset fields take the same defaults as
// the underlying piece.Buffer and linecount.Counter.
type Options struct {
	BlockSize     int
	AttrBlockSize int
	DebugChecks   bool

	// LineCounterScatterLines is the approximate number of lines between
	// Line Counter checkpoints. Zero uses linecount.DefaultScatterLines.
	LineCounterScatterLines int

	// LineCounterMergeThreshold is the line count under which two
	// adjacent Line Counter segments are merged. Zero uses
	// linecount.DefaultMergeThreshold.
	LineCounterMergeThreshold int

	// Logger for structured logging. If nil, logging is disabled.
	// The document scopes this logger with component="document".
	Logger *slog.Logger
}

// Document is the external editing surface: Insert, Delete, Undo, Redo,
// mark operations, and counter queries, with OnChange/OnMarkClosed
// observer registration.
//
// Logging:
//   - Logger is dependency-injected via Options.Logger
//   - Document owns its scoped logger (component="document")
//   - Logging is sparse: construction, undo/redo failure, and undo/redo
//     exhaustion only
//   - No logging in Insert/Delete hot paths
//
// Reentrancy: edit operations attempted from inside an OnChange observer
// are rejected (docerr.Reentrancy), not blocked. Document does not track
// this itself: buf.OnChange(d.handleChange) means d.handleChange runs
// synchronously inside piece.Buffer's own inCallback window, so a
// reentrant d.Insert/Delete/Undo/Redo reaches d.buf's own reentrancyCheck
// (piece/buffer.go) and gets rejected there, with no need for Document to
// duplicate that state.
type Document struct {
	buf   *piece.Buffer
	marks *marks.Manager
	lc    *linecount.Counter

	onChangeFns     []func(point *marks.Mark, start, end piece.Ref)
	onMarkClosedFns []func(m *marks.Mark)

	// currentPoint is the point driving the in-flight Insert/Delete call.
	// It is valid only for the duration of the piece.Buffer.notify callback
	// that call synchronously triggers, and nil for Undo/Redo (no point
	// initiates those).
	currentPoint *marks.Mark

	logger *slog.Logger
}

// New creates a Document over a fresh, empty buffer.
func New(opts Options) *Document {
	return newDocument(piece.New(piece.Options{
		BlockSize:     opts.BlockSize,
		AttrBlockSize: opts.AttrBlockSize,
		DebugChecks:   opts.DebugChecks,
		Logger:        opts.Logger,
	}), opts)
}

// NewFromBytes creates a Document preloaded with data as a single
// allocation and chunk, with no undo history — the reload counterpart to
// Snapshot.
func NewFromBytes(data []byte, opts Options) *Document {
	return newDocument(piece.NewFromBytes(data, piece.Options{
		BlockSize:     opts.BlockSize,
		AttrBlockSize: opts.AttrBlockSize,
		DebugChecks:   opts.DebugChecks,
		Logger:        opts.Logger,
	}), opts)
}

func newDocument(buf *piece.Buffer, opts Options) *Document {
	logger := logging.Default(opts.Logger).With(logging.ComponentKey, "document")

	d := &Document{
		buf:    buf,
		logger: logger,
	}
	d.marks = marks.New(buf, opts.Logger)
	d.lc = linecount.New(buf, d.marks, lineCounterGroup, opts.LineCounterScatterLines, opts.LineCounterMergeThreshold, opts.Logger)
	buf.OnChange(d.handleChange)

	logger.Info("document opened", "bytes", buf.Len())
	return d
}

func (d *Document) handleChange(start, end piece.Ref) {
	for _, fn := range d.onChangeFns {
		fn(d.currentPoint, start, end)
	}
}

// OnChange registers an observer for every mutating operation, including
// undo and redo; point is nil for operations not driven by a point.
func (d *Document) OnChange(f func(point *marks.Mark, start, end piece.Ref)) {
	d.onChangeFns = append(d.onChangeFns, f)
}

// OnMarkClosed registers an observer fired when a mark is freed via Free.
func (d *Document) OnMarkClosed(f func(m *marks.Mark)) {
	d.onMarkClosedFns = append(d.onMarkClosedFns, f)
}

// Insert inserts data at pt's current position. pt is required so the
// change notification can identify which cursor initiated the edit. pt's
// own position advances past the inserted text via the ordinary mark
// fixup, the same as any other mark.
func (d *Document) Insert(pt *marks.Mark, data []byte) (piece.Ref, piece.Ref, error) {
	if pt == nil {
		return piece.Ref{}, piece.Ref{}, docerr.New(docerr.InvalidArgument, "Insert", nil)
	}

	d.currentPoint = pt
	defer func() { d.currentPoint = nil }()
	return d.buf.Insert(pt.Ref(), data)
}

// Delete deletes n bytes starting at pt's current position.
func (d *Document) Delete(pt *marks.Mark, n int) (piece.Ref, error) {
	if pt == nil {
		return piece.Ref{}, docerr.New(docerr.InvalidArgument, "Delete", nil)
	}

	d.currentPoint = pt
	defer func() { d.currentPoint = nil }()
	return d.buf.Delete(pt.Ref(), n)
}

// Undo reverts the most recent transaction. No point initiates this, so
// observers see a nil point.
func (d *Document) Undo() (piece.UndoResult, error) {
	res, err := d.buf.Undo()
	if err != nil {
		d.logger.Error("undo failed", "error", err)
	} else if res.Kind == piece.UndoNone {
		d.logger.Debug("undo exhausted")
	}
	return res, err
}

// Redo reapplies the most recently undone transaction.
func (d *Document) Redo() (piece.UndoResult, error) {
	res, err := d.buf.Redo()
	if err != nil {
		d.logger.Error("redo failed", "error", err)
	} else if res.Kind == piece.UndoNone {
		d.logger.Debug("redo exhausted")
	}
	return res, err
}

// NewMark creates a mark in group at end-of-document.
func (d *Document) NewMark(group marks.GroupID) *marks.Mark {
	return d.marks.NewMark(group)
}

// MarkAtRef creates a mark in group at ref.
func (d *Document) MarkAtRef(ref piece.Ref, group marks.GroupID, tie marks.Tie) *marks.Mark {
	return d.marks.MarkAtRef(ref, group, tie)
}

// NewPoint creates a point: a mark belonging to every group in groups.
func (d *Document) NewPoint(groups []marks.GroupID) *marks.Mark {
	return d.marks.NewPoint(groups)
}

// Dup creates a new mark co-located with mk, in group.
func (d *Document) Dup(mk *marks.Mark, group marks.GroupID) *marks.Mark {
	return d.marks.Dup(mk, group)
}

// Free unlinks mk and notifies OnMarkClosed observers.
func (d *Document) Free(mk *marks.Mark) {
	d.marks.Free(mk)
	for _, fn := range d.onMarkClosedFns {
		fn(mk)
	}
}

// Group returns the named mark group.
func (d *Document) Group(id marks.GroupID) *marks.Group {
	return d.marks.Group(id)
}

// Count returns the line, word, and char counts of rng. Safe to call from
// an OnChange observer: only editing is forbidden mid-callback, not
// reading.
func (d *Document) Count(rng Range) (lines, words, chars int) {
	return d.lc.Count(rng)
}

// Recount recomputes rng's line, word, and char counts directly from the
// buffer's text, bypassing the line counter's checkpoint cache. Exposed
// for verification: a cached count must always equal a direct recount of
// the same range.
func (d *Document) Recount(rng Range) (lines, words, chars int) {
	return d.lc.Recount(rng)
}

// Text returns the document's text in [start, end).
func (d *Document) Text(start, end piece.Ref) (string, error) {
	return d.buf.Text(start, end)
}

// Start returns the ref at document offset 0, or EndOfDocument if empty.
func (d *Document) Start() piece.Ref {
	return d.buf.RefAtOffset(0)
}

// RefAt returns the ref at absolute byte offset pos, clamped to
// end-of-document.
func (d *Document) RefAt(pos int) piece.Ref {
	return d.buf.RefAtOffset(pos)
}

// Depth reports how many transactions remain on the undo and redo stacks.
func (d *Document) Depth() (undoTxns, redoTxns int) {
	return d.buf.Depth()
}

// Len returns the document's total live byte count.
func (d *Document) Len() int {
	return d.buf.Len()
}

// Snapshot returns the document's full content, for persistence: every
// active chunk's bytes, concatenated in list order.
func (d *Document) Snapshot() []byte {
	return d.buf.Snapshot()
}

// EndOfDocument is the sentinel ref denoting the position past the last
// byte, re-exported so callers need not import piece directly for it.
var EndOfDocument = piece.EndOfDocument
