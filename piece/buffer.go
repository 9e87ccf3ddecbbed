// Package piece implements the piece-table text buffer: an append-only
// allocation pool plus an ordered, doubly-linked list of chunks that
// together represent the document's current content. Edits never move
// bytes; they split, extend, shrink, and detach chunk views, and every
// such step is recorded as a reversible delta in the undo log.
package piece

import (
	"log/slog"
	"unicode/utf8"

	"docore/alloc"
	"docore/attrstore"
	"docore/docerr"
	"docore/logging"
	"docore/undo"
)

// Options configures a new Buffer. Zero values fall back to sensible
// defaults.
type Options struct {
	BlockSize     int
	AttrBlockSize int
	DebugChecks   bool
	Logger        *slog.Logger
}

// Buffer is the piece-table text buffer.
type Buffer struct {
	pool *alloc.Pool
	log  *undo.Log

	arena []chunkRec
	head  ChunkHandle
	tail  ChunkHandle

	onChangeFns []func(start, end Ref)
	inCallback  bool

	attrBlockSize int
	debugChecks   bool
	logger        *slog.Logger
}

// New creates an empty Buffer.
func New(opts Options) *Buffer {
	logger := logging.Default(opts.Logger).With(logging.ComponentKey, "piece")
	return &Buffer{
		pool:          alloc.New(opts.BlockSize, opts.Logger),
		log:           undo.New(),
		head:          NoChunk,
		tail:          NoChunk,
		attrBlockSize: opts.AttrBlockSize,
		debugChecks:   opts.DebugChecks,
		logger:        logger,
	}
}

// NewFromBytes reloads a document from a byte slice: one allocation sized
// to the input, one chunk spanning it whole, no undo history. This is the
// "reload" counterpart to Snapshot.
func NewFromBytes(data []byte, opts Options) *Buffer {
	b := New(opts)
	if len(data) == 0 {
		return b
	}
	afterH := NoChunk
	remaining := data
	for len(remaining) > 0 {
		allocH := b.pool.Alloc(len(remaining))
		off, n := b.pool.Append(allocH, remaining)
		h := ChunkHandle(len(b.arena))
		b.arena = append(b.arena, chunkRec{allocH: allocH, start: off, end: off + n, attrs: attrstore.New(), prev: afterH, next: NoChunk})
		if afterH == NoChunk {
			b.head = h
		} else {
			b.arena[afterH].next = h
		}
		b.tail = h
		afterH = h
		remaining = remaining[n:]
	}
	return b
}

// OnChange registers a callback invoked once per mutating call (insert,
// delete, undo, redo), only after all chunk mutations for that call are
// complete. The mark system is the primary subscriber.
func (b *Buffer) OnChange(f func(start, end Ref)) {
	b.onChangeFns = append(b.onChangeFns, f)
}

func (b *Buffer) notify(start, end Ref) {
	b.inCallback = true
	defer func() { b.inCallback = false }()
	for _, f := range b.onChangeFns {
		f(start, end)
	}
}

func (b *Buffer) reentrancyCheck(op string) error {
	if b.inCallback {
		return docerr.New(docerr.Reentrancy, op, nil)
	}
	return nil
}

// Head returns the first chunk of the active list, or NoChunk if empty.
func (b *Buffer) Head() ChunkHandle { return b.head }

// Tail returns the last chunk of the active list, or NoChunk if empty.
func (b *Buffer) Tail() ChunkHandle { return b.tail }

// ChunkNext/ChunkPrev/ChunkBounds/ChunkAttrs are read accessors for
// collaborators (the mark system) that must reason about chunk structure
// directly, such as scanning forward for the sibling that absorbed a
// split-off offset.
func (b *Buffer) ChunkNext(h ChunkHandle) ChunkHandle { return b.arena[h].next }
func (b *Buffer) ChunkPrev(h ChunkHandle) ChunkHandle { return b.arena[h].prev }
func (b *Buffer) ChunkBounds(h ChunkHandle) (start, end int) {
	c := &b.arena[h]
	return c.start, c.end
}
func (b *Buffer) ChunkAttrs(h ChunkHandle) *attrstore.AttrSet { return b.arena[h].attrs }
func (b *Buffer) IsDetached(h ChunkHandle) bool               { return b.isDetached(h) }

// SameAllocation reports whether two chunks are views into the same backing
// allocation. Split siblings always are; the Mark System uses this to tell a
// split (the offset's bytes moved to a sibling chunk) from a deletion (the
// offset's bytes are gone).
func (b *Buffer) SameAllocation(h, other ChunkHandle) bool {
	return b.arena[h].allocH == b.arena[other].allocH
}

// Normalize exposes normalize to collaborators.
func (b *Buffer) Normalize(ref Ref) Ref { return b.normalize(ref) }

// Insert inserts data at ref, returning the bounds of the inserted range.
func (b *Buffer) Insert(ref Ref, data []byte) (Ref, Ref, error) {
	if err := b.reentrancyCheck("piece.Insert"); err != nil {
		return Ref{}, Ref{}, err
	}
	ref = b.normalize(ref)
	if len(data) == 0 {
		return ref, ref, nil
	}

	first := true
	remaining := data
	cur := ref
	var rangeStart Ref
	rangeStartSet := false

	// Fast path: cur is exactly end-of-document and the tail chunk's bytes
	// are the live tail of the pool's latest allocation.
	if cur == EndOfDocument && b.tail != NoChunk {
		tc := &b.arena[b.tail]
		if tc.allocH == b.pool.Latest() && tc.end == b.pool.Used(tc.allocH) && b.pool.Remaining(tc.allocH) > 0 {
			appendStart := tc.end
			_, n := b.pool.Append(tc.allocH, remaining)
			if n > 0 {
				b.growChunk(b.tail, undo.AtEnd, n, &first)
				remaining = remaining[n:]
				rangeStart = Ref{Chunk: b.tail, Offset: appendStart}
				rangeStartSet = true
				cur = b.normalize(Ref{Chunk: b.tail, Offset: appendStart + n})
			}
		}
	}

	if len(remaining) > 0 {
		// Mid-chunk insertion point: split first so the insertion splices
		// cleanly between two chunks.
		if cur.Chunk != NoChunk {
			sib := b.splitAt(cur, &first)
			cur = Ref{Chunk: sib, Offset: b.arena[sib].start}
		}

		inherited := b.inheritedAttrsBefore(cur)
		afterH := b.predecessorOf(cur)

		firstNewChunk := true
		for len(remaining) > 0 {
			allocH := b.pool.Latest()
			if allocH == alloc.None || b.pool.Remaining(allocH) == 0 {
				allocH = b.pool.Alloc(len(remaining))
			}
			off, n := b.pool.Append(allocH, remaining)
			if n == 0 {
				// Remaining room cannot even hold the next code point whole;
				// start a fresh allocation and retry.
				b.pool.Alloc(len(remaining))
				continue
			}
			newH := b.newChunkAfter(afterH, allocH, off)
			if firstNewChunk {
				b.arena[newH].attrs = inherited
				firstNewChunk = false
			}
			if !rangeStartSet {
				rangeStart = Ref{Chunk: newH, Offset: off}
				rangeStartSet = true
			}
			b.growChunk(newH, undo.AtEnd, n, &first)
			afterH = newH
			remaining = remaining[n:]
			cur = b.normalize(Ref{Chunk: newH, Offset: off + n})
		}
	}

	b.notify(rangeStart, cur)
	if b.debugChecks {
		if err := b.checkInvariants(); err != nil {
			panic(err)
		}
	}
	return rangeStart, cur, nil
}

// predecessorOf returns the active-list chunk that a new chunk spliced at
// ref should be inserted after.
func (b *Buffer) predecessorOf(ref Ref) ChunkHandle {
	if ref.Chunk == NoChunk {
		return b.tail
	}
	return b.arena[ref.Chunk].prev
}

// inheritedAttrsBefore computes the attribute set a freshly inserted chunk
// at ref should start with: the effective attributes at the end of the
// preceding chunk. Inserted bytes inherit the attributes of the byte
// immediately preceding ref, or none at document start.
func (b *Buffer) inheritedAttrsBefore(ref Ref) *attrstore.AttrSet {
	predH := b.predecessorOf(ref)
	if predH == NoChunk {
		return attrstore.New()
	}
	pc := &b.arena[predH]
	return pc.attrs.Collect(pc.end-pc.start, 0)
}

// Delete removes up to n bytes starting at ref, stopping at end-of-document.
func (b *Buffer) Delete(ref Ref, n int) (Ref, error) {
	if err := b.reentrancyCheck("piece.Delete"); err != nil {
		return Ref{}, err
	}
	if n <= 0 {
		ref = b.normalize(ref)
		return ref, nil
	}
	ref = b.normalize(ref)
	first := true
	remaining := n
	cur := ref

	for remaining > 0 && cur.Chunk != NoChunk {
		c := &b.arena[cur.Chunk]
		switch {
		case cur.Offset > c.start && cur.Offset < c.end:
			// Interior: split, then re-evaluate at the sibling's start.
			sib := b.splitAt(cur, &first)
			cur = Ref{Chunk: sib, Offset: b.arena[sib].start}
		case cur.Offset == c.start:
			avail := c.end - c.start
			if avail <= remaining {
				nextH := c.next
				b.growChunk(cur.Chunk, undo.AtEnd, -avail, &first)
				remaining -= avail
				if nextH != NoChunk {
					cur = b.normalize(Ref{Chunk: nextH, Offset: b.arena[nextH].start})
				} else {
					cur = EndOfDocument
				}
			} else {
				rebased := rebaseAttrs(c.attrs.CopyTail(remaining), -remaining)
				c.attrs.Free()
				c.attrs = rebased
				b.growChunk(cur.Chunk, undo.AtStart, -remaining, &first)
				cur = b.normalize(Ref{Chunk: cur.Chunk, Offset: c.start})
				remaining = 0
			}
		default: // cur.Offset == c.end: shouldn't survive normalize, but guard anyway.
			cur = b.normalize(Ref{Chunk: cur.Chunk, Offset: c.end})
		}
	}

	// Deletion collapses the removed span to a single gap position: unlike
	// Insert, there is no distinct "before" and "after" boundary once the
	// bytes are gone, so both ends of the change report are cur. Marks
	// inside the deleted span reach it via the mark system's clamp and
	// detached-chunk rules, not by comparing against a second, pre-edit
	// position.
	b.notify(cur, cur)
	if b.debugChecks {
		if err := b.checkInvariants(); err != nil {
			panic(err)
		}
	}
	return cur, nil
}

// UndoResultKind discriminates the outcome of Undo/Redo.
type UndoResultKind int

const (
	UndoNone UndoResultKind = iota
	UndoPartial
	UndoComplete
)

// UndoResult is the return value of Undo/Redo.
type UndoResult struct {
	Kind  UndoResultKind
	Start Ref
	End   Ref
}

// Undo reverses the single topmost undo record, reporting whether that
// record completed its transaction (Complete) or more remain (Partial).
// Call it repeatedly until Complete to undo a whole user-visible edit.
func (b *Buffer) Undo() (UndoResult, error) {
	if err := b.reentrancyCheck("piece.Undo"); err != nil {
		return UndoResult{}, err
	}
	rec, completes, ok := b.log.PopUndo()
	if !ok {
		return UndoResult{Kind: UndoNone}, nil
	}
	rev := rec.Negate()
	start, end := b.adjustChunk(ChunkHandle(rec.Target), rev.Edge, rev.Delta)
	b.log.PushRedo(rec)

	kind := UndoPartial
	if completes {
		kind = UndoComplete
	}
	b.notify(start, end)
	return UndoResult{Kind: kind, Start: start, End: end}, nil
}

// Redo reapplies the single topmost redo record, symmetric with Undo.
func (b *Buffer) Redo() (UndoResult, error) {
	if err := b.reentrancyCheck("piece.Redo"); err != nil {
		return UndoResult{}, err
	}
	rec, completes, ok := b.log.PopRedo()
	if !ok {
		return UndoResult{Kind: UndoNone}, nil
	}
	start, end := b.adjustChunk(ChunkHandle(rec.Target), rec.Edge, rec.Delta)
	b.log.PushUndo(rec)

	kind := UndoPartial
	if completes {
		kind = UndoComplete
	}
	b.notify(start, end)
	return UndoResult{Kind: kind, Start: start, End: end}, nil
}

// Depth exposes the underlying log's transaction counts.
func (b *Buffer) Depth() (undoTxns, redoTxns int) { return b.log.Depth() }

func (b *Buffer) byteAt(ref Ref) (byte, Ref, bool) {
	ref = b.normalize(ref)
	if ref.Chunk == NoChunk {
		return 0, ref, false
	}
	c := &b.arena[ref.Chunk]
	bt := b.pool.Bytes(c.allocH)[ref.Offset]
	return bt, b.normalize(Ref{Chunk: ref.Chunk, Offset: ref.Offset + 1}), true
}

func (b *Buffer) bytePrev(ref Ref) (byte, Ref, bool) {
	ref = b.normalize(ref)
	if ref.Chunk != NoChunk {
		c := &b.arena[ref.Chunk]
		if ref.Offset > c.start {
			po := ref.Offset - 1
			return b.pool.Bytes(c.allocH)[po], Ref{Chunk: ref.Chunk, Offset: po}, true
		}
	}
	var predH ChunkHandle
	if ref.Chunk != NoChunk {
		predH = b.arena[ref.Chunk].prev
	} else {
		predH = b.tail
	}
	if predH == NoChunk {
		return 0, ref, false
	}
	pc := &b.arena[predH]
	po := pc.end - 1
	return b.pool.Bytes(pc.allocH)[po], Ref{Chunk: predH, Offset: po}, true
}

func isUTF8Continuation(bt byte) bool { return bt&0xC0 == 0x80 }

// NextChar decodes one UTF-8 code point starting at ref, crossing chunk
// boundaries transparently. Invalid bytes yield utf8.RuneError and advance
// one byte.
func (b *Buffer) NextChar(ref Ref) (rune, Ref) {
	ref = b.normalize(ref)
	var buf [utf8.UTFMax]byte
	n := 0
	cur := ref
	for n < utf8.UTFMax {
		bt, next, ok := b.byteAt(cur)
		if !ok {
			break
		}
		buf[n] = bt
		n++
		cur = next
		if utf8.FullRune(buf[:n]) {
			break
		}
	}
	if n == 0 {
		return utf8.RuneError, ref
	}
	r, size := utf8.DecodeRune(buf[:n])
	if size <= 0 {
		size = 1
	}
	adv := ref
	for k := 0; k < size; k++ {
		_, adv, _ = b.byteAt(adv)
	}
	return r, adv
}

// PrevChar decodes the UTF-8 code point immediately before ref, symmetric
// with NextChar.
func (b *Buffer) PrevChar(ref Ref) (rune, Ref) {
	var collected []byte
	var refs []Ref
	cur := ref
	for len(collected) < utf8.UTFMax {
		bt, prev, ok := b.bytePrev(cur)
		if !ok {
			break
		}
		collected = append(collected, bt)
		refs = append(refs, prev)
		cur = prev
		if !isUTF8Continuation(bt) {
			break
		}
	}
	if len(collected) == 0 {
		return utf8.RuneError, ref
	}
	buf := make([]byte, len(collected))
	for i, bt := range collected {
		buf[len(collected)-1-i] = bt
	}
	r, size := utf8.DecodeRune(buf)
	if size != len(buf) {
		// Not one well-formed code point: step back a single byte.
		return utf8.RuneError, refs[0]
	}
	return r, refs[size-1]
}

// StrCmp advances past the common prefix of the document (from ref) and s,
// returning the number of matched bytes.
func (b *Buffer) StrCmp(ref Ref, s string) int {
	cur := b.normalize(ref)
	data := []byte(s)
	i := 0
	for i < len(data) {
		bt, next, ok := b.byteAt(cur)
		if !ok || bt != data[i] {
			break
		}
		cur = next
		i++
	}
	return i
}

// Text returns the document bytes in [start, end).
func (b *Buffer) Text(start, end Ref) (string, error) {
	start = b.normalize(start)
	end = b.normalize(end)
	var buf []byte
	cur := start
	for cur != end {
		if cur.Chunk == NoChunk {
			return "", docerr.New(docerr.OutOfBounds, "piece.Text", nil)
		}
		c := &b.arena[cur.Chunk]
		stop := c.end
		done := false
		if end.Chunk == cur.Chunk && end.Offset <= c.end {
			stop = end.Offset
			done = true
		}
		buf = append(buf, b.pool.Bytes(c.allocH)[cur.Offset:stop]...)
		if done {
			cur = end
			break
		}
		cur = b.normalize(Ref{Chunk: cur.Chunk, Offset: c.end})
	}
	return string(buf), nil
}

// RefAtOffset returns the ref at absolute byte position pos, clamped to
// end-of-document. Used by collaborators (the Line Counter's initial
// checkpoint scatter) that reason in terms of plain byte offsets.
func (b *Buffer) RefAtOffset(pos int) Ref {
	if pos <= 0 {
		if b.head == NoChunk {
			return EndOfDocument
		}
		return Ref{Chunk: b.head, Offset: b.arena[b.head].start}
	}
	remaining := pos
	for h := b.head; h != NoChunk; h = b.arena[h].next {
		c := &b.arena[h]
		length := c.end - c.start
		if remaining < length {
			return Ref{Chunk: h, Offset: c.start + remaining}
		}
		remaining -= length
	}
	return EndOfDocument
}

// Len returns the total live byte count across all active chunks.
func (b *Buffer) Len() int {
	total := 0
	for h := b.head; h != NoChunk; h = b.arena[h].next {
		total += b.arena[h].end - b.arena[h].start
	}
	return total
}

// Snapshot serializes the whole document: every active chunk's bytes,
// concatenated in list order.
func (b *Buffer) Snapshot() []byte {
	var start Ref
	if b.head == NoChunk {
		start = EndOfDocument
	} else {
		start = Ref{Chunk: b.head, Offset: b.arena[b.head].start}
	}
	text, _ := b.Text(start, EndOfDocument)
	return []byte(text)
}

// checkInvariants walks the active chunk list asserting that start < end
// for every active chunk and that the list links are symmetric. It is only
// ever invoked when Options.DebugChecks is set.
func (b *Buffer) checkInvariants() error {
	seen := 0
	for h := b.head; h != NoChunk; h = b.arena[h].next {
		c := &b.arena[h]
		if c.start >= c.end {
			return docerr.New(docerr.InvalidArgument, "piece.checkInvariants", nil)
		}
		if c.next != NoChunk && b.arena[c.next].prev != h {
			return docerr.New(docerr.InvalidArgument, "piece.checkInvariants", nil)
		}
		seen++
		if seen > len(b.arena)+1 {
			return docerr.New(docerr.InvalidArgument, "piece.checkInvariants", nil)
		}
	}
	return nil
}
