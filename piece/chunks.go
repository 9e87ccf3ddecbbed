package piece

import (
	"docore/alloc"
	"docore/attrstore"
	"docore/undo"
)

// chunkRec is the arena representation of a chunk: a view [start, end)
// into one allocation, plus its attribute set and its doubly-linked list
// neighbours. An empty chunk (start == end) is, by invariant, always
// detached from the active list; prev/next on a detached chunk are
// preserved from the moment of detachment so it can be relinked without
// having to reconstruct its former position.
type chunkRec struct {
	allocH alloc.Handle
	start  int
	end    int
	attrs  *attrstore.AttrSet
	prev   ChunkHandle
	next   ChunkHandle
}

func (b *Buffer) isDetached(h ChunkHandle) bool {
	c := &b.arena[h]
	return c.start == c.end
}

// detach removes h from the active list. It does not touch h's own
// prev/next fields, which is exactly the point: a detached chunk retains
// its list-neighbour pointers so undo/redo can splice it back at the same
// position.
func (b *Buffer) detach(h ChunkHandle) {
	c := &b.arena[h]
	if c.prev != NoChunk {
		b.arena[c.prev].next = c.next
	} else {
		b.head = c.next
	}
	if c.next != NoChunk {
		b.arena[c.next].prev = c.prev
	} else {
		b.tail = c.prev
	}
}

// relink reinserts h into the active list using its preserved prev/next.
func (b *Buffer) relink(h ChunkHandle) {
	c := &b.arena[h]
	if c.prev != NoChunk {
		b.arena[c.prev].next = h
	} else {
		b.head = h
	}
	if c.next != NoChunk {
		b.arena[c.next].prev = h
	} else {
		b.tail = h
	}
}

// newChunkAfter allocates a new, initially empty (and therefore detached)
// chunk positioned to splice in immediately after afterH (or at the head
// of the list if afterH is NoChunk). The chunk is not yet linked in — a
// subsequent growChunk call, which relinks on the empty-to-nonempty
// transition, does that.
func (b *Buffer) newChunkAfter(afterH ChunkHandle, allocH alloc.Handle, offset int) ChunkHandle {
	h := ChunkHandle(len(b.arena))
	var next ChunkHandle
	if afterH == NoChunk {
		next = b.head
	} else {
		next = b.arena[afterH].next
	}
	b.arena = append(b.arena, chunkRec{
		allocH: allocH,
		start:  offset,
		end:    offset,
		attrs:  attrstore.New(),
		prev:   afterH,
		next:   next,
	})
	return h
}

func minmax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// adjustChunk applies a raw edge/delta change to chunk h's bounds, handling
// the detach/relink bookkeeping that follows automatically from the
// start==end invariant (see chunkRec's doc comment). It does not touch the
// undo log; callers append a Record themselves (growChunk does both). It
// returns the affected range as a pair of Refs for change notification; a
// shrink reports the gap the removed bytes left as both ends.
func (b *Buffer) adjustChunk(h ChunkHandle, edge undo.Edge, delta int) (Ref, Ref) {
	c := &b.arena[h]
	wasDetached := c.start == c.end

	var lo, hi int
	switch edge {
	case undo.AtEnd:
		old := c.end
		c.end += delta
		lo, hi = minmax(old, c.end)
	case undo.AtStart:
		old := c.start
		c.start -= delta
		lo, hi = minmax(old, c.start)
	}

	nowDetached := c.start == c.end
	switch {
	case wasDetached && !nowDetached:
		b.relink(h)
	case !wasDetached && nowDetached:
		b.detach(h)
	}

	if nowDetached {
		// The chunk no longer occupies any document position; report the
		// collapsed point where it used to sit, preferring its successor.
		var pos Ref
		switch {
		case c.next != NoChunk:
			pos = b.normalize(Ref{Chunk: c.next, Offset: b.arena[c.next].start})
		case c.prev != NoChunk:
			pos = b.normalize(Ref{Chunk: c.prev, Offset: b.arena[c.prev].end})
		default:
			pos = EndOfDocument
		}
		return pos, pos
	}
	if delta < 0 {
		gap := c.end
		if edge == undo.AtStart {
			gap = c.start
		}
		pos := b.normalize(Ref{Chunk: h, Offset: gap})
		return pos, pos
	}
	return b.normalize(Ref{Chunk: h, Offset: lo}), b.normalize(Ref{Chunk: h, Offset: hi})
}

// growChunk applies edge/delta to h and records the reversing undo entry.
// first, if non-nil, is consumed: the emitted record carries First = *first
// and *first is then cleared, threading the "first record of this
// transaction" flag through a whole multi-chunk edit.
func (b *Buffer) growChunk(h ChunkHandle, edge undo.Edge, delta int, first *bool) (Ref, Ref) {
	start, end := b.adjustChunk(h, edge, delta)
	rec := undo.Record{Target: int(h), Edge: edge, Delta: delta}
	if first != nil {
		rec.First = *first
		*first = false
	}
	b.log.Record(rec)
	return start, end
}

// rebaseAttrs returns a copy of set with every key's leading numeric prefix
// shifted by delta. Used when a chunk is split or trimmed: the tail
// attributes inherited by a new sibling are expressed relative to the
// original chunk's coordinate system and must be re-based to the sibling's
// own (zero-origin) coordinates.
func rebaseAttrs(set *attrstore.AttrSet, delta int) *attrstore.AttrSet {
	out := attrstore.New()
	for _, k := range set.Keys() {
		v, _ := set.Find(k)
		_ = out.Set(attrstore.RebaseKey(k, delta), v, 0)
	}
	return out
}

// splitAt splits the chunk at ref into two: ref.Chunk keeps
// [start, ref.Offset) and a new sibling, spliced immediately after it,
// takes [ref.Offset, end). The tail attributes move to the sibling and the
// original's are trimmed at the split offset. It is a no-op if ref already
// sits at a chunk boundary. Returns the sibling's handle, or ref.Chunk
// itself if no split was needed.
func (b *Buffer) splitAt(ref Ref, first *bool) ChunkHandle {
	h := ref.Chunk
	c := &b.arena[h]
	if ref.Offset <= c.start || ref.Offset >= c.end {
		return h
	}
	relOffset := ref.Offset - c.start
	origEnd := c.end

	tailAttrs := rebaseAttrs(c.attrs.CopyTail(relOffset), -relOffset)
	c.attrs.Trim(relOffset)

	sib := b.newChunkAfter(h, c.allocH, ref.Offset)
	b.arena[sib].attrs = tailAttrs
	b.growChunk(sib, undo.AtEnd, origEnd-ref.Offset, first)
	b.growChunk(h, undo.AtEnd, -(origEnd - ref.Offset), first)
	return sib
}
