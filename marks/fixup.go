package marks

import "docore/piece"

// handleChange is the buffer's OnChange callback: it locates the boundary
// mark at the change's start in the document-order list, then walks
// backward applying the prior-fixup rule and forward applying the
// posterior-fixup rule.
//
// Each walk stops at the first mark it leaves untouched, with one
// tolerance: marks already pinned at the change locus (equal to start_ref
// or end_ref) do not end the walk. A split leaves every mark in the
// split-off tail with an offset beyond its chunk's new end, and those
// stale marks sit past any marks collapsed onto the reported position;
// stopping at the first untouched mark would strand them.
//
// Relocation rewrites a mark's ref in place rather than re-splicing it
// into the document-order and group lists. The fixup rules only ever move
// a mark to a position inside the edited region or to the new home of the
// bytes it was anchored to, so list order stays correct without a full
// re-sort on every edit.
func (m *Manager) handleChange(start, end piece.Ref) {
	var boundary *Mark
	for cur := m.allHead; cur != nil; cur = cur.allNext {
		if m.buf.Compare(cur.ref, start) >= 0 {
			boundary = cur
			break
		}
	}

	priorStart := m.allTail
	if boundary != nil {
		priorStart = boundary.allPrev
	}
	for mk := priorStart; mk != nil; mk = mk.allPrev {
		if !m.applyPriorFixup(mk, start, end) && !m.buf.RefEqual(mk.ref, start) {
			break
		}
	}

	for mk := boundary; mk != nil; mk = mk.allNext {
		changed := m.applyPosteriorFixup(mk, start, end)
		if !changed && !m.buf.RefEqual(mk.ref, start) && !m.buf.RefEqual(mk.ref, end) {
			break
		}
	}
}

// applyPriorFixup relocates a mark strictly before the reported change,
// if the edit invalidated its position. Returns whether it relocated mk.
func (m *Manager) applyPriorFixup(mk *Mark, start, end piece.Ref) bool {
	c := mk.ref.Chunk
	if c == piece.NoChunk {
		return false
	}
	if m.buf.IsDetached(c) {
		mk.ref = m.buf.Normalize(start)
		return true
	}
	if m.buf.RefEqual(mk.ref, end) {
		mk.ref = m.buf.Normalize(start)
		return true
	}
	cs, ce := m.buf.ChunkBounds(c)
	switch {
	case mk.ref.Offset < cs:
		mk.ref = piece.Ref{Chunk: c, Offset: cs}
		return true
	case mk.ref.Offset > ce:
		mk.ref = m.relocateBeyondEnd(c, mk.ref.Offset)
		return true
	}
	return false
}

// applyPosteriorFixup relocates a mark at or after the reported change,
// if the edit invalidated its position. Returns whether it relocated mk.
func (m *Manager) applyPosteriorFixup(mk *Mark, start, end piece.Ref) bool {
	c := mk.ref.Chunk
	if c == piece.NoChunk {
		return false
	}
	if m.buf.IsDetached(c) {
		next := m.buf.ChunkNext(c)
		for next != piece.NoChunk && m.buf.IsDetached(next) {
			next = m.buf.ChunkNext(next)
		}
		if next != piece.NoChunk {
			ns, _ := m.buf.ChunkBounds(next)
			mk.ref = piece.Ref{Chunk: next, Offset: ns}
		} else {
			mk.ref = m.buf.Normalize(start)
		}
		return true
	}

	cs, ce := m.buf.ChunkBounds(c)
	switch {
	case mk.ref.Offset < cs:
		mk.ref = piece.Ref{Chunk: c, Offset: cs}
		return true
	case mk.ref.Offset > ce:
		mk.ref = m.relocateBeyondEnd(c, mk.ref.Offset)
		return true
	}

	if m.buf.RefEqual(mk.ref, start) && m.buf.Compare(end, start) > 0 {
		mk.ref = m.buf.Normalize(end)
		return true
	}
	return false
}

// relocateBeyondEnd finds the new home of an offset that fell off the end
// of chunk c. When c was split, the bytes at that offset now live in a
// sibling chunk further along the list, backed by the same allocation at
// the same offsets; when they were deleted, no such chunk exists and the
// position collapses to the gap at c's new end. Chunk views never overlap,
// so at most one same-allocation chunk can contain the offset.
func (m *Manager) relocateBeyondEnd(c piece.ChunkHandle, offset int) piece.Ref {
	for h := m.buf.ChunkNext(c); h != piece.NoChunk; h = m.buf.ChunkNext(h) {
		if !m.buf.SameAllocation(c, h) {
			continue
		}
		hs, he := m.buf.ChunkBounds(h)
		if offset >= hs && offset < he {
			return piece.Ref{Chunk: h, Offset: offset}
		}
	}
	_, ce := m.buf.ChunkBounds(c)
	return m.buf.Normalize(piece.Ref{Chunk: c, Offset: ce})
}
