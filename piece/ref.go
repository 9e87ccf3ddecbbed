package piece

// ChunkHandle identifies a chunk inside a Buffer's arena. Chunks are
// referenced by stable handle rather than by address, so detach/relink is
// handle-list surgery instead of pointer surgery, and marks can hold a
// handle without creating cyclic ownership.
type ChunkHandle int

// NoChunk is the distinguished invalid handle, used both for list-end
// sentinels and as the chunk half of the end-of-document Ref.
const NoChunk ChunkHandle = -1

// Ref is a document position: a chunk and an absolute offset into that
// chunk's allocation, with the distinguished value {NoChunk, 0} denoting
// end-of-document.
type Ref struct {
	Chunk  ChunkHandle
	Offset int
}

// EndOfDocument is the canonical end-of-document position.
var EndOfDocument = Ref{Chunk: NoChunk, Offset: 0}

// normalize canonicalizes ref so that a position sitting exactly at a
// chunk's end is always rewritten as the start of the following chunk, or
// EndOfDocument if there is none. This is what makes two refs straddling a
// chunk boundary denote the same logical position, and keeps every other
// method from needing to special-case chunk-end positions.
func (b *Buffer) normalize(ref Ref) Ref {
	for ref.Chunk != NoChunk {
		c := &b.arena[ref.Chunk]
		if ref.Offset != c.end {
			return ref
		}
		if c.next == NoChunk {
			return EndOfDocument
		}
		ref = Ref{Chunk: c.next, Offset: b.arena[c.next].start}
	}
	return EndOfDocument
}

// RefEqual reports whether a and b denote the same logical position.
func (b *Buffer) RefEqual(a, bRef Ref) bool {
	return b.normalize(a) == b.normalize(bRef)
}

// Compare orders two refs by document position: -1 if a precedes b, 0 if
// they denote the same position, 1 if a follows b. Used by the Mark System
// to keep its document-order list sorted without needing its own notion of
// chunk sequencing.
func (b *Buffer) Compare(a, bRef Ref) int {
	a = b.normalize(a)
	bRef = b.normalize(bRef)
	if a == bRef {
		return 0
	}
	if a.Chunk == NoChunk {
		return 1
	}
	if bRef.Chunk == NoChunk {
		return -1
	}
	if a.Chunk == bRef.Chunk {
		if a.Offset < bRef.Offset {
			return -1
		}
		return 1
	}
	for h := b.arena[a.Chunk].next; h != NoChunk; h = b.arena[h].next {
		if h == bRef.Chunk {
			return -1
		}
	}
	return 1
}
