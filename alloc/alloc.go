// Package alloc implements the allocation pool backing a document's text:
// an unbounded list of immutable, fixed-capacity byte regions with a
// monotonically advancing watermark. Bytes, once written, never move and
// never get overwritten — chunks elsewhere in docore hold stable
// (allocation handle, offset) pairs into this pool for the lifetime of the
// document.
package alloc

import (
	"log/slog"

	"github.com/google/uuid"

	"docore/logging"
)

// Handle identifies one allocation. It is a plain arena index, not a
// pointer, so chunks hold (handle, offset) pairs that stay cheap to copy
// and cheap to validate.
type Handle int

// None is the distinguished invalid handle.
const None Handle = -1

// DefaultBlockSize is the capacity of a freshly created allocation when the
// caller does not need more room than this.
const DefaultBlockSize = 64 * 1024

type allocation struct {
	data []byte
	used int
	tag  uuid.UUID
}

// Pool owns the unbounded list of allocations backing a document's text.
type Pool struct {
	blockSize   int
	allocations []*allocation
	logger      *slog.Logger
}

// New creates an empty pool. blockSize is the default capacity for new
// allocations; if zero or negative, DefaultBlockSize is used.
func New(blockSize int, logger *slog.Logger) *Pool {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Pool{
		blockSize: blockSize,
		logger:    logging.Default(logger).With(logging.ComponentKey, "alloc"),
	}
}

// Latest returns the handle of the most recently created allocation, or
// None if the pool is empty.
func (p *Pool) Latest() Handle {
	if len(p.allocations) == 0 {
		return None
	}
	return Handle(len(p.allocations) - 1)
}

// Remaining reports the free capacity of allocation h.
func (p *Pool) Remaining(h Handle) int {
	a := p.at(h)
	return len(a.data) - a.used
}

// Used reports the current watermark of allocation h.
func (p *Pool) Used(h Handle) int {
	return p.at(h).used
}

// Bytes returns the full backing slice for allocation h. Callers index into
// it with chunk start/end offsets; the slice is never reallocated, so
// previously returned sub-slices remain valid for the pool's lifetime.
func (p *Pool) Bytes(h Handle) []byte {
	return p.at(h).data
}

// Alloc creates a new allocation with capacity at least minCapacity (and at
// least the pool's block size), returning its handle.
func (p *Pool) Alloc(minCapacity int) Handle {
	capacity := p.blockSize
	if minCapacity > capacity {
		capacity = minCapacity
	}
	a := &allocation{data: make([]byte, capacity), tag: uuid.Must(uuid.NewV7())}
	p.allocations = append(p.allocations, a)
	h := Handle(len(p.allocations) - 1)
	p.logger.Info("allocation created", "handle", int(h), "capacity", capacity, "tag", a.tag.String())
	return h
}

// Append writes as many bytes of data as fit in h's remaining capacity,
// never splitting a multi-byte UTF-8 code point at the cut point, and
// advances the watermark. It returns the offset the bytes were written at
// and how many bytes were actually written; the caller must allocate a new
// allocation for any remainder.
func (p *Pool) Append(h Handle, data []byte) (offset int, n int) {
	a := p.at(h)
	room := len(a.data) - a.used
	n = utf8SafeCut(data, room)
	offset = a.used
	copy(a.data[a.used:a.used+n], data[:n])
	a.used += n
	return offset, n
}

// Tag returns a debug-display identifier for allocation h: a UUIDv7 tag
// assigned at allocation time, so panics and docerr messages can name an
// allocation uniquely across a long debug session.
func (p *Pool) Tag(h Handle) string {
	if h == None || int(h) >= len(p.allocations) {
		return "<none>"
	}
	return p.allocations[h].tag.String()
}

func (p *Pool) at(h Handle) *allocation {
	if h == None || int(h) < 0 || int(h) >= len(p.allocations) {
		panic("alloc: invalid handle")
	}
	return p.allocations[h]
}

// utf8SafeCut returns the largest k <= min(max, len(data)) such that
// data[:k] does not split a multi-byte UTF-8 code point. Invalid UTF-8 is
// treated byte-for-byte; malformed input has no code point to protect.
func utf8SafeCut(data []byte, max int) int {
	if max >= len(data) {
		return len(data)
	}
	if max <= 0 {
		return 0
	}
	k := max
	for k > 0 && isUTF8Continuation(data[k]) {
		k--
	}
	return k
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
