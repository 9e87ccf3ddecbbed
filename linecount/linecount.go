// Package linecount maintains line, word, and character counts over a
// piece.Buffer: a dedicated mark group whose marks act as sparse
// checkpoints roughly every N lines, each caching the counts of the span
// from itself to the next checkpoint. Edits invalidate the affected
// checkpoints' caches cheaply; queries walk checkpoints summing cached
// values and recomputing only what the cache has lost, falling back to a
// direct scan for anything not aligned to a checkpoint boundary.
package linecount

import (
	"log/slog"
	"unicode"

	"docore/logging"
	"docore/marks"
	"docore/piece"
)

// DefaultScatterLines is the approximate number of lines between
// checkpoint marks.
const DefaultScatterLines = 50

// DefaultMergeThreshold is the line count under which two adjacent
// segments are merged by discarding the checkpoint between them.
const DefaultMergeThreshold = 10

// Range is a half-open span of the document, [Start, End).
type Range struct {
	Start, End piece.Ref
}

// segmentCache is the per-checkpoint cached count of the span from that
// checkpoint up to its successor (or end-of-document). A nil UserData, or
// one that fails the type assertion, means "needs recount".
type segmentCache struct {
	lines, words, chars int
}

// Counter is the Line Counter: a dedicated mark group layered on a
// marks.Manager, with checkpoints scattered through the document.
type Counter struct {
	buf            *piece.Buffer
	mgr            *marks.Manager
	group          marks.GroupID
	scatterLines   int
	mergeThreshold int
	logger         *slog.Logger
}

// New creates a Counter over buf's marks, using group as its dedicated
// mark group id. scatterLines and mergeThreshold fall back to the package
// defaults when given as zero. The buffer's existing content, if any, is
// seeded with checkpoints immediately.
func New(buf *piece.Buffer, mgr *marks.Manager, group marks.GroupID, scatterLines, mergeThreshold int, logger *slog.Logger) *Counter {
	if scatterLines <= 0 {
		scatterLines = DefaultScatterLines
	}
	if mergeThreshold <= 0 {
		mergeThreshold = DefaultMergeThreshold
	}
	c := &Counter{
		buf:            buf,
		mgr:            mgr,
		group:          group,
		scatterLines:   scatterLines,
		mergeThreshold: mergeThreshold,
		logger:         logging.Default(logger).With(logging.ComponentKey, "linecount"),
	}
	buf.OnChange(c.handleChange)
	c.seed()
	return c
}

// Reseed scatters additional checkpoints over the buffer's current content.
// Checkpoints are only ever discarded by merging, never added, as part of
// ordinary edits; callers that bulk-load text after construction (loading a
// file into an already-open document, say) call this once afterwards to
// restore the approximately-every-scatterLines density.
func (c *Counter) Reseed() {
	c.seed()
}

func (c *Counter) seed() {
	g := c.mgr.Group(c.group)
	added := 0

	if head := c.buf.Head(); head != piece.NoChunk {
		zero := piece.Ref{Chunk: head, Offset: 0}
		if !c.hasCheckpointAt(zero) {
			c.mgr.MarkAtRef(zero, c.group, marks.Before)
			added++
		}
	} else if g.First() == nil {
		// No chunk exists yet to pin an offset-0 ref into; the sentinel
		// floats with end-of-document until real content lands, at which
		// point a later seed()/Reseed() call anchors a proper doc-start
		// checkpoint alongside it.
		c.mgr.MarkAtRef(piece.EndOfDocument, c.group, marks.After)
		added++
	}

	data := c.buf.Snapshot()
	lineNum := 0
	for i, b := range data {
		if b != '\n' {
			continue
		}
		lineNum++
		if lineNum%c.scatterLines != 0 {
			continue
		}
		ref := c.buf.RefAtOffset(i + 1)
		if !c.hasCheckpointAt(ref) {
			c.mgr.MarkAtRef(ref, c.group, marks.After)
			added++
		}
	}

	c.logger.Debug("checkpoints seeded", "added", added, "bytes", len(data))
}

// hasCheckpointAt reports whether the group already has a checkpoint at
// ref, so that seed (called again via Reseed after a bulk load) does not
// scatter duplicate checkpoints over text it has already seen.
func (c *Counter) hasCheckpointAt(ref piece.Ref) bool {
	for m := c.mgr.Group(c.group).First(); m != nil; m = m.Next(c.group) {
		if c.buf.RefEqual(m.Ref(), ref) {
			return true
		}
	}
	return false
}

// handleChange is the Piece Table's OnChange callback. It clears the cache
// of the checkpoint immediately before the edit, plus every checkpoint
// sitting exactly at the reported position: a deletion collapses all the
// checkpoints that were inside the removed span onto the gap, and each of
// their cached segments is gone or truncated. This runs after the Mark
// System's own fixup pass, so checkpoint refs are already relocated.
func (c *Counter) handleChange(start, end piece.Ref) {
	g := c.mgr.Group(c.group)
	var preceding *marks.Mark
	for m := g.First(); m != nil; m = m.Next(c.group) {
		cmp := c.buf.Compare(m.Ref(), start)
		if cmp > 0 {
			break
		}
		if cmp == 0 {
			m.SetUserData(nil)
			continue
		}
		preceding = m
	}
	if preceding != nil {
		preceding.SetUserData(nil)
	}
}

// Count returns the line, word, and char counts of rng, summing cached
// checkpoint segments where possible and recomputing the rest directly.
// Adjacent cached segments that both fall under the merge threshold are
// folded together, discarding the checkpoint between them.
func (c *Counter) Count(rng Range) (lines, words, chars int) {
	rng.Start = c.buf.Normalize(rng.Start)
	rng.End = c.buf.Normalize(rng.End)
	g := c.mgr.Group(c.group)

	var m0 *marks.Mark
	for m := g.First(); m != nil; m = m.Next(c.group) {
		if c.buf.Compare(m.Ref(), rng.Start) >= 0 {
			m0 = m
			break
		}
	}

	// No checkpoint inside the range at all: compute it directly.
	if m0 == nil || c.buf.Compare(m0.Ref(), rng.End) > 0 {
		return c.Recount(rng)
	}

	if !c.buf.RefEqual(m0.Ref(), rng.Start) {
		lines, words, chars = c.Recount(Range{Start: rng.Start, End: m0.Ref()})
	}

	// pos tracks the first position not yet accounted for.
	pos := m0.Ref()
	m := m0
	for m != nil {
		next := m.Next(c.group)
		segEnd := piece.EndOfDocument
		if next != nil {
			segEnd = next.Ref()
		}
		if c.buf.Compare(segEnd, rng.End) > 0 {
			break
		}

		l, w, ch := c.ensureCached(m)

		if next != nil {
			nl, nw, nch := c.ensureCached(next)
			if l < c.mergeThreshold && nl < c.mergeThreshold {
				l, w, ch = l+nl, w+nw, ch+nch
				c.mgr.Free(next)
				m.SetUserData(&segmentCache{lines: l, words: w, chars: ch})
				continue
			}
		}

		lines += l
		words += w
		chars += ch
		pos = segEnd
		m = next
	}

	if c.buf.Compare(pos, rng.End) < 0 {
		l, w, ch := c.Recount(Range{Start: pos, End: rng.End})
		lines += l
		words += w
		chars += ch
	}

	return lines, words, chars
}

// ensureCached returns m's cached segment count, from m to its next
// checkpoint (or end-of-document), recomputing and storing it if the cache
// was cleared.
func (c *Counter) ensureCached(m *marks.Mark) (lines, words, chars int) {
	if sc, ok := m.UserData().(*segmentCache); ok && sc != nil {
		return sc.lines, sc.words, sc.chars
	}
	end := piece.EndOfDocument
	if next := m.Next(c.group); next != nil {
		end = next.Ref()
	}
	l, w, ch := c.Recount(Range{Start: m.Ref(), End: end})
	m.SetUserData(&segmentCache{lines: l, words: w, chars: ch})
	return l, w, ch
}

// Recount computes rng's line, word, and char counts directly from the
// buffer's text, bypassing checkpoint caches entirely. Exposed as the
// primitive underlying both the tail fragment of Count and, via the
// document package, a caller-visible "recompute and verify" operation.
func (c *Counter) Recount(rng Range) (lines, words, chars int) {
	text, err := c.buf.Text(rng.Start, rng.End)
	if err != nil {
		return 0, 0, 0
	}
	return scanCounts(text)
}

// scanCounts classifies text: a line is terminated by '\n'; a word is a
// maximal run of printable, non-whitespace code points; chars counts code
// points, not bytes.
func scanCounts(text string) (lines, words, chars int) {
	inWord := false
	for _, r := range text {
		chars++
		if r == '\n' {
			lines++
		}
		printable := unicode.IsPrint(r) && !unicode.IsSpace(r)
		if printable {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return lines, words, chars
}
