package linecount

import (
	"testing"

	"docore/marks"
	"docore/piece"
)

const testGroup marks.GroupID = 7

func newTestDoc(t *testing.T, text string, scatterLines, mergeThreshold int) (*piece.Buffer, *marks.Manager, *Counter) {
	t.Helper()
	buf := piece.New(piece.Options{BlockSize: 16, DebugChecks: true})
	if len(text) > 0 {
		if _, _, err := buf.Insert(piece.EndOfDocument, []byte(text)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	mgr := marks.New(buf, nil)
	c := New(buf, mgr, testGroup, scatterLines, mergeThreshold, nil)
	return buf, mgr, c
}

func wholeRange(buf *piece.Buffer) Range {
	return Range{Start: piece.Ref{Chunk: buf.Head(), Offset: 0}, End: piece.EndOfDocument}
}

func TestRecountMatchesHandCount(t *testing.T) {
	text := "one two\nthree\nfour five six\nseven\n"
	buf, _, c := newTestDoc(t, text, 1, 1)

	lines, words, chars := c.Recount(wholeRange(buf))
	if lines != 4 || words != 7 || chars != 34 {
		t.Fatalf("Recount = (%d,%d,%d), want (4,7,34)", lines, words, chars)
	}
}

func TestCountMatchesRecountAfterSeed(t *testing.T) {
	text := "one two\nthree\nfour five six\nseven\n"
	buf, _, c := newTestDoc(t, text, 1, 1)

	whole := wholeRange(buf)
	wantL, wantW, wantCh := c.Recount(whole)
	gotL, gotW, gotCh := c.Count(whole)
	if gotL != wantL || gotW != wantW || gotCh != wantCh {
		t.Fatalf("Count = (%d,%d,%d), want (%d,%d,%d)", gotL, gotW, gotCh, wantL, wantW, wantCh)
	}
}

func TestCacheInvalidatedOnEdit(t *testing.T) {
	text := "aaaa\nbbbb\ncccc\ndddd\n"
	buf, _, c := newTestDoc(t, text, 1, 1)

	beforeL, _, _ := c.Count(wholeRange(buf))

	if _, _, err := buf.Insert(piece.Ref{Chunk: buf.Head(), Offset: 0}, []byte("zz\n")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	after := wholeRange(buf)
	gotL, gotW, gotCh := c.Count(after)
	wantL, wantW, wantCh := c.Recount(after)
	if gotL != wantL || gotW != wantW || gotCh != wantCh {
		t.Fatalf("Count after edit = (%d,%d,%d), want (%d,%d,%d)", gotL, gotW, gotCh, wantL, wantW, wantCh)
	}
	if gotL == beforeL {
		t.Fatalf("expected line count to change after inserting a new line, got unchanged %d", gotL)
	}
}

func TestSparseSegmentsMergeUnderThreshold(t *testing.T) {
	text := "a\nb\nc\nd\ne\nf\ng\nh\n"
	buf, mgr, c := newTestDoc(t, text, 1, 10)

	before := mgr.Group(testGroup).Len()
	c.Count(wholeRange(buf))
	after := mgr.Group(testGroup).Len()
	if after >= before {
		t.Fatalf("expected merge to reduce checkpoint count: before=%d after=%d", before, after)
	}
}

func TestTailSegmentAlwaysComputedDirectly(t *testing.T) {
	text := "one\ntwo\nthree\nfour\n"
	buf, _, c := newTestDoc(t, text, 2, 1)

	// A range ending mid-segment (not aligned to any checkpoint) must still
	// report the correct counts for its partial tail.
	full := []byte(text)
	rng := Range{Start: piece.Ref{Chunk: buf.Head(), Offset: 0}, End: buf.RefAtOffset(len(full) - 5)}
	gotL, gotW, gotCh := c.Count(rng)
	wantL, wantW, wantCh := c.Recount(rng)
	if gotL != wantL || gotW != wantW || gotCh != wantCh {
		t.Fatalf("Count(partial) = (%d,%d,%d), want (%d,%d,%d)", gotL, gotW, gotCh, wantL, wantW, wantCh)
	}
}

func TestReseedAddsCheckpointsAfterBulkLoad(t *testing.T) {
	buf := piece.New(piece.Options{BlockSize: 16, DebugChecks: true})
	mgr := marks.New(buf, nil)
	c := New(buf, mgr, testGroup, 1, 1, nil)

	if got := mgr.Group(testGroup).Len(); got != 1 {
		t.Fatalf("expected exactly one checkpoint on an empty buffer, got %d", got)
	}

	text := "x\ny\nz\n"
	if _, _, err := buf.Insert(piece.EndOfDocument, []byte(text)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	c.Reseed()

	if got := mgr.Group(testGroup).Len(); got <= 1 {
		t.Fatalf("expected Reseed to add checkpoints for the bulk-loaded lines, got %d", got)
	}

	whole := wholeRange(buf)
	gotL, gotW, gotCh := c.Count(whole)
	wantL, wantW, wantCh := c.Recount(whole)
	if gotL != wantL || gotW != wantW || gotCh != wantCh {
		t.Fatalf("Count after reseed = (%d,%d,%d), want (%d,%d,%d)", gotL, gotW, gotCh, wantL, wantW, wantCh)
	}
}

func TestReseedIsIdempotent(t *testing.T) {
	text := "one\ntwo\nthree\n"
	_, mgr, c := newTestDoc(t, text, 1, 1)

	before := mgr.Group(testGroup).Len()
	c.Reseed()
	after := mgr.Group(testGroup).Len()
	if after != before {
		t.Fatalf("expected Reseed over unchanged content to be a no-op: before=%d after=%d", before, after)
	}
}
