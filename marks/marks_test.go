package marks

import (
	"testing"

	"docore/piece"
)

const (
	groupA GroupID = 1
	groupB GroupID = 2
)

func newTestDoc(t *testing.T, text string) (*piece.Buffer, *Manager) {
	t.Helper()
	buf := piece.New(piece.Options{BlockSize: 16, DebugChecks: true})
	if len(text) > 0 {
		if _, _, err := buf.Insert(piece.EndOfDocument, []byte(text)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return buf, New(buf, nil)
}

func TestNewMarkInsertedInDocumentOrder(t *testing.T) {
	buf, m := newTestDoc(t, "hello world")

	m1 := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 0}, groupA, After)
	m2 := m.NewMark(groupA)

	if !Ordered(m1, m2) {
		t.Fatalf("expected m1 (offset 0) to be ordered before m2 (end-of-document)")
	}
	g := m.Group(groupA)
	if g.First() != m1 || g.Last() != m2 {
		t.Fatalf("group list out of order")
	}
	if g.Len() != 2 {
		t.Fatalf("Group.Len() = %d, want 2", g.Len())
	}
}

func TestPointSpansMultipleGroups(t *testing.T) {
	_, m := newTestDoc(t, "hello")
	p := m.NewPoint([]GroupID{groupA, groupB})

	if !p.IsPoint() {
		t.Fatalf("expected NewPoint result to report IsPoint() == true")
	}
	ga, gb := m.Group(groupA), m.Group(groupB)
	if ga.First() != p || gb.First() != p {
		t.Fatalf("expected the point to be the sole member of both groups")
	}
}

func TestFreeUnlinksFromAllGroups(t *testing.T) {
	_, m := newTestDoc(t, "hello")
	m1 := m.NewMark(groupA)
	m2 := m.NewMark(groupA)
	m.Free(m1)

	g := m.Group(groupA)
	if g.Len() != 1 || g.First() != m2 {
		t.Fatalf("expected only m2 to remain in group after Free(m1)")
	}
}

func TestMarkRelocatesOnInsertBeforeIt(t *testing.T) {
	buf, m := newTestDoc(t, "hello world")
	mk := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 6}, groupA, After) // points at 'w'

	if _, _, err := buf.Insert(piece.Ref{Chunk: buf.Head(), Offset: 0}, []byte("XXX")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	text, err := buf.Text(mk.Ref(), piece.EndOfDocument)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "world" {
		t.Fatalf("mark tracked to %q, want %q", text, "world")
	}
}

func TestMarkSurvivesDeletionOfItsChunk(t *testing.T) {
	buf, m := newTestDoc(t, "hello world")
	mk := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 2}, groupA, After)

	start := piece.Ref{Chunk: buf.Head(), Offset: 0}
	if _, err := buf.Delete(start, 11); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if !buf.RefEqual(mk.Ref(), piece.EndOfDocument) {
		t.Fatalf("expected mark to relocate to end-of-document after its chunk was fully deleted")
	}
}

func TestMarkInSplitTailFollowsItsByte(t *testing.T) {
	buf, m := newTestDoc(t, "abcdefghij")
	mk := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 7}, groupA, After) // points at 'h'

	// Inserting mid-chunk splits it; the mark's byte moves to the split-off
	// sibling and the mark must move with it, not clamp to the split point.
	if _, _, err := buf.Insert(piece.Ref{Chunk: buf.Head(), Offset: 5}, []byte("WXYZ")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	text, err := buf.Text(mk.Ref(), piece.EndOfDocument)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "hij" {
		t.Fatalf("mark tracked to %q, want %q", text, "hij")
	}
}

func TestMarkInDeletedSpanCollapsesToGap(t *testing.T) {
	buf, m := newTestDoc(t, "abcdefghij")
	mk := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 5}, groupA, After)

	// Deleting [3, 8) swallows the mark's byte; it must land on the gap.
	gap, err := buf.Delete(piece.Ref{Chunk: buf.Head(), Offset: 3}, 5)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if !buf.RefEqual(mk.Ref(), gap) {
		t.Fatalf("mark at %+v, want the deletion gap %+v", mk.Ref(), gap)
	}
	text, err := buf.Text(mk.Ref(), piece.EndOfDocument)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "ij" {
		t.Fatalf("mark tracked to %q, want %q", text, "ij")
	}
}

func TestSameAndOrdered(t *testing.T) {
	buf, m := newTestDoc(t, "hello")
	a := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 1}, groupA, After)
	b := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 1}, groupB, After)
	c := m.MarkAtRef(piece.Ref{Chunk: buf.Head(), Offset: 3}, groupA, After)

	if !m.Same(a, b) {
		t.Fatalf("expected marks at the same ref to be Same")
	}
	if !Ordered(a, c) {
		t.Fatalf("expected a (offset 1) to be Ordered before c (offset 3)")
	}
}
