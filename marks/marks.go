// Package marks implements the multi-group mark system: an ordered set of
// positions anchored to a piece.Buffer, organized into groups, with
// "points" that belong to every group at once. Marks survive edits — the
// buffer's change notifications drive a fixup pass that relocates every
// affected mark.
package marks

import (
	"log/slog"

	"docore/attrstore"
	"docore/logging"
	"docore/piece"
)

// GroupID identifies a mark group. 0 conventionally means "ungrouped";
// group owners such as the line counter pick their own id.
type GroupID int

// SeqNum is a mark's position in the strictly-monotone document-order
// sequence, re-issued in bulk whenever the gap between neighbours is
// exhausted.
type SeqNum int64

// Tie selects which side of same-position marks a new mark is inserted.
type Tie int

const (
	Before Tie = iota
	After
)

type link struct {
	prev, next *Mark
}

// Mark is an ordered, persistent reference into a document. A mark
// belongs to exactly one group unless it is a point, in which case it
// carries one link entry per group it participates in.
type Mark struct {
	seq      SeqNum
	ref      piece.Ref
	rpos     int
	attrs    *attrstore.AttrSet
	userData interface{}

	allPrev, allNext *Mark
	groupLinks       map[GroupID]*link

	manager *Manager
}

// Ref returns the mark's current position.
func (m *Mark) Ref() piece.Ref { return m.ref }

// Seq returns the mark's current sequence number.
func (m *Mark) Seq() SeqNum { return m.seq }

// UserData returns the mark's owner-interpreted payload.
func (m *Mark) UserData() interface{} { return m.userData }

// SetUserData sets the mark's owner-interpreted payload.
func (m *Mark) SetUserData(v interface{}) { m.userData = v }

// Attrs returns the mark's attribute set.
func (m *Mark) Attrs() *attrstore.AttrSet { return m.attrs }

// Rpos returns the mark's opaque rendering sub-position. The core never
// reads or recomputes it: relocating a mark on an edit, including a chunk
// split, leaves it unchanged.
func (m *Mark) Rpos() int { return m.rpos }

// SetRpos sets the mark's opaque rendering sub-position.
func (m *Mark) SetRpos(r int) { m.rpos = r }

// IsPoint reports whether m belongs to more than one group.
func (m *Mark) IsPoint() bool { return len(m.groupLinks) > 1 }

// Groups returns the groups m currently belongs to.
func (m *Mark) Groups() []GroupID {
	out := make([]GroupID, 0, len(m.groupLinks))
	for g := range m.groupLinks {
		out = append(out, g)
	}
	return out
}

// Next returns the next mark in group, or nil at the group's end.
func (m *Mark) Next(group GroupID) *Mark {
	l := m.groupLinks[group]
	if l == nil {
		return nil
	}
	return l.next
}

// Prev returns the previous mark in group, or nil at the group's start.
func (m *Mark) Prev(group GroupID) *Mark {
	l := m.groupLinks[group]
	if l == nil {
		return nil
	}
	return l.prev
}

// Group is one group's sublist of marks, in document order.
type Group struct {
	id         GroupID
	head, tail *Mark
	manager    *Manager
}

// First returns the first mark of the group, or nil if empty.
func (g *Group) First() *Mark { return g.head }

// Last returns the last mark of the group, or nil if empty.
func (g *Group) Last() *Mark { return g.tail }

// Len counts the marks in the group by walking it; groups in this editor
// are expected to stay small (hundreds, not millions of marks), so this
// is not cached.
func (g *Group) Len() int {
	n := 0
	for m := g.head; m != nil; m = m.groupLinks[g.id].next {
		n++
	}
	return n
}

// Manager owns the document-order mark list and every group's sublist for
// one piece.Buffer, and is the sole subscriber of its OnChange callback.
type Manager struct {
	buf     *piece.Buffer
	groups  map[GroupID]*Group
	allHead *Mark
	allTail *Mark
	seqStep SeqNum
	logger  *slog.Logger
}

// New creates a mark manager anchored to buf and subscribes to its change
// notifications.
func New(buf *piece.Buffer, logger *slog.Logger) *Manager {
	m := &Manager{
		buf:     buf,
		groups:  map[GroupID]*Group{},
		seqStep: 1 << 20,
		logger:  logging.Default(logger).With(logging.ComponentKey, "marks"),
	}
	buf.OnChange(m.handleChange)
	return m
}

// Group returns (creating if necessary) the sublist for id.
func (m *Manager) Group(id GroupID) *Group {
	g, ok := m.groups[id]
	if !ok {
		g = &Group{id: id, manager: m}
		m.groups[id] = g
	}
	return g
}

// NewMark creates a mark in group at end-of-document.
func (m *Manager) NewMark(group GroupID) *Mark {
	return m.MarkAtRef(piece.EndOfDocument, group, After)
}

// MarkAtRef creates a mark in group at ref, positioned before or after any
// existing marks of that group already sitting at ref.
func (m *Manager) MarkAtRef(ref piece.Ref, group GroupID, tie Tie) *Mark {
	ref = m.buf.Normalize(ref)
	mk := &Mark{
		ref:        ref,
		attrs:      attrstore.New(),
		groupLinks: map[GroupID]*link{group: {}},
		manager:    m,
	}
	m.insertIntoAll(mk, tie)
	m.insertIntoGroup(mk, m.Group(group), tie)
	m.assignSeq(mk)
	return mk
}

// Dup creates a new mark co-located with mk, in group.
func (m *Manager) Dup(mk *Mark, group GroupID) *Mark {
	return m.MarkAtRef(mk.ref, group, After)
}

// NewPoint creates a mark belonging to every group in groups simultaneously.
func (m *Manager) NewPoint(groups []GroupID) *Mark {
	mk := &Mark{
		ref:        piece.EndOfDocument,
		attrs:      attrstore.New(),
		groupLinks: make(map[GroupID]*link, len(groups)),
		manager:    m,
	}
	for _, gid := range groups {
		mk.groupLinks[gid] = &link{}
	}
	m.insertIntoAll(mk, After)
	for _, gid := range groups {
		m.insertIntoGroup(mk, m.Group(gid), After)
	}
	m.assignSeq(mk)
	return mk
}

// Free unlinks mk from the document-order list and every group it belongs
// to. mk must not be used afterwards.
func (m *Manager) Free(mk *Mark) {
	if mk.allPrev != nil {
		mk.allPrev.allNext = mk.allNext
	} else {
		m.allHead = mk.allNext
	}
	if mk.allNext != nil {
		mk.allNext.allPrev = mk.allPrev
	} else {
		m.allTail = mk.allPrev
	}
	for gid, l := range mk.groupLinks {
		g := m.groups[gid]
		if l.prev != nil {
			l.prev.groupLinks[gid].next = l.next
		} else if g != nil {
			g.head = l.next
		}
		if l.next != nil {
			l.next.groupLinks[gid].prev = l.prev
		} else if g != nil {
			g.tail = l.prev
		}
	}
	mk.groupLinks = nil
	mk.attrs.Free()
}

// Ordered reports whether a precedes b in document order, by sequence
// number.
func Ordered(a, b *Mark) bool { return a.seq < b.seq }

// Same reports whether a and b denote the same logical position.
func (m *Manager) Same(a, b *Mark) bool { return m.buf.RefEqual(a.ref, b.ref) }

func (m *Manager) insertIntoAll(mk *Mark, tie Tie) {
	var before *Mark
	for cur := m.allHead; cur != nil; cur = cur.allNext {
		cmp := m.buf.Compare(cur.ref, mk.ref)
		if cmp > 0 || (cmp == 0 && tie == Before) {
			before = cur
			break
		}
	}
	if before == nil {
		mk.allPrev = m.allTail
		mk.allNext = nil
		if m.allTail != nil {
			m.allTail.allNext = mk
		} else {
			m.allHead = mk
		}
		m.allTail = mk
		return
	}
	mk.allNext = before
	mk.allPrev = before.allPrev
	if before.allPrev != nil {
		before.allPrev.allNext = mk
	} else {
		m.allHead = mk
	}
	before.allPrev = mk
}

func (m *Manager) insertIntoGroup(mk *Mark, g *Group, tie Tie) {
	var before *Mark
	for cur := g.head; cur != nil; cur = cur.groupLinks[g.id].next {
		cmp := m.buf.Compare(cur.ref, mk.ref)
		if cmp > 0 || (cmp == 0 && tie == Before) {
			before = cur
			break
		}
	}
	l := mk.groupLinks[g.id]
	if before == nil {
		l.prev = g.tail
		l.next = nil
		if g.tail != nil {
			g.tail.groupLinks[g.id].next = mk
		} else {
			g.head = mk
		}
		g.tail = mk
		return
	}
	beforeLink := before.groupLinks[g.id]
	l.next = before
	l.prev = beforeLink.prev
	if beforeLink.prev != nil {
		beforeLink.prev.groupLinks[g.id].next = mk
	} else {
		g.head = mk
	}
	beforeLink.prev = mk
}

// assignSeq gives mk a sequence number strictly between its global-list
// neighbours, renumbering the whole list first if the gap is exhausted.
func (m *Manager) assignSeq(mk *Mark) {
	lo, hi := m.neighbourSeqs(mk)
	if hi-lo < 2 {
		m.renumberAll()
		lo, hi = m.neighbourSeqs(mk)
	}
	mk.seq = lo + (hi-lo)/2
}

func (m *Manager) neighbourSeqs(mk *Mark) (lo, hi SeqNum) {
	if mk.allPrev != nil {
		lo = mk.allPrev.seq
	}
	if mk.allNext != nil {
		hi = mk.allNext.seq
	} else {
		hi = lo + m.seqStep*2
	}
	return lo, hi
}

func (m *Manager) renumberAll() {
	seq := SeqNum(0)
	n := 0
	for cur := m.allHead; cur != nil; cur = cur.allNext {
		cur.seq = seq
		seq += m.seqStep
		n++
	}
	m.logger.Info("mark sequence renumbered", "marks", n)
}
