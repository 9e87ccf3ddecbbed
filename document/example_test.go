package document_test

import (
	"fmt"

	"docore/document"
	"docore/marks"
	"docore/piece"
)

// ExampleDocument drives the full edit surface the way a text view would:
// a point carries the cursor, edits go through it, and undo walks one
// transaction back.
func ExampleDocument() {
	d := document.New(document.Options{})
	pt := d.NewPoint([]marks.GroupID{1})

	d.Insert(pt, []byte("hello, piece table\n"))
	d.Insert(pt, []byte("goodbye\n"))

	lines, words, chars := d.Count(document.Range{Start: d.Start(), End: piece.EndOfDocument})
	fmt.Printf("%q\n", d.Snapshot())
	fmt.Printf("lines=%d words=%d chars=%d\n", lines, words, chars)

	for {
		res, _ := d.Undo()
		if res.Kind != piece.UndoPartial {
			break
		}
	}
	fmt.Printf("after undo: %q\n", d.Snapshot())

	// Output:
	// "hello, piece table\ngoodbye\n"
	// lines=2 words=4 chars=27
	// after undo: "hello, piece table\n"
}

// ExampleDocument_onChange shows the observer contract: every mutating
// operation reports the initiating point (nil for undo/redo) and the
// changed range, after all chunk mutations are complete.
func ExampleDocument_onChange() {
	d := document.New(document.Options{})
	pt := d.NewPoint([]marks.GroupID{1})

	d.OnChange(func(point *marks.Mark, start, end piece.Ref) {
		changed, _ := d.Text(start, end)
		fmt.Printf("changed=%q point=%v\n", changed, point != nil)
	})

	d.Insert(pt, []byte("abc"))
	d.Undo()

	// Output:
	// changed="abc" point=true
	// changed="" point=false
}
