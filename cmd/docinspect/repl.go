package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"docore/document"
	"docore/logging"
	"docore/marks"
	"docore/piece"
)

// defaultGroup is the mark group docinspect creates its editing point in.
const defaultGroup marks.GroupID = 1

// repl is a minimal read-eval-print loop over a document.Document,
// driving it only through the exported surface.
type repl struct {
	doc *document.Document
	pt  *marks.Mark

	// filter adjusts per-component log verbosity at runtime via the
	// "loglevel" command. Nil when docinspect was built without a logger
	// (e.g. in tests), in which case the command reports it unavailable.
	filter *logging.LevelControl

	in  *bufio.Scanner
	out io.Writer
}

func runREPL(filePath string, in io.Reader, out io.Writer, logger *slog.Logger, filter *logging.LevelControl) error {
	opts := document.Options{Logger: logger}

	var doc *document.Document
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		doc = document.NewFromBytes(data, opts)
	} else {
		doc = document.New(opts)
	}

	r := &repl{
		doc:    doc,
		filter: filter,
		in:     bufio.NewScanner(in),
		out:    out,
	}
	r.pt = doc.NewPoint([]marks.GroupID{defaultGroup})
	return r.run()
}

func (r *repl) run() error {
	r.printf("docinspect. Type 'help' for commands.\n")
	r.printf("> ")

	for r.in.Scan() {
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			r.printf("> ")
			continue
		}
		if exit := r.execute(line); exit {
			return nil
		}
		r.printf("> ")
	}
	return r.in.Err()
}

func (r *repl) execute(line string) bool {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		r.cmdHelp()
	case "insert":
		r.cmdInsert(args)
	case "delete":
		r.cmdDelete(args)
	case "text":
		r.cmdText()
	case "count":
		r.cmdCount()
	case "marks":
		r.cmdMarks(args)
	case "undo":
		r.cmdUndo()
	case "redo":
		r.cmdRedo()
	case "snapshot":
		r.cmdSnapshot()
	case "loglevel":
		r.cmdLogLevel(args)
	case "exit", "quit":
		return true
	default:
		r.printf("unknown command: %s. Type 'help' for commands.\n", cmd)
	}
	return false
}

func (r *repl) cmdHelp() {
	r.printf(`Commands:
  help               Show this help
  insert TEXT...     Insert TEXT at the current point
  delete N           Delete N bytes at the current point
  text               Print the whole document
  count              Print line/word/char counts for the whole document
  marks [group]      List marks in group (default: the point's own group)
  undo               Undo the last transaction
  redo               Redo the last undone transaction
  snapshot           Print the document's raw byte length and content
  loglevel COMP LVL  Set COMP's log level (debug, info, warn, error) at runtime
  exit               Exit docinspect
`)
}

func (r *repl) cmdInsert(args []string) {
	if len(args) == 0 {
		r.printf("usage: insert TEXT...\n")
		return
	}
	text := strings.Join(args, " ")
	if _, _, err := r.doc.Insert(r.pt, []byte(text)); err != nil {
		r.printf("error: %v\n", err)
	}
}

func (r *repl) cmdDelete(args []string) {
	if len(args) != 1 {
		r.printf("usage: delete N\n")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}
	if _, err := r.doc.Delete(r.pt, n); err != nil {
		r.printf("error: %v\n", err)
	}
}

func (r *repl) cmdText() {
	text, err := r.doc.Text(r.doc.Start(), piece.EndOfDocument)
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}
	r.printf("%s\n", text)
}

func (r *repl) cmdCount() {
	rng := document.Range{Start: r.doc.Start(), End: piece.EndOfDocument}
	lines, words, chars := r.doc.Count(rng)
	r.printf("lines=%d words=%d chars=%d\n", lines, words, chars)
}

func (r *repl) cmdMarks(args []string) {
	group := defaultGroup
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			r.printf("error: %v\n", err)
			return
		}
		group = marks.GroupID(n)
	}

	g := r.doc.Group(group)
	n := 0
	for m := g.First(); m != nil; m = m.Next(group) {
		r.printf("  seq=%d point=%v\n", m.Seq(), m.IsPoint())
		n++
	}
	r.printf("%d mark(s) in group %d\n", n, group)
}

func (r *repl) cmdUndo() {
	res, err := r.doc.Undo()
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}
	r.printf("undo: %s\n", undoKindString(res.Kind))
}

func (r *repl) cmdRedo() {
	res, err := r.doc.Redo()
	if err != nil {
		r.printf("error: %v\n", err)
		return
	}
	r.printf("redo: %s\n", undoKindString(res.Kind))
}

func (r *repl) cmdSnapshot() {
	data := r.doc.Snapshot()
	r.printf("%d byte(s): %q\n", len(data), data)
}

// cmdLogLevel adjusts a component's minimum log level at runtime: turning
// on "document"-level debug logging mid-session without restarting
// docinspect.
func (r *repl) cmdLogLevel(args []string) {
	if r.filter == nil {
		r.printf("loglevel unavailable: no log filter configured\n")
		return
	}
	if len(args) != 2 {
		r.printf("usage: loglevel COMPONENT LEVEL\n")
		return
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(args[1])); err != nil {
		r.printf("error: %v\n", err)
		return
	}
	r.filter.SetLevel(args[0], lvl)
	r.printf("%s log level set to %s\n", args[0], lvl)
}

func undoKindString(k piece.UndoResultKind) string {
	switch k {
	case piece.UndoNone:
		return "none"
	case piece.UndoPartial:
		return "partial"
	case piece.UndoComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func (r *repl) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}
