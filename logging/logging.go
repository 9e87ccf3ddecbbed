// Package logging provides the structured logging plumbing shared by the
// document core's components.
//
// Every component takes an optional *slog.Logger and scopes it once at
// construction with a ComponentKey attribute: "alloc", "piece", "marks",
// "linecount", "document". Logging is confined to lifecycle boundaries —
// an allocation being created, a document opening, a bulk mark renumber,
// the undo stack running dry, checkpoints being seeded — never the edit
// hot paths (byte copies, chunk surgery, fixup walks). A nil logger
// degrades to a discard logger, so components never test for one.
//
// Global configuration (output format, destination, verbosity) belongs to
// the embedding application's main(). Components must not call
// slog.SetDefault or reach for package-level loggers.
//
// LevelControl is the application's verbosity knob over that taxonomy: it
// wraps the output handler and gates each component's records against its
// own adjustable threshold, so a debug session can raise, say, the mark
// system's verbosity alone while an edit bug is reproduced, without
// restarting and without drowning in the other components' output.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// ComponentKey is the attribute key every component attaches its name
// under, and the key LevelControl gates on.
const ComponentKey = "component"

// Discard returns a logger that drops everything. Components fall back to
// it when the embedding application provides no logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Default returns logger if non-nil and a discard logger otherwise. Every
// component constructor runs its optional logger through this before
// scoping it:
//
//	logger := logging.Default(opts.Logger).With(logging.ComponentKey, "piece")
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// LevelControl wraps an output handler and gates each component's records
// against a runtime-adjustable per-component threshold.
//
// The component is captured at the moment a logger is scoped with
// With(ComponentKey, name), which is how every docore component builds
// its logger. That means the gate runs in Enabled — a suppressed record
// is never even assembled — and no record's attributes are ever scanned.
// The trade-off is that a component name passed as a per-call attribute
// instead of via With is not seen by the gate; nothing in this module
// logs that way.
//
// Records from loggers never scoped to a component gate against the
// default threshold.
type LevelControl struct {
	next slog.Handler

	mu        sync.Mutex
	def       slog.Level
	overrides map[string]slog.Level
}

// NewLevelControl creates a control writing to next, with def as the
// threshold for components without an override. next should itself be
// wide open (a text handler at LevelDebug, say); the control makes the
// level decisions.
func NewLevelControl(next slog.Handler, def slog.Level) *LevelControl {
	return &LevelControl{next: next, def: def, overrides: map[string]slog.Level{}}
}

// SetLevel overrides the threshold for one component. It takes effect
// immediately for every logger already scoped to that component: handlers
// derived from this control hold no level state of their own and read
// through on every check.
func (c *LevelControl) SetLevel(component string, level slog.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[component] = level
}

// ClearLevel drops a component's override, reverting it to the default
// threshold. Clearing a component that has no override is a no-op.
func (c *LevelControl) ClearLevel(component string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overrides, component)
}

// Level reports the threshold currently in effect for component.
func (c *LevelControl) Level(component string) slog.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.overrides[component]; ok {
		return l
	}
	return c.def
}

// DefaultLevel reports the threshold for components without an override.
func (c *LevelControl) DefaultLevel() slog.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.def
}

// Enabled gates records from loggers never scoped to a component.
func (c *LevelControl) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= c.DefaultLevel()
}

func (c *LevelControl) Handle(ctx context.Context, r slog.Record) error {
	return c.next.Handle(ctx, r)
}

// WithAttrs scopes the handler. An attribute under ComponentKey selects
// which threshold subsequent records gate against.
func (c *LevelControl) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{
		ctl:       c,
		next:      c.next.WithAttrs(attrs),
		component: componentAttr(attrs),
	}
}

func (c *LevelControl) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	return &componentHandler{ctl: c, next: c.next.WithGroup(name)}
}

// componentHandler is a LevelControl view bound to one component (or to
// none, gating on the default level).
type componentHandler struct {
	ctl       *LevelControl
	next      slog.Handler
	component string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.ctl.Level(h.component)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

// WithAttrs keeps the bound component unless the new attributes rebind it.
func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := componentAttr(attrs)
	if component == "" {
		component = h.component
	}
	return &componentHandler{ctl: h.ctl, next: h.next.WithAttrs(attrs), component: component}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &componentHandler{ctl: h.ctl, next: h.next.WithGroup(name), component: h.component}
}

func componentAttr(attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == ComponentKey {
			if s, ok := a.Value.Resolve().Any().(string); ok {
				return s
			}
		}
	}
	return ""
}
