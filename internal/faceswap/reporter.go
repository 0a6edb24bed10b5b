package faceswap

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusReporter displays transient per-slot status messages.
// Both methods must be safe to call repeatedly.
type StatusReporter interface {
	ShowStatus(ctx context.Context, role Role, text string)
	ClearStatus(role Role)
}

// StatusEvent is one change of a slot's status area.
type StatusEvent struct {
	Role    Role      `json:"role"`
	Text    string    `json:"text"`
	Visible bool      `json:"visible"`
	At      time.Time `json:"at"`
}

// MemoryReporter keeps the current message per slot and the history of changes.
type MemoryReporter struct {
	mu        sync.Mutex
	current   map[Role]string
	history   []StatusEvent
	listeners []func(StatusEvent)
}

func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{current: make(map[Role]string)}
}

// OnChange registers fn to be called after every change. fn must not call back into the reporter.
func (r *MemoryReporter) OnChange(fn func(StatusEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *MemoryReporter) ShowStatus(_ context.Context, role Role, text string) {
	ev := StatusEvent{Role: role, Text: text, Visible: true, At: time.Now()}
	r.mu.Lock()
	r.recordAndUnlock(ev)
}

func (r *MemoryReporter) ClearStatus(role Role) {
	r.mu.Lock()
	if _, visible := r.current[role]; !visible {
		r.mu.Unlock()
		return
	}
	r.recordAndUnlock(StatusEvent{Role: role, Visible: false, At: time.Now()})
}

// recordAndUnlock applies ev and notifies the listeners. It must be called with r.mu
// held and releases it before the listeners run.
func (r *MemoryReporter) recordAndUnlock(ev StatusEvent) {
	if ev.Visible {
		r.current[ev.Role] = ev.Text
	} else {
		delete(r.current, ev.Role)
	}
	r.history = append(r.history, ev)
	listeners := make([]func(StatusEvent), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Current returns the visible message of a slot.
func (r *MemoryReporter) Current(role Role) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.current[role]
	return text, ok
}

// History returns every change in order.
func (r *MemoryReporter) History() []StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusEvent, len(r.history))
	copy(out, r.history)
	return out
}

// Shown returns the texts shown for a slot, oldest first.
func (r *MemoryReporter) Shown(role Role) []string {
	var out []string
	for _, ev := range r.History() {
		if ev.Role == role && ev.Visible {
			out = append(out, ev.Text)
		}
	}
	return out
}

// WriterReporter prints messages as "[role] text" lines. Used by the CLI.
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

func (r *WriterReporter) ShowStatus(_ context.Context, role Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%s] %s\n", role, text)
}

func (r *WriterReporter) ClearStatus(Role) {}
