// Package journal records every face swap job handed to the backend.
package journal

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/faceswap/internal/synth"
)

// Entry is one dispatched job.
type Entry struct {
	ID          string                `json:"id"`
	PanelID     string                `json:"panel_id"`
	SubmittedAt time.Time             `json:"submitted_at"`
	Request     synth.FaceSwapRequest `json:"request"`
}

// Journal stores dispatched jobs.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
	// List returns the newest entries first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Memory is a process-local Journal.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.entries)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
