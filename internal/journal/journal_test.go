package journal

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/faceswap/internal/synth"
)

func TestMemory_ListNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.png", "b.png", "c.png"} {
		err := m.Record(ctx, Entry{
			ID:          name,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Request:     synth.FaceSwapRequest{TargetContent: name},
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := m.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Request.TargetContent != "c.png" {
		t.Errorf("expected newest entry first, got %s", entries[0].Request.TargetContent)
	}
}

func TestMemory_ListLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		m.Record(ctx, Entry{ID: id})
	}

	entries, _ := m.List(ctx, 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "3" || entries[1].ID != "2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestMemory_ListReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Record(ctx, Entry{ID: "1"})

	entries, _ := m.List(ctx, 0)
	entries[0].ID = "changed"

	again, _ := m.List(ctx, 0)
	if again[0].ID != "1" {
		t.Error("expected stored entry to be unaffected by caller changes")
	}
}
