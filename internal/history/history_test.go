package history

import (
	"fmt"
	"testing"

	"pagebuilder/internal/domain"
)

func page(title string) domain.Page {
	return domain.Page{Metadata: domain.PageMetadata{Title: title}}
}

func title(p domain.Page) string { return p.Metadata.Title }

func TestNew(t *testing.T) {
	h := New(page("p0"))

	if h.Len() != 1 || h.Cursor() != 0 {
		t.Fatalf("expected one snapshot at cursor 0, got len=%d cursor=%d", h.Len(), h.Cursor())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("fresh history should not undo or redo")
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo on fresh history should report false")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo on fresh history should report false")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New(page("p0"))
	h.Push(page("m1"))
	h.Push(page("m2"))
	h.Push(page("m3"))

	steps := []struct {
		op   func() (domain.Page, bool)
		want string
	}{
		{h.Undo, "m2"},
		{h.Undo, "m1"},
		{h.Redo, "m2"},
		{h.Redo, "m3"},
	}
	for i, s := range steps {
		got, ok := s.op()
		if !ok || title(got) != s.want {
			t.Fatalf("step %d: got %q (ok=%v), want %q", i, title(got), ok, s.want)
		}
	}
	if h.CanRedo() {
		t.Error("should be at the newest snapshot")
	}
}

func TestPushTruncatesFuture(t *testing.T) {
	h := New(page("p0"))
	h.Push(page("m1"))
	h.Push(page("m2"))
	h.Undo()
	h.Undo()

	h.Push(page("n1"))

	if h.CanRedo() {
		t.Error("redo should be gone after a push")
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", h.Len())
	}
	if got, _ := h.Undo(); title(got) != "p0" {
		t.Errorf("expected p0 before n1, got %q", title(got))
	}
}

func TestCapDropsOldest(t *testing.T) {
	h := New(page("p0"))
	for i := 1; i <= MaxSnapshots+10; i++ {
		h.Push(page(fmt.Sprintf("m%d", i)))
	}

	if h.Len() != MaxSnapshots {
		t.Fatalf("expected %d snapshots, got %d", MaxSnapshots, h.Len())
	}
	if h.Cursor() != MaxSnapshots-1 {
		t.Errorf("cursor = %d, want %d", h.Cursor(), MaxSnapshots-1)
	}
	if title(h.Current()) != fmt.Sprintf("m%d", MaxSnapshots+10) {
		t.Errorf("unexpected current %q", title(h.Current()))
	}

	undos := 0
	var last domain.Page
	for h.CanUndo() {
		last, _ = h.Undo()
		undos++
	}
	if undos != MaxSnapshots-1 {
		t.Errorf("expected %d undos, got %d", MaxSnapshots-1, undos)
	}
	if title(last) != "m11" {
		t.Errorf("oldest retained snapshot = %q, want m11", title(last))
	}
}

func TestReset(t *testing.T) {
	h := New(page("p0"))
	h.Push(page("m1"))

	h.Reset(page("loaded"))

	if h.Len() != 1 || h.CanUndo() || title(h.Current()) != "loaded" {
		t.Errorf("unexpected state after reset: len=%d current=%q", h.Len(), title(h.Current()))
	}
}
