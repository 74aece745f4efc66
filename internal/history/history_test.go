package history

import (
	"fmt"
	"testing"

	"github.com/kholin/partita/internal/score"
)

func version(n int) *score.Score {
	return &score.Score{Title: fmt.Sprintf("v%d", n)}
}

func TestEmptyStack(t *testing.T) {
	h := New()
	if h.Current() != nil {
		t.Error("empty stack has a current version")
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("empty stack claims undo/redo")
	}
	if h.Undo() != nil || h.Redo() != nil {
		t.Error("undo/redo on empty stack returned a version")
	}
}

func TestUndoRedo(t *testing.T) {
	h := New()
	a, b, c := version(1), version(2), version(3)
	h.Push(a)
	h.Push(b)
	h.Push(c)

	if h.Current() != c {
		t.Fatal("current not the last push")
	}
	if h.Undo() != b || h.Undo() != a {
		t.Fatal("undo order wrong")
	}
	if h.CanUndo() {
		t.Error("can undo past the oldest version")
	}
	if h.Redo() != b || h.Redo() != c {
		t.Fatal("redo order wrong")
	}
	if h.CanRedo() {
		t.Error("can redo past the newest version")
	}
}

func TestPushTruncatesRedo(t *testing.T) {
	h := New()
	h.Push(version(1))
	h.Push(version(2))
	h.Undo()

	d := version(4)
	h.Push(d)
	if h.CanRedo() {
		t.Error("redo survived a push")
	}
	if h.Current() != d || h.Len() != 2 {
		t.Fatalf("current %v len %d, want v4 and 2", h.Current().Title, h.Len())
	}
}

func TestCapacityForgetsOldest(t *testing.T) {
	h := NewWithCap(3)
	versions := make([]*score.Score, 5)
	for i := range versions {
		versions[i] = version(i)
		h.Push(versions[i])
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want capped at 3", h.Len())
	}
	// Undo bottoms out at the oldest retained version.
	h.Undo()
	h.Undo()
	if h.CanUndo() {
		t.Error("undo past the retention limit")
	}
	if h.Current() != versions[2] {
		t.Fatalf("oldest retained = %v, want v2", h.Current().Title)
	}
}
