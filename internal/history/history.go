// Package history keeps an arena of immutable score snapshots with a
// cursor, giving undo/redo without in-place mutation: every edit pushes a
// whole new Score value.
package history

import "github.com/kholin/partita/internal/score"

const defaultCap = 32

type Stack struct {
	versions []*score.Score
	cursor   int // index of the current version, -1 when empty
	limit    int
}

func New() *Stack {
	return NewWithCap(defaultCap)
}

func NewWithCap(limit int) *Stack {
	if limit < 1 {
		limit = 1
	}
	return &Stack{versions: make([]*score.Score, 0, limit), cursor: -1, limit: limit}
}

// Push records a new version, dropping any undone versions ahead of the
// cursor. When the arena is full the oldest version is forgotten.
func (h *Stack) Push(s *score.Score) {
	h.versions = h.versions[:h.cursor+1]
	if len(h.versions) == h.limit {
		copy(h.versions, h.versions[1:])
		h.versions = h.versions[:len(h.versions)-1]
	}
	h.versions = append(h.versions, s)
	h.cursor = len(h.versions) - 1
}

// Current returns the version at the cursor, nil when empty.
func (h *Stack) Current() *score.Score {
	if h.cursor < 0 {
		return nil
	}
	return h.versions[h.cursor]
}

func (h *Stack) CanUndo() bool { return h.cursor > 0 }
func (h *Stack) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.versions)-1 }

// Undo moves the cursor back one version and returns it; nil if there is
// nothing to undo.
func (h *Stack) Undo() *score.Score {
	if !h.CanUndo() {
		return nil
	}
	h.cursor--
	return h.versions[h.cursor]
}

// Redo moves the cursor forward one version and returns it; nil if there
// is nothing to redo.
func (h *Stack) Redo() *score.Score {
	if !h.CanRedo() {
		return nil
	}
	h.cursor++
	return h.versions[h.cursor]
}

func (h *Stack) Len() int { return len(h.versions) }
