package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultHistoryCapacity is the number of snapshots kept before the oldest
// is evicted.
const DefaultHistoryCapacity = 50

// History is a linear undo/redo log of element-list snapshots. Each entry is
// the JSON form of the list, so decoded media handles never enter it and
// entries cannot be mutated once written.
type History struct {
	capacity int
	entries  [][]byte
	index    int
}

// NewHistory creates an empty history. A capacity below one uses
// DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, index: -1}
}

// Serialize returns the snapshot form of an element list.
func Serialize(elements []Element) ([]byte, error) {
	if elements == nil {
		elements = []Element{}
	}
	return json.Marshal(elements)
}

// Deserialize decodes a snapshot. Media handles are nil in the result.
func Deserialize(data []byte) ([]Element, error) {
	var out []Element
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return out, nil
}

// Push records a snapshot of elements. It reports false, and records
// nothing, when the snapshot equals the current entry. Entries after the
// current index (the redo branch) are dropped.
func (h *History) Push(elements []Element) bool {
	data, err := Serialize(elements)
	if err != nil {
		return false
	}
	if h.index >= 0 && bytes.Equal(h.entries[h.index], data) {
		return false
	}
	h.entries = append(h.entries[:h.index+1], data)
	if len(h.entries) > h.capacity {
		drop := len(h.entries) - h.capacity
		h.entries = append([][]byte(nil), h.entries[drop:]...)
	}
	h.index = len(h.entries) - 1
	return true
}

// Reset discards every entry and seeds the log with elements, as done when a
// board is loaded or switched.
func (h *History) Reset(elements []Element) {
	h.entries = nil
	h.index = -1
	h.Push(elements)
}

// Undo steps back one entry and returns its elements. It reports false at
// the start of history.
func (h *History) Undo() ([]Element, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.index--
	return h.current()
}

// Redo steps forward one entry. It reports false at the end of history.
func (h *History) Redo() ([]Element, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.index++
	return h.current()
}

func (h *History) current() ([]Element, bool) {
	els, err := Deserialize(h.entries[h.index])
	if err != nil {
		return nil, false
	}
	return els, true
}

// CanUndo reports whether Undo would move.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether Redo would move.
func (h *History) CanRedo() bool { return h.index >= 0 && h.index < len(h.entries)-1 }

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry, -1 when empty.
func (h *History) Index() int { return h.index }

// Capacity returns the maximum number of entries.
func (h *History) Capacity() int { return h.capacity }
