package state

import (
	"fmt"
	"sync"
)

// Board is the unit of persistence: a named element list.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Elements  []Element `json:"elements"`
	SessionID string    `json:"sessionId,omitempty"`
}

// PersistedBoard is a board with every media handle stripped.
type PersistedBoard Board

// SerializeBoard returns the persistable form of b.
func SerializeBoard(b Board) PersistedBoard {
	out := PersistedBoard{ID: b.ID, Name: b.Name, SessionID: b.SessionID}
	out.Elements = make([]Element, len(b.Elements))
	for i, el := range b.Elements {
		out.Elements[i] = el.StripMedia()
	}
	return out
}

// RestoreBoard turns a persisted board back into a live one. Handles stay
// empty; they are resolved lazily when elements become visible.
func RestoreBoard(p PersistedBoard) (Board, error) {
	b := Board{ID: p.ID, Name: p.Name, SessionID: p.SessionID}
	if b.ID == "" {
		b.ID = NewID()
	}
	b.Elements = cloneAll(p.Elements)
	if err := ValidateList(b.Elements); err != nil {
		return Board{}, fmt.Errorf("restore board %q: %w", p.Name, err)
	}
	return b, nil
}

// Workspace holds every board and tracks which one is active.
type Workspace struct {
	mu       sync.RWMutex
	boards   []*Board
	activeID string
}

// NewWorkspace creates a workspace with one empty board.
func NewWorkspace(name string) *Workspace {
	w := &Workspace{}
	b := w.NewBoard(name)
	w.activeID = b.ID
	return w
}

// NewBoard adds an empty board and returns a copy of it. The active board
// does not change.
func (w *Workspace) NewBoard(name string) Board {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("Board %d", len(w.boards)+1)
	}
	b := &Board{ID: NewID(), Name: name, Elements: []Element{}}
	w.boards = append(w.boards, b)
	return copyBoard(*b)
}

// Boards returns copies of every board in creation order.
func (w *Workspace) Boards() []Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Board, len(w.boards))
	for i, b := range w.boards {
		out[i] = copyBoard(*b)
	}
	return out
}

// ActiveID returns the id of the active board.
func (w *Workspace) ActiveID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeID
}

// Active returns a copy of the active board.
func (w *Workspace) Active() (Board, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.findLocked(w.activeID)
	if b == nil {
		return Board{}, ErrNoActiveBoard
	}
	return copyBoard(*b), nil
}

// Snapshot stores current as the active board's element list.
func (w *Workspace) Snapshot(current []Element) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.findLocked(w.activeID)
	if b == nil {
		return ErrNoActiveBoard
	}
	b.Elements = cloneAll(current)
	return nil
}

// Switch snapshots current into the outgoing board, activates id and
// returns a copy of the incoming board.
func (w *Workspace) Switch(id string, current []Element) (Board, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.findLocked(id)
	if next == nil {
		return Board{}, fmt.Errorf("%w: board %s", ErrNotFound, id)
	}
	if out := w.findLocked(w.activeID); out != nil {
		out.Elements = cloneAll(current)
	}
	w.activeID = id
	return copyBoard(*next), nil
}

// Rename changes a board's name.
func (w *Workspace) Rename(id, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.findLocked(id)
	if b == nil {
		return fmt.Errorf("%w: board %s", ErrNotFound, id)
	}
	b.Name = name
	return nil
}

// SetSession records the generation session id of a board.
func (w *Workspace) SetSession(id, session string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.findLocked(id)
	if b == nil {
		return fmt.Errorf("%w: board %s", ErrNotFound, id)
	}
	b.SessionID = session
	return nil
}

// Delete removes a board. The active board can only be deleted when another
// board remains; the first remaining board becomes active.
func (w *Workspace) Delete(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, b := range w.boards {
		if b.ID != id {
			continue
		}
		if len(w.boards) == 1 {
			return fmt.Errorf("%w: cannot delete the last board", ErrNoActiveBoard)
		}
		w.boards = append(w.boards[:i], w.boards[i+1:]...)
		if w.activeID == id {
			w.activeID = w.boards[0].ID
		}
		return nil
	}
	return fmt.Errorf("%w: board %s", ErrNotFound, id)
}

func (w *Workspace) findLocked(id string) *Board {
	for _, b := range w.boards {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func copyBoard(b Board) Board {
	b.Elements = cloneAll(b.Elements)
	return b
}
