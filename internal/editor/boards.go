package editor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

// SwitchBoard snapshots the live board and opens board id. History
// restarts on the incoming board.
func (e *Editor) SwitchBoard(id string) error {
	if id == e.ws.ActiveID() {
		return nil
	}
	e.ctl.Finish()
	b, err := e.ws.Switch(id, e.store.Elements())
	if err != nil {
		return err
	}
	return e.open(b)
}

// NewBoard adds an empty board and switches to it.
func (e *Editor) NewBoard(name string) (state.Board, error) {
	b := e.ws.NewBoard(name)
	if err := e.SwitchBoard(b.ID); err != nil {
		return state.Board{}, err
	}
	return b, nil
}

func (e *Editor) open(b state.Board) error {
	if err := e.store.Replace(b.Elements); err != nil {
		return fmt.Errorf("open board %q: %w", b.Name, err)
	}
	e.history.Reset(e.store.Elements())
	e.ctl.ClearSelection()
	e.ctl.SetViewport(state.DefaultViewport())
	e.reresolve(e.store.Elements())
	logging.Logger().Info("board opened", "board", b.ID, "name", b.Name, "elements", len(b.Elements))
	e.changed()
	return nil
}

// Save writes the workspace, live board included.
func (e *Editor) Save(w io.Writer) error {
	e.ctl.Finish()
	return state.SaveWorkspace(w, e.ws, e.store.Elements())
}

// SaveFile writes the workspace to path through a temporary file.
func (e *Editor) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".canvasboard-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := e.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load replaces the workspace with one read from r and opens its active
// board.
func (e *Editor) Load(r io.Reader) error {
	ws, err := state.LoadWorkspace(r)
	if err != nil {
		return err
	}
	b, err := ws.Active()
	if err != nil {
		return err
	}
	e.ws = ws
	return e.open(b)
}

// LoadFile is Load from a file.
func (e *Editor) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return e.Load(f)
}
