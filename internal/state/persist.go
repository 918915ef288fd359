package state

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"CanvasBoard/internal/logging"
)

const workspaceVersion = 1

// workspaceFile is the on-disk form of a workspace.
type workspaceFile struct {
	Version  int              `json:"version"`
	SavedAt  time.Time        `json:"saved_at"`
	ActiveID string           `json:"active_board_id"`
	Boards   []PersistedBoard `json:"boards"`
}

// SaveWorkspace writes every board, handles stripped, as indented JSON.
// current is the live element list of the active board.
func SaveWorkspace(w io.Writer, ws *Workspace, current []Element) error {
	if err := ws.Snapshot(current); err != nil {
		return err
	}
	file := workspaceFile{
		Version:  workspaceVersion,
		SavedAt:  time.Now().UTC(),
		ActiveID: ws.ActiveID(),
	}
	for _, b := range ws.Boards() {
		file.Boards = append(file.Boards, SerializeBoard(b))
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write workspace: %w", err)
	}
	logging.Logger().Info("workspace saved", "boards", len(file.Boards), "bytes", len(data))
	return nil
}

// LoadWorkspace reads a workspace written by SaveWorkspace.
func LoadWorkspace(r io.Reader) (*Workspace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var file workspaceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	if file.Version > workspaceVersion {
		return nil, fmt.Errorf("decode workspace: unsupported version %d", file.Version)
	}
	if len(file.Boards) == 0 {
		return nil, fmt.Errorf("decode workspace: %w", ErrNoActiveBoard)
	}

	ws := &Workspace{}
	for _, p := range file.Boards {
		b, err := RestoreBoard(p)
		if err != nil {
			return nil, err
		}
		ws.boards = append(ws.boards, &b)
	}
	ws.activeID = file.ActiveID
	if ws.findLocked(ws.activeID) == nil {
		ws.activeID = ws.boards[0].ID
	}
	logging.Logger().Info("workspace loaded", "boards", len(ws.boards), "active", ws.activeID)
	return ws, nil
}
