package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"CanvasBoard/internal/editor"
	"CanvasBoard/internal/export"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/state"
)

var (
	imageFilter     = storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"})
	workspaceFilter = storage.NewExtensionFileFilter([]string{".json"})
	pdfFilter       = storage.NewExtensionFileFilter([]string{".pdf"})
)

// fileActions wires the toolbar's file buttons to native dialogs.
func fileActions(ctx context.Context, win fyne.Window, ed *editor.Editor, board *BoardWidget, refresh func()) Actions {
	return Actions{
		AddImage: func() {
			d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
				if err != nil || r == nil {
					return
				}
				path, name := r.URI().Path(), r.URI().Name()
				r.Close()
				ed.AddImage(ctx, path, func(_ state.Element, err error) {
					if err != nil {
						dialog.ShowError(err, win)
						return
					}
					board.status("Added " + name)
				})
			}, win)
			d.SetFilter(imageFilter)
			d.Show()
		},
		Export: func() {
			d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
				if err != nil || w == nil {
					return
				}
				defer w.Close()
				opts := export.DefaultOptions()
				opts.Title = activeName(ed)
				if err := export.ExportPDF(w, ed.Store().Elements(), opts); err != nil {
					dialog.ShowError(err, win)
					return
				}
				log.Printf("Exported board to %s", w.URI().Path())
				board.status("Exported " + w.URI().Name())
			}, win)
			d.SetFilter(pdfFilter)
			d.SetFileName(activeName(ed) + ".pdf")
			d.Show()
		},
		Save: func() {
			d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
				if err != nil || w == nil {
					return
				}
				path, name := w.URI().Path(), w.URI().Name()
				w.Close()
				if err := ed.SaveFile(path); err != nil {
					dialog.ShowError(err, win)
					return
				}
				board.status("Saved " + name)
			}, win)
			d.SetFilter(workspaceFilter)
			d.SetFileName("workspace.json")
			d.Show()
		},
		Load: func() {
			d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
				if err != nil || r == nil {
					return
				}
				defer r.Close()
				if err := ed.Load(r); err != nil {
					dialog.ShowError(fmt.Errorf("load %s: %w", r.URI().Name(), err), win)
					return
				}
				refresh()
				board.status("Loaded " + r.URI().Name())
			}, win)
			d.SetFilter(workspaceFilter)
			d.Show()
		},
		FindShared: func() { findShared(win, board) },
	}
}

// browseTimeout bounds one LAN lookup for shared boards.
const browseTimeout = 3 * time.Second

// findShared looks for boards shared on the local network and lists their
// viewer links.
func findShared(win fyne.Window, board *BoardWidget) {
	board.status("Looking for shared boards…")
	go func() {
		var lines []string
		err := boardnet.Browse(browseTimeout, func(f boardnet.Found) {
			name := f.Board
			if name == "" {
				name = f.Addr
			}
			lines = append(lines, name+": "+f.URL)
		})
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(fmt.Errorf("browse: %w", err), win)
				return
			}
			board.status(fmt.Sprintf("Found %d shared boards", len(lines)))
			if len(lines) == 0 {
				return
			}
			dialog.ShowInformation("Shared boards", strings.Join(lines, "\n"), win)
		})
	}()
}

func activeName(ed *editor.Editor) string {
	b, err := ed.Workspace().Active()
	if err != nil || b.Name == "" {
		return "board"
	}
	return b.Name
}
