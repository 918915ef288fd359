package ui

import (
	"context"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/editor"
	"CanvasBoard/internal/interact"
)

// Options configures the window around the editor.
type Options struct {
	// ShareLink is shown in the status bar when the board is shared.
	ShareLink string
	// OnClose runs on the UI goroutine before the window closes.
	OnClose func()
	// OnStyle runs when the user changes the drawing color or width.
	OnStyle func(interact.Style)
}

// RunApp opens the main window for ed and blocks until it is closed.
func RunApp(ctx context.Context, ed *editor.Editor, opts Options) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	myApp := app.NewWithID("io.canvasboard")
	myWindow := myApp.NewWindow("CanvasBoard")
	myWindow.Resize(fyne.NewSize(1280, 800))

	// Create the interactive board widget
	board := NewBoardWidget(ed)

	status := widget.NewLabel("Ready")
	if opts.ShareLink != "" {
		status.SetText("Sharing at " + opts.ShareLink)
	}
	board.OnStatus = status.SetText

	boards := widget.NewSelect(nil, nil)
	refreshBoards := func() {
		ws := ed.Workspace()
		names := []string{}
		ids := map[string]string{}
		active := ""
		for _, b := range ws.Boards() {
			names = append(names, b.Name)
			ids[b.Name] = b.ID
			if b.ID == ws.ActiveID() {
				active = b.Name
			}
		}
		boards.OnChanged = nil
		boards.SetOptions(names)
		boards.SetSelected(active)
		boards.OnChanged = func(name string) {
			if err := ed.SwitchBoard(ids[name]); err != nil {
				dialog.ShowError(err, myWindow)
			}
		}
	}
	refreshBoards()
	newBoard := widget.NewButton("New board", func() {
		if _, err := ed.NewBoard(""); err != nil {
			dialog.ShowError(err, myWindow)
			return
		}
		refreshBoards()
	})

	acts := fileActions(ctx, myWindow, ed, board, refreshBoards)
	acts.StyleChanged = opts.OnStyle
	toolbar := NewToolbar(ed, board, acts)
	top := container.NewVBox(toolbar, NewPromptBar(ctx, ed, board))
	bottom := container.NewBorder(nil, nil, container.NewHBox(boards, newBoard), nil, status)

	// Set up the main layout
	content := container.NewBorder(top, bottom, nil, nil, board)
	myWindow.SetContent(content)

	for _, key := range []fyne.KeyName{fyne.KeyZ, fyne.KeyY, fyne.KeyG} {
		for _, mod := range []fyne.KeyModifier{fyne.KeyModifierShortcutDefault, fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift} {
			myWindow.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod}, board.TypedShortcut)
		}
	}

	myWindow.SetCloseIntercept(func() {
		if opts.OnClose != nil {
			opts.OnClose()
		}
		myWindow.Close()
	})

	go ed.Run(ctx, fyne.Do)
	go board.Animate(ctx)
	log.Println("Window ready")
	myWindow.ShowAndRun()
}
