package ui

import (
	"context"
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CanvasBoard/internal/editor"
	"CanvasBoard/internal/interact"
	"CanvasBoard/internal/state"
)

var palette = []color.NRGBA{
	{R: 0x11, G: 0x11, B: 0x11, A: 255},
	{R: 0xef, G: 0x44, B: 0x44, A: 255},
	{R: 0x22, G: 0xc5, B: 0x5e, A: 255},
	{R: 0x3b, G: 0x82, B: 0xf6, A: 255},
	{R: 0xea, G: 0xb3, B: 0x08, A: 255},
}

// hexColor formats c as a CSS #rrggbb string.
func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Actions are the file operations the toolbar triggers. They are provided
// by the app because they need the window for dialogs.
type Actions struct {
	AddImage func()
	Export   func()
	Save     func()
	Load     func()

	// FindShared lists boards shared on the local network.
	FindShared func()

	// StyleChanged runs after the user picks a color or stroke width.
	StyleChanged func(interact.Style)
}

// NewToolbar builds the tool row: mode picker, edit actions, color and
// stroke controls.
func NewToolbar(ed *editor.Editor, board *BoardWidget, acts Actions) fyne.CanvasObject {
	ctl := ed.Controller()

	modes := make([]string, len(interact.Modes))
	for i, m := range interact.Modes {
		modes[i] = string(m)
	}
	modeSelect := widget.NewSelect(modes, func(s string) {
		ctl.SetMode(interact.Mode(s))
		if interact.Mode(s) == interact.ModeCrop && !ctl.Cropping() {
			board.status("Select an image to crop")
		}
	})
	modeSelect.SetSelected(string(ctl.Mode()))

	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { ed.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { ed.Redo() }),
		widget.NewToolbarAction(theme.DeleteIcon(), ctl.DeleteSelection),
		widget.NewToolbarAction(theme.ConfirmIcon(), func() {
			if !ctl.Cropping() {
				return
			}
			if err := ctl.CommitCrop(); err != nil {
				board.status(fmt.Sprintf("Crop failed: %v", err))
			}
		}),
		widget.NewToolbarAction(theme.MoveUpIcon(), ctl.BringToFront),
		widget.NewToolbarAction(theme.MoveDownIcon(), ctl.SendToBack),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FileImageIcon(), acts.AddImage),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), acts.Save),
		widget.NewToolbarAction(theme.FolderOpenIcon(), acts.Load),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), acts.Export),
		widget.NewToolbarAction(theme.SearchIcon(), acts.FindShared),
	)

	// --- Color Palette ---
	onColorTapped := func(c color.Color) {
		st := ctl.Style()
		st.StrokeColor = hexColor(c)
		st.TextColor = st.StrokeColor
		ctl.SetStyle(st)
		if acts.StyleChanged != nil {
			acts.StyleChanged(st)
		}
	}
	colorBox := container.NewHBox()
	for _, c := range palette {
		colorBox.Add(newColorSwatch(c, onColorTapped))
	}

	// --- Stroke Width Slider ---
	strokeSlider := widget.NewSlider(1.0, 50.0)
	strokeSlider.SetValue(ctl.Style().StrokeWidth)
	strokeSlider.OnChanged = func(val float64) {
		st := ctl.Style()
		st.StrokeWidth = val
		ctl.SetStyle(st)
	}
	strokeSlider.OnChangeEnded = func(float64) {
		if acts.StyleChanged != nil {
			acts.StyleChanged(ctl.Style())
		}
	}
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		modeSelect,
		tb,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		layout.NewSpacer(),
	)
}

// NewPromptBar builds the prompt entry with the generation buttons. Edit
// works on the single selected image; Video uses the first selected image
// as start frame and an optional second one as end frame.
func NewPromptBar(ctx context.Context, ed *editor.Editor, board *BoardWidget) fyne.CanvasObject {
	ctl := ed.Controller()
	prompt := widget.NewEntry()
	prompt.SetPlaceHolder("Describe the change…")

	done := func(what string) editor.Done {
		return func(el state.Element, err error) {
			if err != nil {
				board.status(fmt.Sprintf("%s failed: %v", what, err))
				return
			}
			board.status(what + " finished")
		}
	}
	report := func(err error) {
		if err != nil {
			board.status(err.Error())
		}
	}

	edit := widget.NewButton("Edit", func() {
		sel := ctl.Selection()
		if len(sel) != 1 {
			board.status("Select one image to edit")
			return
		}
		report(ed.SubmitEdit(ctx, sel[0], prompt.Text, done("Edit")))
	})
	generate := widget.NewButton("Generate", func() {
		report(ed.SubmitGenerate(ctx, prompt.Text, done("Generate")))
	})
	video := widget.NewButton("Video", func() {
		sel := ctl.Selection()
		if len(sel) == 0 {
			board.status("Select a start image")
			return
		}
		sub := editor.VideoSubmission{Prompt: prompt.Text, StartImageID: sel[0]}
		if len(sel) > 1 {
			sub.EndImageID = sel[1]
		}
		_, err := ed.SubmitVideo(ctx, sub, done("Video"))
		report(err)
	})
	return container.NewBorder(nil, nil, nil, container.NewHBox(edit, generate, video), prompt)
}
