package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanvasBoard/internal/gen"
	"CanvasBoard/internal/media"
	"CanvasBoard/internal/state"
)

type fakeService struct {
	mu       sync.Mutex
	edits    []gen.EditRequest
	videos   []gen.VideoRequest
	result   gen.Result
	err      error
	video    gen.VideoResult
	videoErr error
}

func (f *fakeService) Edit(_ context.Context, req gen.EditRequest) (gen.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, req)
	return f.result, f.err
}

func (f *fakeService) Generate(context.Context, gen.GenerateRequest) (gen.Result, error) {
	return f.result, f.err
}

func (f *fakeService) GenerateVideo(_ context.Context, req gen.VideoRequest, onProgress func(gen.Progress)) (gen.VideoResult, error) {
	f.mu.Lock()
	f.videos = append(f.videos, req)
	f.mu.Unlock()
	onProgress(gen.Progress{Percent: 50})
	return f.video, f.videoErr
}

func (f *fakeService) Models(context.Context) ([]gen.Model, error) { return nil, nil }

func (f *fakeService) lastEdit() (gen.EditRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return gen.EditRequest{}, false
	}
	return f.edits[len(f.edits)-1], true
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func pngData(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newEditor(t *testing.T, svc gen.Service) *Editor {
	t.Helper()
	e, err := New(state.NewWorkspace("Main"), svc)
	require.NoError(t, err)
	return e
}

func add(t *testing.T, e *Editor, els ...state.Element) {
	t.Helper()
	for _, el := range els {
		require.NoError(t, e.Store().Add(el))
	}
	e.Controller().Commit()
}

func pumpUntil(t *testing.T, e *Editor, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		e.Pump()
		return cond()
	}, 5*time.Second, 5*time.Millisecond)
}

func baseImage(t *testing.T) state.Element {
	white := solid(100, 100, color.White)
	el := state.NewImage(media.DataURL("image/png", pngData(t, white)), "image/png", state.Rect{Width: 100, Height: 100})
	el.Image.Handle = white
	return el
}

func TestSubmitEditFlattensAndPlaces(t *testing.T) {
	red := solid(40, 20, color.RGBA{R: 255, A: 255})
	svc := &fakeService{result: gen.Result{Base64: base64.StdEncoding.EncodeToString(pngData(t, red))}}
	e := newEditor(t, svc)

	img := baseImage(t)
	mark := state.NewShape(state.ShapeRectangle, state.Rect{X: 10, Y: 10, Width: 30, Height: 30}, "#ff0000", "#ff0000", 1)
	mark.Locked = true
	loose := state.NewShape(state.ShapeEllipse, state.Rect{X: 50, Y: 50, Width: 10, Height: 10}, "#00ff00", "#00ff00", 1)
	far := state.NewShape(state.ShapeRectangle, state.Rect{X: 500, Y: 500, Width: 10, Height: 10}, "#0000ff", "#0000ff", 1)
	far.Locked = true
	add(t, e, img, mark, loose, far)
	ann := e.Annotations(img.ID)
	require.Len(t, ann, 1)
	assert.Equal(t, mark.ID, ann[0].ID)

	var (
		placed  state.Element
		done    bool
		doneErr error
	)
	require.NoError(t, e.SubmitEdit(context.Background(), img.ID, "make it blue", func(el state.Element, err error) {
		placed, doneErr, done = el, err, true
	}))
	pumpUntil(t, e, func() bool { return done })
	require.NoError(t, doneErr)

	req, ok := svc.lastEdit()
	require.True(t, ok)
	assert.Equal(t, "make it blue", req.Prompt)
	require.Len(t, req.Images, 1)
	data, mt, err := media.ParseDataURL(req.Images[0].Source)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	sent, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, _, _ := sent.At(20, 20).RGBA()
	assert.Greater(t, r, uint32(0xf000))
	assert.Less(t, g, uint32(0x1000))
	r, _, _, _ = sent.At(55, 55).RGBA()
	assert.Greater(t, r, uint32(0xf000), "unlocked shapes are not flattened")

	assert.Equal(t, state.Rect{X: 620, Y: 390, Width: 40, Height: 20}, placed.Rect())
	assert.Equal(t, []string{placed.ID}, e.Controller().Selection())
	got, ok := e.Store().Get(placed.ID)
	require.True(t, ok)
	assert.True(t, got.Resolved())
	assert.Equal(t, 3, e.Controller().History().Len())
}

func TestSubmitEditFailureCreatesNothing(t *testing.T) {
	svc := &fakeService{err: &gen.ServiceError{Status: 400, Message: "prompt rejected"}}
	e := newEditor(t, svc)
	img := baseImage(t)
	add(t, e, img)

	var got error
	require.NoError(t, e.SubmitEdit(context.Background(), img.ID, "x", func(_ state.Element, err error) { got = err }))
	pumpUntil(t, e, func() bool { return got != nil })

	var se *gen.ServiceError
	require.True(t, errors.As(got, &se))
	assert.Equal(t, "prompt rejected", se.Message)
	assert.Equal(t, 1, e.Store().Len())
	assert.Equal(t, 2, e.Controller().History().Len())
}

func TestSubmitRequiresServiceAndImage(t *testing.T) {
	e := newEditor(t, nil)
	assert.ErrorIs(t, e.SubmitEdit(context.Background(), "x", "p", nil), ErrNoService)

	e = newEditor(t, &fakeService{})
	txt := state.NewText(state.Point{}, "hi", 20, "#000")
	add(t, e, txt)
	assert.ErrorIs(t, e.SubmitEdit(context.Background(), txt.ID, "p", nil), ErrNotImage)
	assert.ErrorIs(t, e.SubmitEdit(context.Background(), "missing", "p", nil), state.ErrNotFound)
}

func TestSubmitVideoFillsPlaceholder(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("not really a video"), 0o644))
	svc := &fakeService{video: gen.VideoResult{VideoURL: clip}}
	e := newEditor(t, svc)
	img := baseImage(t)
	add(t, e, img)

	var (
		done    bool
		doneErr error
	)
	id, err := e.SubmitVideo(context.Background(), VideoSubmission{
		Prompt: "zoom in", StartImageID: img.ID, Ratio: "16:9", Duration: 4,
	}, func(_ state.Element, err error) {
		doneErr, done = err, true
	})
	require.NoError(t, err)

	ph, ok := e.Store().Get(id)
	require.True(t, ok)
	assert.True(t, ph.Video.Generating)
	assert.Equal(t, state.Rect{X: 120, Y: 0, Width: 100, Height: 100}, ph.Rect())
	assert.True(t, e.NeedsContinuousRedraw())

	pumpUntil(t, e, func() bool { return done })
	require.NoError(t, doneErr)
	ph, _ = e.Store().Get(id)
	assert.Equal(t, clip, ph.Video.VideoURL)
	assert.False(t, ph.Video.Generating)
	_, running := e.JobProgress(id)
	assert.False(t, running)

	pumpUntil(t, e, func() bool {
		el, _ := e.Store().Get(id)
		return el.Resolved()
	})
	base, _ := e.Store().Get(img.ID)
	assert.Equal(t, "zoom in", base.Image.VideoPrompt)
}

func TestSubmitVideoFailureRemovesPlaceholder(t *testing.T) {
	svc := &fakeService{videoErr: errors.New("backend down")}
	e := newEditor(t, svc)
	img := baseImage(t)
	add(t, e, img)

	var got error
	id, err := e.SubmitVideo(context.Background(), VideoSubmission{StartImageID: img.ID}, func(_ state.Element, err error) { got = err })
	require.NoError(t, err)
	pumpUntil(t, e, func() bool { return got != nil })

	_, ok := e.Store().Get(id)
	assert.False(t, ok)
	assert.Equal(t, 1, e.Store().Len())
}

func TestUndoReresolvesFromCache(t *testing.T) {
	e := newEditor(t, nil)
	src := media.DataURL("image/png", pngData(t, solid(8, 8, color.Black)))
	img := state.NewImage(src, "image/png", state.Rect{Width: 50, Height: 50})
	add(t, e, img)

	assert.Equal(t, 1, e.EnsureMedia(e.Visible()))
	pumpUntil(t, e, func() bool {
		el, _ := e.Store().Get(img.ID)
		return el.Resolved()
	})

	ctl := e.Controller()
	ctl.Select(img.ID)
	ctl.DeleteSelection()
	require.Zero(t, e.Store().Len())
	require.True(t, e.Undo())

	el, ok := e.Store().Get(img.ID)
	require.True(t, ok)
	assert.True(t, el.Resolved())
	require.True(t, e.Redo())
	assert.Zero(t, e.Store().Len())
}

func TestEnsureMediaOnlyVisible(t *testing.T) {
	e := newEditor(t, nil)
	off := state.NewImage("/does/not/exist.png", "image/png", state.Rect{X: 5000, Y: 5000, Width: 10, Height: 10})
	add(t, e, off)

	assert.Zero(t, e.EnsureMedia(e.Visible()))
	all := state.Rect{Width: 10000, Height: 10000}
	assert.Equal(t, 1, e.EnsureMedia(all))
	assert.Zero(t, e.EnsureMedia(all))

	pumpUntil(t, e, func() bool { return e.Resolver().Pending() == 0 })
	el, _ := e.Store().Get(off.ID)
	assert.False(t, el.Resolved())
	assert.Equal(t, 1, e.EnsureMedia(all), "failed resolves can be retried")
}

func TestBoardsSwitchSaveLoad(t *testing.T) {
	e := newEditor(t, nil)
	first := e.Workspace().ActiveID()
	shape := state.NewShape(state.ShapeRectangle, state.Rect{Width: 10, Height: 10}, "transparent", "#000", 1)
	add(t, e, shape)

	second, err := e.NewBoard("Second")
	require.NoError(t, err)
	assert.Equal(t, second.ID, e.Workspace().ActiveID())
	assert.Zero(t, e.Store().Len())
	assert.Equal(t, 1, e.Controller().History().Len())

	require.NoError(t, e.SwitchBoard(first))
	assert.Equal(t, 1, e.Store().Len())
	assert.False(t, e.Undo())

	var buf bytes.Buffer
	require.NoError(t, e.Save(&buf))
	other := newEditor(t, nil)
	require.NoError(t, other.Load(&buf))
	assert.Len(t, other.Workspace().Boards(), 2)
	assert.Equal(t, first, other.Workspace().ActiveID())
	_, ok := other.Store().Get(shape.ID)
	assert.True(t, ok)
}

func TestSaveFileRoundTrip(t *testing.T) {
	e := newEditor(t, nil)
	add(t, e, state.NewText(state.Point{X: 1, Y: 2}, "saved", 18, "#000"))
	path := filepath.Join(t.TempDir(), "boards", "workspace.json")
	require.NoError(t, e.SaveFile(path))

	other := newEditor(t, nil)
	require.NoError(t, other.LoadFile(path))
	assert.Equal(t, 1, other.Store().Len())
}

func TestTogglePlayStaysOutOfHistory(t *testing.T) {
	e := newEditor(t, nil)
	v := state.NewVideo("clip.mp4", state.Rect{Width: 160, Height: 90})
	add(t, e, v)
	before := e.Controller().History().Len()

	assert.True(t, e.TogglePlay(v.ID))
	assert.True(t, e.NeedsContinuousRedraw())
	assert.False(t, e.TogglePlay(v.ID))
	assert.Equal(t, before, e.Controller().History().Len())
}
