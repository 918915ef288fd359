package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"CanvasBoard/internal/gen"
	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/media"
	"CanvasBoard/internal/render"
	"CanvasBoard/internal/state"
)

var (
	// ErrNoService is returned when the editor was built without a
	// generation backend.
	ErrNoService = errors.New("editor: no generation service")
	// ErrNotImage is returned when an operation needs an image element.
	ErrNotImage = errors.New("editor: element is not an image")
)

// Done receives the outcome of a background job on the owner goroutine.
type Done func(el state.Element, err error)

// placementFill is the share of the visible area a placed image may cover.
const placementFill = 0.8

// Annotations returns the locked, visible, non-media elements whose bounds
// intersect the image id, in z-order.
func (e *Editor) Annotations(id string) []state.Element {
	els := e.store.Elements()
	base, ok := e.store.Get(id)
	if !ok {
		return nil
	}
	r := state.Bounds(base, els)
	var out []state.Element
	for _, el := range els {
		if el.ID == id || !el.Locked || !el.Visible || el.IsMedia() || el.Type == state.TypeGroup {
			continue
		}
		if state.Bounds(el, els).Intersects(r) {
			out = append(out, el)
		}
	}
	return out
}

// input builds the payload for image id: its bitmap with every annotation
// on it flattened in, scaled to the target size and encoded.
func (e *Editor) input(ctx context.Context, id string) (gen.ImageInput, error) {
	el, ok := e.store.Get(id)
	if !ok {
		return gen.ImageInput{}, fmt.Errorf("editor: %w: %s", state.ErrNotFound, id)
	}
	if el.Type != state.TypeImage {
		return gen.ImageInput{}, fmt.Errorf("%w: %s", ErrNotImage, id)
	}
	if el.Image.Handle == nil {
		img, err := media.LoadImage(ctx, e.client, el.Image.Href)
		if err != nil {
			return gen.ImageInput{}, fmt.Errorf("editor: load %s: %w", id, err)
		}
		el.Image.Handle = img
		e.resolver.Remember(el.Image.Href, img)
		_ = e.store.Update(id, func(x *state.Element) { x.Image.Handle = img })
	}

	img := el.Image.Handle
	if ann := e.Annotations(id); len(ann) > 0 {
		_, flat, err := e.raster.Flatten(el, ann)
		if err != nil {
			return gen.ImageInput{}, err
		}
		img = flat
	}
	bm, err := render.Encode(render.Fit(img, e.targetSize))
	if err != nil {
		return gen.ImageInput{}, err
	}
	return gen.ImageInput{Source: bm.DataURL(), MimeType: bm.MimeType}, nil
}

func (e *Editor) sessionID() string {
	b, err := e.ws.Active()
	if err != nil {
		return ""
	}
	return b.SessionID
}

// SubmitEdit sends image id, with its annotations flattened in, to the
// edit endpoint. The payload is built before SubmitEdit returns; the call
// runs in the background and done is called from Pump or Run. On success
// the returned image is placed as a new element; on failure nothing is
// created.
func (e *Editor) SubmitEdit(ctx context.Context, id, prompt string, done Done) error {
	if e.service == nil {
		return ErrNoService
	}
	in, err := e.input(ctx, id)
	if err != nil {
		return err
	}
	req := gen.EditRequest{
		Images:     []gen.ImageInput{in},
		Prompt:     prompt,
		Model:      e.model,
		SessionID:  e.sessionID(),
		TargetSize: e.targetSize,
	}
	logging.Logger().Info("edit submitted", "element", id, "annotations", len(e.Annotations(id)))
	go e.runImageJob(ctx, "edit", func(ctx context.Context) (gen.Result, error) {
		return e.service.Edit(ctx, req)
	}, done)
	return nil
}

// SubmitGenerate asks for a new image from prompt and places it like
// SubmitEdit does.
func (e *Editor) SubmitGenerate(ctx context.Context, prompt string, done Done) error {
	if e.service == nil {
		return ErrNoService
	}
	req := gen.GenerateRequest{
		Prompt:     prompt,
		Model:      e.model,
		SessionID:  e.sessionID(),
		TargetSize: e.targetSize,
	}
	go e.runImageJob(ctx, "generate", func(ctx context.Context) (gen.Result, error) {
		return e.service.Generate(ctx, req)
	}, done)
	return nil
}

// AddImage loads source in the background and places it centered on the
// view.
func (e *Editor) AddImage(ctx context.Context, source string, done Done) {
	go func() {
		img, err := media.LoadImage(ctx, e.client, source)
		e.post(func() {
			if err != nil {
				finish(done, state.Element{}, err)
				return
			}
			el, err := e.place(source, img)
			finish(done, el, err)
		})
	}()
}

func (e *Editor) runImageJob(ctx context.Context, op string, call func(context.Context) (gen.Result, error), done Done) {
	start := time.Now()
	res, err := call(ctx)
	var img image.Image
	if err == nil {
		img, err = media.LoadImage(ctx, e.client, res.Source())
	}
	e.post(func() {
		if err != nil {
			logging.Logger().Warn("generation failed", "op", op, "err", err, "elapsed", since(start))
			finish(done, state.Element{}, err)
			return
		}
		el, perr := e.place(res.Source(), img)
		if perr == nil {
			logging.Logger().Info("generation placed", "op", op, "element", el.ID, "elapsed", since(start))
		}
		finish(done, el, perr)
	})
}

func finish(done Done, el state.Element, err error) {
	if done != nil {
		done(el, err)
	}
}

// place adds img as a new image element centered on the visible area,
// scaled down to fit it, selects it and records history.
func (e *Editor) place(source string, img image.Image) (state.Element, error) {
	b := img.Bounds()
	if b.Empty() {
		return state.Element{}, fmt.Errorf("editor: %w: empty image", render.ErrEmptyBounds)
	}
	view := e.Visible()
	w, h := float64(b.Dx()), float64(b.Dy())
	if s := min(view.Width*placementFill/w, view.Height*placementFill/h); s < 1 {
		w, h = w*s, h*s
	}
	c := view.Center()
	el := state.NewImage(source, mimeOf(source), state.Rect{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h})
	el.Image.Handle = img
	if err := e.store.Add(el); err != nil {
		return state.Element{}, err
	}
	e.resolver.Remember(source, img)
	e.ctl.Select(el.ID)
	e.ctl.Commit()
	return el, nil
}

func mimeOf(source string) string {
	if _, mt, err := media.ParseDataURL(source); err == nil && mt != "" {
		return mt
	}
	return "image/png"
}

// VideoSubmission describes a video job started from image elements.
type VideoSubmission struct {
	Prompt       string
	StartImageID string
	EndImageID   string
	Resolution   string
	Ratio        string
	Duration     int
}

// videoGap separates a video placeholder from its start frame.
const videoGap = 20

// SubmitVideo creates a placeholder video element next to the start image
// at once and starts the job. On completion the placeholder receives the
// video URL and its handle is requested; on failure it is removed. It
// returns the placeholder id.
func (e *Editor) SubmitVideo(ctx context.Context, sub VideoSubmission, done Done) (string, error) {
	if e.service == nil {
		return "", ErrNoService
	}
	start, err := e.input(ctx, sub.StartImageID)
	if err != nil {
		return "", err
	}
	req := gen.VideoRequest{
		Prompt:     sub.Prompt,
		StartImage: start,
		Model:      e.model,
		Resolution: sub.Resolution,
		Ratio:      sub.Ratio,
		Duration:   sub.Duration,
		SessionID:  e.sessionID(),
	}
	if sub.EndImageID != "" {
		end, err := e.input(ctx, sub.EndImageID)
		if err != nil {
			return "", err
		}
		req.EndImage = &end
	}

	anchor, _ := e.store.Bounds(sub.StartImageID)
	ph := state.NewVideo("", state.Rect{
		X: anchor.MaxX() + videoGap, Y: anchor.Y, Width: anchor.Width, Height: anchor.Height,
	})
	ph.Video.Generating = true
	if err := e.store.Add(ph); err != nil {
		return "", err
	}
	_ = e.store.Update(sub.StartImageID, func(el *state.Element) { el.Image.VideoPrompt = sub.Prompt })
	e.jobs[ph.ID] = 0
	e.changed()
	logging.Logger().Info("video submitted", "placeholder", ph.ID, "start", sub.StartImageID)

	go func() {
		res, err := e.service.GenerateVideo(ctx, req, func(p gen.Progress) {
			e.post(func() {
				if _, ok := e.jobs[ph.ID]; ok {
					e.jobs[ph.ID] = p.Percent
				}
			})
		})
		e.post(func() { e.finishVideo(ph.ID, res, err, done) })
	}()
	return ph.ID, nil
}

func (e *Editor) finishVideo(id string, res gen.VideoResult, err error, done Done) {
	delete(e.jobs, id)
	if err != nil {
		e.store.Remove(id)
		e.ctl.Select(without(e.ctl.Selection(), id)...)
		logging.Logger().Warn("video failed", "placeholder", id, "err", err)
		finish(done, state.Element{}, err)
		return
	}
	uerr := e.store.Update(id, func(el *state.Element) {
		el.Video.VideoURL = res.VideoURL
		el.Video.Generating = false
	})
	if uerr != nil {
		// The placeholder was undone or deleted while the job ran.
		finish(done, state.Element{}, uerr)
		return
	}
	e.resolver.Request(id, res.VideoURL, state.TypeVideo)
	e.ctl.Commit()
	el, _ := e.store.Get(id)
	finish(done, el, nil)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
