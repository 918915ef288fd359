// Package editor ties the board together: the workspace and its active
// store, history, the interaction controller, the media resolver and the
// generation service. All store mutation happens on the owner goroutine;
// background work (media decode, generation calls) reports back through
// Pump or Run.
package editor

import (
	"context"
	"net/http"
	"time"

	"CanvasBoard/internal/gen"
	"CanvasBoard/internal/interact"
	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/media"
	"CanvasBoard/internal/render"
	"CanvasBoard/internal/state"
)

const (
	defaultTargetSize = 1024
	taskQueueSize     = 32
)

// Option configures an Editor.
type Option func(*Editor)

// WithModel sets the model passed to generation calls.
func WithModel(model string) Option {
	return func(e *Editor) { e.model = model }
}

// WithTargetSize sets the longest side, in pixels, of images sent to and
// requested from the generation service.
func WithTargetSize(n int) Option {
	return func(e *Editor) { e.targetSize = n }
}

// WithHistoryCapacity sets the undo depth.
func WithHistoryCapacity(n int) Option {
	return func(e *Editor) { e.historyCap = n }
}

// WithPadding sets the rasterization margin around single elements.
func WithPadding(p float64) Option {
	return func(e *Editor) { e.padding = p }
}

// WithHTTPClient sets the client used to download generated images.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Editor) { e.client = c }
}

// WithControllerOptions passes options through to the interaction
// controller.
func WithControllerOptions(opts ...interact.Option) Option {
	return func(e *Editor) { e.ctlOpts = append(e.ctlOpts, opts...) }
}

// Editor is the application core behind the UI.
type Editor struct {
	ws       *state.Workspace
	store    *state.Store
	history  *state.History
	ctl      *interact.Controller
	resolver *media.Resolver
	raster   *render.Rasterizer
	service  gen.Service
	client   *http.Client

	model      string
	targetSize int
	historyCap int
	padding    float64
	ctlOpts    []interact.Option

	viewW, viewH float64
	tasks        chan func()
	jobs         map[string]float64
	onChange     []func()
}

// New opens the active board of ws. svc may be nil, in which case every
// generation call fails.
func New(ws *state.Workspace, svc gen.Service, opts ...Option) (*Editor, error) {
	e := &Editor{
		ws:         ws,
		service:    svc,
		client:     http.DefaultClient,
		targetSize: defaultTargetSize,
		historyCap: state.DefaultHistoryCapacity,
		padding:    render.DefaultPadding,
		viewW:      1280,
		viewH:      800,
		tasks:      make(chan func(), taskQueueSize),
		jobs:       make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}

	board, err := ws.Active()
	if err != nil {
		return nil, err
	}
	e.store, err = state.NewStore(board.Elements...)
	if err != nil {
		return nil, err
	}
	e.history = state.NewHistory(e.historyCap)
	e.raster = render.NewRasterizer(e.padding)
	e.resolver = media.NewResolver(media.WithHTTPClient(e.client))

	ctlOpts := append([]interact.Option{interact.WithCropper(e.raster)}, e.ctlOpts...)
	e.ctl = interact.New(e.store, e.history, ctlOpts...)
	e.ctl.OnRestore(e.reresolve)
	e.ctl.OnChange(e.changed)

	e.reresolve(e.store.Elements())
	return e, nil
}

// Controller returns the interaction controller.
func (e *Editor) Controller() *interact.Controller { return e.ctl }

// Store returns the live element store of the active board.
func (e *Editor) Store() *state.Store { return e.store }

// Workspace returns the board collection.
func (e *Editor) Workspace() *state.Workspace { return e.ws }

// Resolver returns the media resolver.
func (e *Editor) Resolver() *media.Resolver { return e.resolver }

// OnChange registers fn to run after anything visible changed, whether it
// came from the controller or from background work.
func (e *Editor) OnChange(fn func()) {
	e.onChange = append(e.onChange, fn)
}

func (e *Editor) changed() {
	for _, fn := range e.onChange {
		fn()
	}
}

// SetViewSize records the size of the visible canvas in screen pixels.
// New images are centered on it.
func (e *Editor) SetViewSize(w, h float64) {
	if w > 0 && h > 0 {
		e.viewW, e.viewH = w, h
	}
}

// Visible returns the visible canvas rectangle in canvas units.
func (e *Editor) Visible() state.Rect {
	return e.ctl.Viewport().Visible(e.viewW, e.viewH)
}

// Frame assembles the next render frame and requests handles for visible
// media that has none yet.
func (e *Editor) Frame() render.Frame {
	e.EnsureMedia(e.Visible())
	return e.ctl.Frame()
}

// EnsureMedia requests a handle for every unresolved image or video that
// intersects visible. Pairs already in flight are not requested again.
func (e *Editor) EnsureMedia(visible state.Rect) int {
	n := 0
	els := e.store.Elements()
	for _, el := range els {
		if !el.IsMedia() || el.Resolved() || el.Source() == "" {
			continue
		}
		if !state.Bounds(el, els).Intersects(visible) {
			continue
		}
		if e.resolver.Request(el.ID, el.Source(), el.Type) {
			n++
		}
	}
	return n
}

// reresolve installs cached bitmaps on restored elements and requests the
// rest.
func (e *Editor) reresolve(els []state.Element) {
	for _, el := range els {
		if !el.IsMedia() || el.Resolved() || el.Source() == "" {
			continue
		}
		if el.Type == state.TypeImage {
			if img, ok := e.resolver.Cached(el.Source()); ok {
				_ = e.store.Update(el.ID, func(x *state.Element) { x.Image.Handle = img })
				continue
			}
		}
		e.resolver.Request(el.ID, el.Source(), el.Type)
	}
}

// post queues fn to run on the owner goroutine.
func (e *Editor) post(fn func()) {
	e.tasks <- fn
}

// Pump runs every queued task and settles every finished media decode. It
// must be called from the owner goroutine and never blocks. It returns the
// number of items handled.
func (e *Editor) Pump() int {
	n := 0
	for {
		select {
		case res := <-e.resolver.Results():
			e.settle(res)
		case fn := <-e.tasks:
			fn()
		default:
			if n > 0 {
				e.changed()
			}
			return n
		}
		n++
	}
}

// Run waits for background work and hands each item to do, which must run
// it on the owner goroutine (fyne.Do in the desktop host). It returns when
// ctx is done.
func (e *Editor) Run(ctx context.Context, do func(func())) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-e.resolver.Results():
			do(func() {
				e.settle(res)
				e.changed()
			})
		case fn := <-e.tasks:
			do(func() {
				fn()
				e.changed()
			})
		}
	}
}

func (e *Editor) settle(res media.Result) {
	e.resolver.Settle(res)
	if res.Err != nil {
		logging.Logger().Warn("media unresolved", "element", res.ElementID, "err", res.Err)
		return
	}
	if !media.Apply(e.store, res) {
		logging.Logger().Debug("stale media result dropped", "element", res.ElementID)
	}
}

// Undo steps back one history entry.
func (e *Editor) Undo() bool { return e.ctl.Undo() }

// Redo steps forward one history entry.
func (e *Editor) Redo() bool { return e.ctl.Redo() }

// TogglePlay flips playback of a video element. Playback is not part of
// any gesture and is not recorded in history.
func (e *Editor) TogglePlay(id string) bool {
	playing := false
	err := e.store.Update(id, func(el *state.Element) {
		if el.Video == nil {
			return
		}
		el.Video.IsPlaying = !el.Video.IsPlaying
		playing = el.Video.IsPlaying
	})
	if err != nil {
		return false
	}
	logging.Logger().Debug("playback toggled", "element", id, "playing", playing)
	e.changed()
	return playing
}

// NeedsContinuousRedraw reports whether the board animates on its own.
func (e *Editor) NeedsContinuousRedraw() bool {
	return len(e.jobs) > 0 || render.NeedsContinuousRedraw(e.store.Elements())
}

// JobProgress returns the progress of the video job behind placeholder id.
func (e *Editor) JobProgress(id string) (float64, bool) {
	p, ok := e.jobs[id]
	return p, ok
}

func since(t time.Time) time.Duration { return time.Since(t).Round(time.Millisecond) }
