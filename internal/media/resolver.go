package media

import (
	"context"
	"image"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultCacheSize = 64
	resolveAllLimit  = 4
)

// Result is the outcome of one resolve. Exactly one of Image, Video and Err
// is set.
type Result struct {
	ElementID string
	Source    string
	Kind      state.ElementType
	Image     image.Image
	Video     *state.MediaInfo
	Err       error
}

type key struct {
	id     string
	source string
}

// Resolver decodes media handles in the background. Requests are keyed by
// (element id, source); a key stays in flight until its result is settled
// by the owner, so a redraw never starts a second decode for the same pair.
// Fetches of the same source by different elements share one download.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	fetches singleflight.Group
	results chan Result

	mu       sync.Mutex
	inflight map[key]bool
	cache    *imageCache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTimeout bounds each background resolve.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithCacheSize sets how many decoded images are kept by source.
func WithCacheSize(n int) Option {
	return func(r *Resolver) { r.cache = newImageCache(n) }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:   http.DefaultClient,
		timeout:  defaultTimeout,
		results:  make(chan Result, 64),
		inflight: make(map[key]bool),
		cache:    newImageCache(defaultCacheSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request starts resolving the handle of element id from source. It reports
// false when the pair is already in flight, the source is empty or kind is
// not a media type.
func (r *Resolver) Request(id, source string, kind state.ElementType) bool {
	if source == "" || (kind != state.TypeImage && kind != state.TypeVideo) {
		return false
	}
	k := key{id: id, source: source}
	r.mu.Lock()
	if r.inflight[k] {
		r.mu.Unlock()
		return false
	}
	r.inflight[k] = true
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.results <- r.resolve(ctx, id, source, kind)
	}()
	return true
}

// Results delivers finished resolves. The owner must pass each one to
// Settle.
func (r *Resolver) Results() <-chan Result {
	return r.results
}

// Settle marks a result as consumed so its key may be requested again.
func (r *Resolver) Settle(res Result) {
	r.mu.Lock()
	delete(r.inflight, key{id: res.ElementID, source: res.Source})
	r.mu.Unlock()
}

// InFlight reports whether a resolve of (id, source) is pending.
func (r *Resolver) InFlight(id, source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[key{id: id, source: source}]
}

// Pending returns the number of keys in flight.
func (r *Resolver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Cached returns a previously decoded image for source.
func (r *Resolver) Cached(source string) (image.Image, bool) {
	return r.cache.get(source)
}

// Remember stores img as the decoded form of source, for bitmaps produced
// locally (crop, generation results).
func (r *Resolver) Remember(source string, img image.Image) {
	r.cache.put(source, img)
}

// ResolveAll resolves every unresolved media element synchronously, at most
// four at a time. Failed resolves are returned with Err set.
func (r *Resolver) ResolveAll(ctx context.Context, elements []state.Element) []Result {
	slots := make([]Result, len(elements))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveAllLimit)
	for i, el := range elements {
		if !el.IsMedia() || el.Resolved() || el.Source() == "" {
			continue
		}
		g.Go(func() error {
			slots[i] = r.resolve(ctx, el.ID, el.Source(), el.Type)
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for _, res := range slots {
		if res.ElementID != "" {
			out = append(out, res)
		}
	}
	return out
}

func (r *Resolver) resolve(ctx context.Context, id, source string, kind state.ElementType) Result {
	res := Result{ElementID: id, Source: source, Kind: kind}
	if kind == state.TypeImage {
		if img, ok := r.cache.get(source); ok {
			res.Image = img
			return res
		}
	}
	v, err, shared := r.fetches.Do(string(kind)+"\x00"+source, func() (any, error) {
		if kind == state.TypeVideo {
			return Probe(ctx, r.client, source)
		}
		img, err := LoadImage(ctx, r.client, source)
		if err != nil {
			return nil, err
		}
		r.cache.put(source, img)
		return img, nil
	})
	if err != nil {
		logging.Logger().Warn("media resolve failed", "element", id, "source", shorten(source), "err", err)
		res.Err = err
		return res
	}
	logging.Logger().Debug("media resolved", "element", id, "kind", kind, "shared", shared)
	switch h := v.(type) {
	case image.Image:
		res.Image = h
	case *state.MediaInfo:
		res.Video = h
	}
	return res
}

// Apply installs a successful result on the matching element. It reports
// false when the result failed or the element is gone or has since changed
// source.
func Apply(store *state.Store, res Result) bool {
	if res.Err != nil {
		return false
	}
	applied := false
	err := store.Update(res.ElementID, func(el *state.Element) {
		if el.Source() != res.Source {
			return
		}
		switch {
		case el.Image != nil && res.Image != nil:
			el.Image.Handle = res.Image
			applied = true
		case el.Video != nil && res.Video != nil:
			el.Video.Handle = res.Video
			applied = true
		}
	})
	return err == nil && applied
}

func shorten(source string) string {
	if len(source) > 64 {
		return source[:64] + "..."
	}
	return source
}
