// Package media resolves the decoded handles of image and video elements.
// Handles are never persisted; they are rebuilt from each element's source
// locator whenever an element becomes visible without one.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Decoders for every format a source may carry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

var (
	// ErrEmptySource is returned for elements without a locator.
	ErrEmptySource = errors.New("media: empty source")
	// ErrUnsupportedSource is returned for locators with an unknown scheme.
	ErrUnsupportedSource = errors.New("media: unsupported source")
)

// maxSourceBytes caps how much of a single source is read into memory.
const maxSourceBytes = 256 << 20

// Fetch reads the bytes behind source. Supported locators are data URLs,
// http(s) URLs, file URLs and plain filesystem paths.
func Fetch(ctx context.Context, client *http.Client, source string) ([]byte, string, error) {
	switch {
	case source == "":
		return nil, "", ErrEmptySource
	case strings.HasPrefix(source, "data:"):
		return ParseDataURL(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetchHTTP(ctx, client, source)
	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, "", fmt.Errorf("parse %q: %w", source, err)
		}
		return readFile(u.Path)
	case strings.Contains(source, "://"):
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	default:
		return readFile(source)
	}
}

// ParseDataURL decodes an RFC 2397 data URL.
func ParseDataURL(source string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(source, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data url", ErrUnsupportedSource)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data url without payload", ErrUnsupportedSource)
	}
	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	mimeType := "text/plain"
	if meta != "" {
		if mt, _, err := mime.ParseMediaType(meta); err == nil {
			mimeType = mt
		}
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("decode data url: %w", err)
			}
		}
		return data, mimeType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return []byte(text), mimeType, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func fetchHTTP(ctx context.Context, client *http.Client, source string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("fetch %s: status %s", source, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", source, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func readFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, http.DetectContentType(data), nil
}

// LoadImage fetches and decodes the bitmap behind source.
func LoadImage(ctx context.Context, client *http.Client, source string) (image.Image, error) {
	data, _, err := Fetch(ctx, client, source)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	logging.Logger().Debug("image decoded", "format", format, "width", b.Dx(), "height", b.Dy())
	return img, nil
}

// Probe checks that a video source is reachable and reports what it holds.
// Nothing is decoded; the handle only proves the source can be played.
func Probe(ctx context.Context, client *http.Client, source string) (*state.MediaInfo, error) {
	info := &state.MediaInfo{Source: source}
	switch {
	case source == "":
		return nil, ErrEmptySource
	case strings.HasPrefix(source, "data:"):
		data, mimeType, err := ParseDataURL(source)
		if err != nil {
			return nil, err
		}
		info.ContentType, info.Size = mimeType, int64(len(data))
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, source, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", source, err)
		}
		resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("probe %s: status %s", source, resp.Status)
		}
		info.ContentType, info.Size = resp.Header.Get("Content-Type"), resp.ContentLength
	default:
		path := source
		if strings.HasPrefix(source, "file://") {
			u, err := url.Parse(source)
			if err != nil {
				return nil, fmt.Errorf("parse %q: %w", source, err)
			}
			path = u.Path
		} else if strings.Contains(source, "://") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
		}
		st, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", path, err)
		}
		info.Size = st.Size()
		info.ContentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	}
	return info, nil
}
