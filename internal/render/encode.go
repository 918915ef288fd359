package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"CanvasBoard/internal/media"
)

// Bitmap is an encoded raster image.
type Bitmap struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// DataURL returns the bitmap as a base64 data URL.
func (b Bitmap) DataURL() string {
	return media.DataURL(b.MimeType, b.Data)
}

// Base64 returns the bare base64 payload.
func (b Bitmap) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// Encode stores img as a PNG bitmap.
func Encode(img image.Image) (Bitmap, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Bitmap{}, fmt.Errorf("encode png: %w", err)
	}
	r := img.Bounds()
	return Bitmap{Data: buf.Bytes(), MimeType: "image/png", Width: r.Dx(), Height: r.Dy()}, nil
}
