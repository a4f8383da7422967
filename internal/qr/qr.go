// Package qr renders check-in payloads as PNG images.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// Renderer turns a payload into image bytes.
type Renderer interface {
	Render(payload string) ([]byte, error)
}

// PNG renders with medium error correction, which still scans when the code
// is printed small on an ID badge.
type PNG struct {
	Size int
}

func (r PNG) Render(payload string) ([]byte, error) {
	size := r.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	return png, nil
}
