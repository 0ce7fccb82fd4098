package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG ready to embed in a tool response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG, optionally scaled first. A scale of 1
// (or anything non-positive) keeps the original size.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot encode an empty image")
	}

	out := img
	if scale != 1.0 && scale > 0 {
		w := max(1, int(float64(img.Bounds().Dx())*scale))
		h := max(1, int(float64(img.Bounds().Dy())*scale))
		out = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// FitScale returns the factor that brings the longest side of a w x h image
// down to maxSide, or 1 when it already fits.
func FitScale(w, h, maxSide int) float64 {
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return 1
	}
	return float64(maxSide) / float64(longest)
}
