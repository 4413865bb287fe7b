package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/shared/scrape"
	"github.com/samber/oops"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// ImageLoader downloads a picture and re-encodes it as JPEG, whatever the
// source format was.
type ImageLoader struct {
	client *http.Client
}

func NewImageLoader(client *http.Client) *ImageLoader {
	return &ImageLoader{client: client}
}

// Load returns the JPEG bytes of the image at rawURL.
func (l *ImageLoader) Load(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := scrape.NewSession(l.client).Bytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return Normalize(data)
}

// Normalize decodes any registered format and encodes it as JPEG. Transparent
// pixels are flattened onto white.
func Normalize(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, oops.With("size", len(data)).Wrap(errors.Join(apperrors.ErrFetch, err))
	}

	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, oops.With("format", format).Wrap(err)
	}
	return buf.Bytes(), nil
}
