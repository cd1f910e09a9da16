// Package intake turns a user selected photo into a bounded working bitmap:
// decoded, downscaled so its longest side fits MaxDimension, and re-encoded
// at a fixed lossy quality so later canvas work stays cheap on phone photos.
package intake

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photo-cropper/pkg/codec"
	"github.com/menta2k/photo-cropper/pkg/render"
	"github.com/menta2k/photo-cropper/pkg/types"
)

const (
	// MaxDimension is the longest side allowed for a working bitmap
	MaxDimension = 2000
	// Quality is the lossy re-encode quality of working bitmaps
	Quality = 80
	// MaxSourcePixels refuses sources whose decode would not fit in memory
	MaxSourcePixels = 120_000_000
	// MaxSourceBytes caps the body read from a URL
	MaxSourceBytes = 64 << 20
)

// Config holds configuration for the downscaler
type Config struct {
	MaxDimension    int
	Quality         int
	Format          codec.Format
	MaxSourcePixels int64
}

// DefaultConfig returns the intake settings used by the photo editors
func DefaultConfig() Config {
	return Config{
		MaxDimension:    MaxDimension,
		Quality:         Quality,
		Format:          codec.JPEG,
		MaxSourcePixels: MaxSourcePixels,
	}
}

// WorkingBitmap is a decoded, dimension bounded and recompressed image.
// Image holds the pixels as they look after compression.
type WorkingBitmap struct {
	Image  image.Image
	Data   []byte
	Format codec.Format
	Width  int
	Height int
}

// DataURI returns the compressed bitmap as a base64 data URI
func (b *WorkingBitmap) DataURI() string {
	return codec.DataURI(b.Format, b.Data)
}

// Downscaler produces working bitmaps from raw sources
type Downscaler struct {
	config     Config
	httpClient *http.Client
}

// New creates a Downscaler with the default configuration
func New() *Downscaler {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Downscaler with custom configuration
func NewWithConfig(config Config) *Downscaler {
	return &Downscaler{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Config returns the active configuration
func (d *Downscaler) Config() Config {
	return d.config
}

// Dimensions returns the bounded size of a w x h source. Sources already
// within maxDim keep their size; larger ones are scaled by
// min(maxDim/w, maxDim/h) and floored, never below 1.
func Dimensions(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	ratio := math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	// epsilon keeps 3001*(2000/3001) from flooring to 1999
	nw := int(math.Floor(float64(w)*ratio + 1e-9))
	nh := int(math.Floor(float64(h)*ratio + 1e-9))
	return max(nw, 1), max(nh, 1)
}

// Bound decodes raw and returns a working bitmap. It fails with a
// *types.DecodeError when raw is not a readable image and with a
// *types.RenderError when the surface cannot be allocated or encoded.
func (d *Downscaler) Bound(raw []byte) (*WorkingBitmap, error) {
	cfg, _, err := codec.DecodeConfig(raw)
	if err != nil {
		return nil, err
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, &types.DecodeError{Op: "config", Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if limit := d.config.MaxSourcePixels; limit > 0 && int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, &types.RenderError{Op: "allocate", Err: fmt.Errorf("source %dx%d exceeds %d pixels", cfg.Width, cfg.Height, limit)}
	}

	src, err := codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	return d.BoundImage(src)
}

// BoundImage bounds an already decoded image
func (d *Downscaler) BoundImage(src image.Image) (*WorkingBitmap, error) {
	b := src.Bounds()
	w, h := Dimensions(b.Dx(), b.Dy(), d.config.MaxDimension)
	if _, err := render.NewSurface(w, h); err != nil {
		return nil, err
	}

	img := src
	if w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	data, err := codec.EncodeBytes(img, d.config.Format, d.config.Quality)
	if err != nil {
		return nil, &types.RenderError{Op: "encode", Err: err}
	}

	// Edit what the compressed bytes will show, not the pre-encode pixels
	decoded, err := codec.Decode(data)
	if err != nil {
		return nil, &types.RenderError{Op: "encode", Err: err}
	}

	return &WorkingBitmap{
		Image:  decoded,
		Data:   data,
		Format: d.config.Format,
		Width:  w,
		Height: h,
	}, nil
}

// BoundReader reads r fully and bounds it
func (d *Downscaler) BoundReader(r io.Reader) (*WorkingBitmap, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &types.DecodeError{Op: "read", Err: err}
	}
	return d.Bound(raw)
}

// BoundFile bounds the image stored at path
func (d *Downscaler) BoundFile(path string) (*WorkingBitmap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.DecodeError{Op: "read", Err: err}
	}
	return d.Bound(raw)
}

// BoundDataURI bounds an existing bitmap handed over as a data URI, such as
// a stored profile photo being edited again.
func (d *Downscaler) BoundDataURI(uri string) (*WorkingBitmap, error) {
	_, raw, err := codec.ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	return d.Bound(raw)
}

// BoundURL downloads an image over http(s) and bounds it
func (d *Downscaler) BoundURL(ctx context.Context, imageURL string) (*WorkingBitmap, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, &types.DecodeError{Op: "fetch", Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, &types.DecodeError{Op: "fetch", Err: fmt.Errorf("unsupported URL scheme: %s", parsedURL.Scheme)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &types.DecodeError{Op: "fetch", Err: err}
	}
	req.Header.Set("User-Agent", "photo-cropper/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &types.DecodeError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.DecodeError{Op: "fetch", Err: fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.Status)}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, &types.DecodeError{Op: "fetch", Err: fmt.Errorf("not an image (Content-Type: %s)", ct)}
	}

	return d.BoundReader(io.LimitReader(resp.Body, MaxSourceBytes))
}

// BoundSource accepts a data URI, an http(s) URL or a file path
func (d *Downscaler) BoundSource(ctx context.Context, source string) (*WorkingBitmap, error) {
	switch {
	case codec.IsDataURI(source):
		return d.BoundDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return d.BoundURL(ctx, source)
	}
	return d.BoundFile(source)
}

// Compress is the quick-save path for callers that skip cropping: it
// bounds raw and returns the data URI ready to persist.
func (d *Downscaler) Compress(raw []byte) (string, error) {
	bitmap, err := d.Bound(raw)
	if err != nil {
		return "", err
	}
	return bitmap.DataURI(), nil
}
