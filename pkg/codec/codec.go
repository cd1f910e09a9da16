// Package codec decodes user supplied photos and encodes bitmaps for callers,
// either as raw bytes or as base64 data URIs.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/photo-cropper/pkg/types"
)

// Format is an output encoding
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
)

// ErrEmptySource is returned when there are no bytes to decode
var ErrEmptySource = errors.New("empty image source")

// ParseFormat maps a user facing name (jpg, jpeg, png, webp) to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "jpg", "jpeg", "image/jpeg":
		return JPEG, nil
	case "png", "image/png":
		return PNG, nil
	case "webp", "image/webp":
		return WebP, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", name)
}

// MIME returns the media type used in data URIs
func (f Format) MIME() string {
	return "image/" + string(f)
}

// Extension returns the usual file extension without the dot
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Lossy reports whether quality applies to the format
func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}

// DecodeConfig reads only the header of data and returns its dimensions
// and registered format name.
func DecodeConfig(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", &types.DecodeError{Op: "config", Err: ErrEmptySource}
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		return cfg, name, nil
	}
	if wcfg, werr := webp.DecodeConfig(bytes.NewReader(data)); werr == nil {
		return wcfg, "webp", nil
	}
	return image.Config{}, "", &types.DecodeError{Op: "config", Err: err}
}

// Decode decodes data in any registered raster format, applying the EXIF
// orientation of camera photos.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &types.DecodeError{Op: "image", Err: ErrEmptySource}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode for variants the x/image decoder rejects
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}

	return nil, &types.DecodeError{Op: "image", Err: err}
}

// DecodeReader reads r fully and decodes it
func DecodeReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &types.DecodeError{Op: "read", Err: err}
	}
	return Decode(data)
}

// Encode writes img to w. quality (1-100) is ignored for PNG.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case WebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case PNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	return fmt.Errorf("unsupported output format: %s", f)
}

// EncodeBytes encodes img into a new byte slice
func EncodeBytes(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes img into a file at path
func Save(img image.Image, path string, f Format, quality int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Encode(file, img, f, quality); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return file.Close()
}

// DataURI wraps encoded bytes in a base64 data URI
func DataURI(f Format, data []byte) string {
	return "data:" + f.MIME() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s looks like a data URI
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURI extracts the media type and payload of a base64 data URI
func ParseDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, &types.DecodeError{Op: "data uri", Err: errors.New("missing data: scheme")}
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return "", nil, &types.DecodeError{Op: "data uri", Err: errors.New("missing payload separator")}
	}

	mime, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return "", nil, &types.DecodeError{Op: "data uri", Err: errors.New("only base64 payloads are supported")}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, &types.DecodeError{Op: "data uri", Err: err}
	}
	if len(data) == 0 {
		return "", nil, &types.DecodeError{Op: "data uri", Err: ErrEmptySource}
	}
	return mime, data, nil
}
