package photocropper

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/menta2k/photo-cropper/pkg/codec"
	"github.com/menta2k/photo-cropper/pkg/cropper"
	"github.com/menta2k/photo-cropper/pkg/types"
)

// createTestImage creates a PNG with a white center block on a gray background
func createTestImage(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	data, err := codec.EncodeBytes(img, codec.PNG, 0)
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return data
}

func waitPending(t *testing.T, ed *Editor) LoadResult {
	t.Helper()
	select {
	case r := <-ed.Pending():
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for background load")
	}
	return LoadResult{}
}

func TestNew(t *testing.T) {
	ed := New()
	if ed == nil {
		t.Fatal("New() returned nil")
	}
	if ed.Engine() == nil {
		t.Error("engine component is nil")
	}
	if ed.Downscaler() == nil {
		t.Error("downscaler component is nil")
	}
	if ed.Engine().State() != cropper.Idle {
		t.Errorf("Expected Idle, got %s", ed.Engine().State())
	}
}

func TestOpenAndConfirm(t *testing.T) {
	ed := New()
	if err := ed.Open(createTestImage(t, 600, 400)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	engine := ed.Engine()
	engine.Wheel(-1)
	engine.Replay(cropper.DragScript(types.Point{X: 100, Y: 100}, 5, 0, 5))

	result, err := ed.Confirm()
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if result.Width != 200 || result.Height != 200 {
		t.Errorf("Expected 200x200, got %dx%d", result.Width, result.Height)
	}
	if !strings.HasPrefix(result.DataURI(), "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URI prefix: %.40s", result.DataURI())
	}
}

func TestOpenInvalid(t *testing.T) {
	ed := New()
	err := ed.Open([]byte("definitely not an image"))

	var decodeErr *types.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if ed.Engine().State() != cropper.Idle {
		t.Errorf("Expected Idle after failed open, got %s", ed.Engine().State())
	}
}

func TestOpenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, createTestImage(t, 300, 300), 0644); err != nil {
		t.Fatal(err)
	}

	ed := New()
	if err := ed.OpenSource(context.Background(), path); err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	if ed.Engine().State() != cropper.Ready {
		t.Errorf("Expected Ready, got %s", ed.Engine().State())
	}
}

func TestSelectApply(t *testing.T) {
	ed := New()
	ticket := ed.Select(context.Background(), createTestImage(t, 400, 300))

	r := waitPending(t, ed)
	if r.Ticket != ticket {
		t.Errorf("Expected ticket %d, got %d", ticket, r.Ticket)
	}
	if err := ed.Apply(r); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if ed.Engine().State() != cropper.Ready {
		t.Errorf("Expected Ready, got %s", ed.Engine().State())
	}
}

func TestSelectSuperseded(t *testing.T) {
	ed := New()
	first := ed.Select(context.Background(), createTestImage(t, 400, 300))
	second := ed.Select(context.Background(), createTestImage(t, 300, 400))

	// the first decode may be read before the second lands; it is stale
	for {
		r := waitPending(t, ed)
		if r.Ticket == first {
			if err := ed.Apply(r); !errors.Is(err, cropper.ErrStaleLoad) {
				t.Errorf("Expected ErrStaleLoad for the first selection, got %v", err)
			}
			continue
		}
		if r.Ticket != second {
			t.Fatalf("unexpected ticket %d", r.Ticket)
		}
		if err := ed.Apply(r); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		break
	}
	if b := ed.Engine().Bitmap(); b.Width != 300 || b.Height != 400 {
		t.Errorf("Expected the 300x400 selection, got %dx%d", b.Width, b.Height)
	}
}

func TestSelectWithoutReader(t *testing.T) {
	before := runtime.NumGoroutine()

	ed := New()
	raw := createTestImage(t, 200, 150)
	var last cropper.Ticket
	for i := 0; i < 10; i++ {
		last = ed.Select(context.Background(), raw)
	}

	// nobody reads Pending: the forwarders must still finish
	deadline := time.Now().Add(10 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}

	r := waitPending(t, ed)
	if r.Ticket != last {
		t.Errorf("Expected the newest ticket %d, got %d", last, r.Ticket)
	}
	if err := ed.Apply(r); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	select {
	case extra := <-ed.Pending():
		t.Errorf("only the newest result should be kept, got ticket %d", extra.Ticket)
	default:
	}
}

func TestSelectThenCancel(t *testing.T) {
	ed := New()
	ed.Select(context.Background(), createTestImage(t, 200, 200))
	ed.Cancel()

	r := waitPending(t, ed)
	if err := ed.Apply(r); !errors.Is(err, cropper.ErrStaleLoad) {
		t.Errorf("Expected ErrStaleLoad after Cancel, got %v", err)
	}
	if ed.Engine().State() != cropper.Cancelled {
		t.Errorf("Expected Cancelled, got %s", ed.Engine().State())
	}
}

func TestSelectInvalid(t *testing.T) {
	ed := New()
	ed.Select(context.Background(), []byte("garbage"))

	r := waitPending(t, ed)
	var decodeErr *types.DecodeError
	if err := ed.Apply(r); !errors.As(err, &decodeErr) {
		t.Errorf("Expected DecodeError, got %v", err)
	}
	if ed.Engine().State() != cropper.Idle {
		t.Errorf("Expected Idle, got %s", ed.Engine().State())
	}
}

func TestCancel(t *testing.T) {
	ed := New()
	if err := ed.Open(createTestImage(t, 300, 300)); err != nil {
		t.Fatal(err)
	}
	if !ed.Cancel().Empty() {
		t.Error("Cancel should return the empty result")
	}
}

func TestQuickSave(t *testing.T) {
	ed := New()
	uri, err := ed.QuickSave(createTestImage(t, 300, 200))
	if err != nil {
		t.Fatalf("QuickSave failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URI prefix: %.40s", uri)
	}
}

func TestProcessImageFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "portrait.png")
	if err := os.WriteFile(input, createTestImage(t, 800, 600), 0644); err != nil {
		t.Fatal(err)
	}

	ed := NewWithConfig(New().Downscaler().Config(), cropper.ConfigForPreset(types.Portrait))
	events := cropper.PinchScript(types.Point{X: 64, Y: 96}, 1.5)

	outDir := filepath.Join(dir, "out")
	outPath, err := ed.ProcessImageFile(context.Background(), input, outDir, events)
	if err != nil {
		t.Fatalf("ProcessImageFile failed: %v", err)
	}
	if outPath != filepath.Join(outDir, "portrait_cropped.jpg") {
		t.Errorf("unexpected output path %s", outPath)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg, _, err := codec.DecodeConfig(data)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if cfg.Width != 128 || cfg.Height != 192 {
		t.Errorf("Expected 128x192, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessImageFileBadScript(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(input, createTestImage(t, 300, 300), 0644); err != nil {
		t.Fatal(err)
	}

	events, err := cropper.ReadScript(bytes.NewBufferString(`[{"type":"doubletap"}]`))
	if err != nil {
		t.Fatal(err)
	}

	ed := New()
	if _, err := ed.ProcessImageFile(context.Background(), input, dir, events); err == nil {
		t.Error("unknown event type should fail")
	}
	if ed.Engine().State() != cropper.Cancelled {
		t.Errorf("failed replay should cancel, got %s", ed.Engine().State())
	}
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	if version == "" {
		t.Error("Version should not be empty")
	}

	if version != Version {
		t.Errorf("GetVersion() returned %s, expected %s", version, Version)
	}
}

func BenchmarkOpen(b *testing.B) {
	ed := New()
	data := createTestImage(b, 1200, 900)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ed.Open(data)
	}
}
