// Package photocropper provides the photo acquisition and crop/zoom pipeline
// used by the profile and student photo editors.
//
// A photo goes through two stages:
//
//  1. Intake (pkg/intake): the raw selection is decoded, bounded to 2000 px
//     on its longest side and recompressed, giving a working bitmap.
//  2. Crop/zoom (pkg/cropper): the working bitmap is shown in a fixed
//     viewport; pointer, wheel and touch events pan and zoom it, and
//     Confirm emits a fixed size bitmap identical to the preview.
//
// Basic usage:
//
//	editor := photocropper.New()
//	if err := editor.Open(raw); err != nil {
//		log.Fatal(err)
//	}
//	engine := editor.Engine()
//	engine.Wheel(-1)                                   // zoom in one notch
//	engine.PointerDown(types.Point{X: 100, Y: 100}, cropper.ButtonPrimary)
//	engine.PointerMove(types.Point{X: 150, Y: 100})    // pan right by 10
//	engine.PointerUp()
//	result, err := editor.Confirm()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.DataURI())
//
// Interactive hosts that decode off the event loop use Select and feed
// each value received from Pending back through Apply; loads superseded
// by a newer selection are discarded.
package photocropper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/menta2k/photo-cropper/internal/utils"
	"github.com/menta2k/photo-cropper/pkg/cropper"
	"github.com/menta2k/photo-cropper/pkg/intake"
)

// Version of the photo cropper library
const Version = "1.0.0"

// Editor wires the downscaler to a crop/zoom engine
type Editor struct {
	downscaler *intake.Downscaler
	engine     *cropper.Engine

	// pending holds at most the newest completed load
	mu      sync.Mutex
	pending chan LoadResult
}

// LoadResult is an asynchronous load waiting to be applied on the event loop
type LoadResult struct {
	Ticket cropper.Ticket
	Bitmap *intake.WorkingBitmap
	Err    error
}

// New creates an Editor with the square preset and default intake settings
func New() *Editor {
	return NewWithConfig(intake.DefaultConfig(), cropper.DefaultConfig())
}

// NewWithConfig creates an Editor with custom configuration
func NewWithConfig(intakeConfig intake.Config, cropperConfig cropper.Config) *Editor {
	return &Editor{
		downscaler: intake.NewWithConfig(intakeConfig),
		engine:     cropper.NewWithConfig(cropperConfig),
		pending:    make(chan LoadResult, 1),
	}
}

// Engine returns the crop/zoom engine events are delivered to
func (ed *Editor) Engine() *cropper.Engine {
	return ed.engine
}

// Downscaler returns the intake stage
func (ed *Editor) Downscaler() *intake.Downscaler {
	return ed.downscaler
}

// Open bounds raw and loads it synchronously
func (ed *Editor) Open(raw []byte) error {
	bitmap, err := ed.downscaler.Bound(raw)
	if err != nil {
		return err
	}
	return ed.engine.Load(bitmap)
}

// OpenSource bounds a file path, URL or data URI and loads it
func (ed *Editor) OpenSource(ctx context.Context, source string) error {
	bitmap, err := ed.downscaler.BoundSource(ctx, source)
	if err != nil {
		return err
	}
	return ed.engine.Load(bitmap)
}

// Select starts bounding raw in the background. The result arrives on
// Pending and must be passed to Apply from the event loop.
func (ed *Editor) Select(ctx context.Context, raw []byte) cropper.Ticket {
	ticket := ed.engine.BeginLoad()
	outcomes := ed.downscaler.BoundAsync(ctx, raw)
	go func() {
		o := <-outcomes
		ed.deliver(LoadResult{Ticket: ticket, Bitmap: o.Bitmap, Err: o.Err})
	}()
	return ticket
}

// deliver parks r on pending without blocking. A result still waiting
// there is replaced when r is newer; r is dropped when it is older.
func (ed *Editor) deliver(r LoadResult) {
	ed.mu.Lock()
	defer ed.mu.Unlock()

	select {
	case old := <-ed.pending:
		if old.Ticket > r.Ticket {
			r = old
		}
	default:
	}
	// only deliver sends and it holds mu, so the slot is free
	ed.pending <- r
}

// Pending delivers completed background loads. Only the newest unread
// result is kept; older ones are discarded as they would be stale anyway.
func (ed *Editor) Pending() <-chan LoadResult {
	return ed.pending
}

// Apply installs a completed load. Loads superseded by a later Select,
// Open or Cancel return cropper.ErrStaleLoad and leave the engine unchanged.
func (ed *Editor) Apply(r LoadResult) error {
	return ed.engine.CompleteLoad(r.Ticket, r.Bitmap, r.Err)
}

// Confirm emits the cropped bitmap
func (ed *Editor) Confirm() (cropper.Result, error) {
	return ed.engine.Confirm()
}

// Cancel abandons the edit and returns the empty result
func (ed *Editor) Cancel() cropper.Result {
	return ed.engine.Cancel()
}

// QuickSave compresses raw without cropping and returns it as a data URI
func (ed *Editor) QuickSave(raw []byte) (string, error) {
	return ed.downscaler.Compress(raw)
}

// ProcessImageFile is a convenience function that loads an image, replays
// a recorded gesture script, confirms, and writes the result into
// outputDir. It returns the written path.
func (ed *Editor) ProcessImageFile(ctx context.Context, inputPath, outputDir string, events []cropper.Event) (string, error) {
	if err := ed.OpenSource(ctx, inputPath); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	if err := ed.engine.Replay(events); err != nil {
		ed.engine.Cancel()
		return "", fmt.Errorf("failed to replay gestures: %w", err)
	}

	result, err := ed.engine.Confirm()
	if err != nil {
		ed.engine.Cancel()
		return "", fmt.Errorf("failed to confirm crop: %w", err)
	}
	if result.Empty() {
		return "", errors.New("crop produced no bitmap")
	}

	if err := utils.EnsureDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := utils.GenerateOutputFilename(inputPath, outputDir, "_cropped", result.Format.Extension())
	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}

	return outputPath, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
