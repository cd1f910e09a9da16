// Package cropper implements the interactive crop/zoom engine: a small
// state machine fed with pointer, wheel and touch events that keeps a
// zoom/pan transform, redraws the preview on every change, and emits the
// final fixed size bitmap on confirmation.
//
// The Engine is not safe for concurrent use. All events, including the
// completion of asynchronous loads, must be delivered from one goroutine.
package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/menta2k/photo-cropper/pkg/codec"
	"github.com/menta2k/photo-cropper/pkg/intake"
	"github.com/menta2k/photo-cropper/pkg/render"
	"github.com/menta2k/photo-cropper/pkg/types"
)

// State of the engine
type State int

const (
	Idle State = iota
	Ready
	Interacting
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Interacting:
		return "interacting"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrNotReady is returned for events delivered while no bitmap is loaded
	ErrNotReady = errors.New("cropper: no bitmap loaded")
	// ErrGestureConflict is returned when an event would start a second
	// gesture session; the event is dropped.
	ErrGestureConflict = errors.New("cropper: gesture session already active")
	// ErrStaleLoad is returned when a load completes after a newer one began
	ErrStaleLoad = errors.New("cropper: stale load discarded")
)

// Config holds configuration for the engine
type Config struct {
	// Width and Height are the viewport size in logical pixels, which is
	// also the size of the emitted bitmap.
	Width  int
	Height int
	// PixelRatio is the number of preview pixels per logical pixel
	PixelRatio float64
	Quality    int
	Format     codec.Format
	// DragDamping divides pointer movement before it is added to the pan
	DragDamping float64
	// WheelStep is the zoom change per wheel notch
	WheelStep float64
}

// DefaultConfig returns the square preset configuration
func DefaultConfig() Config {
	return ConfigForPreset(types.Square)
}

// ConfigForPreset returns the default configuration sized for p
func ConfigForPreset(p types.Preset) Config {
	return Config{
		Width:       p.Width,
		Height:      p.Height,
		PixelRatio:  1,
		Quality:     95,
		Format:      codec.JPEG,
		DragDamping: 5,
		WheelStep:   0.1,
	}
}

// Ticket identifies one asynchronous load
type Ticket uint64

// Engine is the crop/zoom state machine
type Engine struct {
	config    Config
	state     State
	bitmap    *intake.WorkingBitmap
	transform types.Transform
	preview   *image.RGBA
	session   *session
	capture   Capture
	release   func()
	onRender  func(preview *image.RGBA, t types.Transform)
	ticket    Ticket
}

// New creates an Engine with the square preset
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Engine with custom configuration
func NewWithConfig(config Config) *Engine {
	if config.PixelRatio <= 0 {
		config.PixelRatio = 1
	}
	if config.DragDamping <= 0 {
		config.DragDamping = 5
	}
	if config.WheelStep <= 0 {
		config.WheelStep = 0.1
	}
	if config.Format == "" {
		config.Format = codec.JPEG
	}
	return &Engine{
		config:    config,
		transform: types.Identity(),
	}
}

// SetCapture installs the host hook used to track drags outside the viewport
func (e *Engine) SetCapture(c Capture) {
	e.capture = c
}

// SetRenderHook installs a callback invoked after every preview redraw
func (e *Engine) SetRenderHook(fn func(preview *image.RGBA, t types.Transform)) {
	e.onRender = fn
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// State returns the current state
func (e *Engine) State() State {
	return e.state
}

// Transform returns the current zoom and pan
func (e *Engine) Transform() types.Transform {
	return e.transform
}

// ZoomPercent returns the zoom as a rounded percentage for display
func (e *Engine) ZoomPercent() int {
	return int(math.Round(e.transform.Zoom * 100))
}

// Bitmap returns the loaded working bitmap, nil outside Ready/Interacting
func (e *Engine) Bitmap() *intake.WorkingBitmap {
	return e.bitmap
}

// Preview returns the last rendered preview, nil outside Ready/Interacting
func (e *Engine) Preview() *image.RGBA {
	return e.preview
}

func (e *Engine) loaded() bool {
	return e.state == Ready || e.state == Interacting
}

// Load shows bitmap at the identity transform. It supersedes any bitmap
// already loaded and any asynchronous load still in flight.
func (e *Engine) Load(bitmap *intake.WorkingBitmap) error {
	e.ticket++
	return e.install(bitmap)
}

// BeginLoad starts an asynchronous load and returns its ticket. Only the
// most recent ticket may complete.
func (e *Engine) BeginLoad() Ticket {
	e.ticket++
	return e.ticket
}

// CompleteLoad finishes the load identified by t. Completions of older
// tickets return ErrStaleLoad and change nothing; a failed decode leaves
// the engine as it was.
func (e *Engine) CompleteLoad(t Ticket, bitmap *intake.WorkingBitmap, loadErr error) error {
	if t != e.ticket {
		return ErrStaleLoad
	}
	e.ticket++
	if loadErr != nil {
		return loadErr
	}
	return e.install(bitmap)
}

func (e *Engine) install(bitmap *intake.WorkingBitmap) error {
	if bitmap == nil || bitmap.Image == nil {
		return &types.DecodeError{Op: "load", Err: errors.New("no bitmap")}
	}

	preview, err := render.Render(bitmap.Image, types.Identity(), e.config.Width, e.config.Height, e.config.PixelRatio)
	if err != nil {
		return err
	}

	e.endSession()
	e.bitmap = bitmap
	e.transform = types.Identity()
	e.state = Ready
	e.commit(preview)
	return nil
}

// apply renders t and makes it current. A failed render keeps the old transform.
func (e *Engine) apply(t types.Transform) error {
	preview, err := render.Render(e.bitmap.Image, t, e.config.Width, e.config.Height, e.config.PixelRatio)
	if err != nil {
		return err
	}
	e.transform = t
	e.commit(preview)
	return nil
}

func (e *Engine) commit(preview *image.RGBA) {
	e.preview = preview
	if e.onRender != nil {
		e.onRender(preview, e.transform)
	}
}

// Result is the outcome of a crop session. The zero Result is the empty
// result produced by Cancel.
type Result struct {
	Image  image.Image
	Data   []byte
	Format codec.Format
	Width  int
	Height int
}

// Empty reports whether the session was cancelled
func (r Result) Empty() bool {
	return len(r.Data) == 0
}

// DataURI returns the encoded bitmap as a data URI, or "" when empty
func (r Result) DataURI() string {
	if r.Empty() {
		return ""
	}
	return codec.DataURI(r.Format, r.Data)
}

// Confirm rasterizes the bitmap through the current transform at the
// output size, exactly as the preview shows it, and ends the session.
// On failure the engine stays loaded so the user can retry or cancel.
func (e *Engine) Confirm() (Result, error) {
	if !e.loaded() {
		return Result{}, ErrNotReady
	}

	out, err := render.Render(e.bitmap.Image, e.transform, e.config.Width, e.config.Height, 1)
	if err != nil {
		return Result{}, err
	}
	data, err := codec.EncodeBytes(out, e.config.Format, e.config.Quality)
	if err != nil {
		return Result{}, &types.RenderError{Op: "encode", Err: err}
	}

	e.discard(Confirmed)
	return Result{
		Image:  out,
		Data:   data,
		Format: e.config.Format,
		Width:  e.config.Width,
		Height: e.config.Height,
	}, nil
}

// Cancel ends the session without producing a bitmap. Loads still in
// flight are discarded when they complete.
func (e *Engine) Cancel() Result {
	e.ticket++
	e.discard(Cancelled)
	return Result{}
}

func (e *Engine) discard(final State) {
	e.endSession()
	e.bitmap = nil
	e.preview = nil
	e.transform = types.Identity()
	e.state = final
}
