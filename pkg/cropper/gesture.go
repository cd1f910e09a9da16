package cropper

import "github.com/menta2k/photo-cropper/pkg/types"

// Button identifies a mouse button, numbered like DOM MouseEvent.button
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Capture lets the host route pointer events from anywhere on screen to
// the engine while a drag is in progress. Acquire registers the global
// listeners and returns the function that removes them.
type Capture interface {
	Acquire() (release func())
}

// CaptureFunc adapts a function to the Capture interface
type CaptureFunc func() func()

func (f CaptureFunc) Acquire() func() {
	return f()
}

type gestureKind int

const (
	drag gestureKind = iota
	pinch
)

type inputSource int

const (
	pointerSource inputSource = iota
	touchSource
)

// session is one contiguous pointer or touch interaction
type session struct {
	kind   gestureKind
	source inputSource
	// last is the previous sample for drags
	last types.Point
	// anchor is the previous inter-touch distance for pinches
	anchor float64
}

func (e *Engine) beginSession(s *session) {
	e.session = s
	e.state = Interacting
	if e.capture != nil {
		e.release = e.capture.Acquire()
	}
}

func (e *Engine) endSession() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
	if e.session != nil {
		e.session = nil
		if e.state == Interacting {
			e.state = Ready
		}
	}
}

func (e *Engine) owns(source inputSource) bool {
	return e.session != nil && e.session.source == source
}

// pan moves the image by the damped distance from the last sample
func (e *Engine) pan(p types.Point) error {
	d := p.Sub(e.session.last)
	e.session.last = p
	t := e.transform
	t.PanX += d.X / e.config.DragDamping
	t.PanY += d.Y / e.config.DragDamping
	return e.apply(t)
}

// PointerDown starts a drag at p. Only the primary button starts a session.
func (e *Engine) PointerDown(p types.Point, button Button) error {
	if !e.loaded() {
		return ErrNotReady
	}
	if button != ButtonPrimary {
		return nil
	}
	if e.session != nil {
		return ErrGestureConflict
	}
	e.beginSession(&session{kind: drag, source: pointerSource, last: p})
	return nil
}

// PointerMove pans by (p - last) / DragDamping while a pointer drag is active
func (e *Engine) PointerMove(p types.Point) error {
	if !e.owns(pointerSource) {
		return nil
	}
	return e.pan(p)
}

// PointerUp ends the pointer drag, leaving the transform as it is
func (e *Engine) PointerUp() error {
	if e.owns(pointerSource) {
		e.endSession()
	}
	return nil
}

// Wheel zooms in by WheelStep for a negative deltaY and out for a positive
// one, clamped to [MinZoom, MaxZoom]. It composes with an active drag.
// A zero deltaY, as sent for horizontal-only scrolls, leaves the zoom
// unchanged instead of being treated as a zoom in.
func (e *Engine) Wheel(deltaY float64) error {
	if !e.loaded() {
		return ErrNotReady
	}
	if deltaY == 0 {
		return nil
	}
	step := e.config.WheelStep
	if deltaY > 0 {
		step = -step
	}
	t := e.transform
	t.Zoom = types.ClampZoom(t.Zoom + step)
	return e.apply(t)
}

// TouchStart begins a pinch for two touches or a drag for one. A pointer
// drag in progress keeps ownership and the touch is dropped.
func (e *Engine) TouchStart(touches []types.Point) error {
	if !e.loaded() {
		return ErrNotReady
	}
	if e.owns(pointerSource) {
		return ErrGestureConflict
	}
	// the touch count changed: the previous touch session is over
	e.endSession()

	switch len(touches) {
	case 2:
		e.beginSession(&session{kind: pinch, source: touchSource, anchor: touches[0].Dist(touches[1])})
	case 1:
		e.beginSession(&session{kind: drag, source: touchSource, last: touches[0]})
	}
	return nil
}

// TouchMove scales the zoom by the change in finger distance since the
// previous sample, or pans for a one finger drag.
func (e *Engine) TouchMove(touches []types.Point) error {
	if !e.owns(touchSource) {
		return nil
	}

	s := e.session
	switch {
	case s.kind == pinch && len(touches) == 2:
		d := touches[0].Dist(touches[1])
		anchor := s.anchor
		s.anchor = d
		if anchor <= 0 {
			return nil
		}
		t := e.transform
		t.Zoom = types.ClampZoom(t.Zoom * d / anchor)
		return e.apply(t)
	case s.kind == drag && len(touches) == 1:
		return e.pan(touches[0])
	}

	e.endSession()
	return nil
}

// TouchEnd ends the touch session
func (e *Engine) TouchEnd() error {
	if e.owns(touchSource) {
		e.endSession()
	}
	return nil
}
