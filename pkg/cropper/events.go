package cropper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/menta2k/photo-cropper/pkg/types"
)

// EventType names an input event
type EventType string

const (
	EventPointerDown EventType = "pointerdown"
	EventPointerMove EventType = "pointermove"
	EventPointerUp   EventType = "pointerup"
	EventWheel       EventType = "wheel"
	EventTouchStart  EventType = "touchstart"
	EventTouchMove   EventType = "touchmove"
	EventTouchEnd    EventType = "touchend"
)

// Event is a serializable input event, used by UI bindings that forward
// raw events and by recorded gesture scripts.
type Event struct {
	Type    EventType     `json:"type"`
	X       float64       `json:"x,omitempty"`
	Y       float64       `json:"y,omitempty"`
	Button  Button        `json:"button,omitempty"`
	DeltaY  float64       `json:"delta_y,omitempty"`
	Touches []types.Point `json:"touches,omitempty"`
}

// Dispatch routes ev to the matching handler
func (e *Engine) Dispatch(ev Event) error {
	p := types.Point{X: ev.X, Y: ev.Y}
	switch ev.Type {
	case EventPointerDown:
		return e.PointerDown(p, ev.Button)
	case EventPointerMove:
		return e.PointerMove(p)
	case EventPointerUp:
		return e.PointerUp()
	case EventWheel:
		return e.Wheel(ev.DeltaY)
	case EventTouchStart:
		return e.TouchStart(ev.Touches)
	case EventTouchMove:
		return e.TouchMove(ev.Touches)
	case EventTouchEnd:
		return e.TouchEnd()
	}
	return fmt.Errorf("unknown event type: %q", ev.Type)
}

// Replay dispatches events in order. Dropped conflicting events are not
// errors; any other failure stops the replay.
func (e *Engine) Replay(events []Event) error {
	for i, ev := range events {
		if err := e.Dispatch(ev); err != nil && !errors.Is(err, ErrGestureConflict) {
			return fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
		}
	}
	return nil
}

// ReadScript parses a JSON array of events
func ReadScript(r io.Reader) ([]Event, error) {
	var events []Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to parse event script: %w", err)
	}
	return events, nil
}

// DragScript returns the pointer events that move the pan by (dx, dy)
// starting from the viewport point at.
func DragScript(at types.Point, dx, dy, damping float64) []Event {
	end := types.Point{X: at.X + dx*damping, Y: at.Y + dy*damping}
	return []Event{
		{Type: EventPointerDown, X: at.X, Y: at.Y},
		{Type: EventPointerMove, X: end.X, Y: end.Y},
		{Type: EventPointerUp},
	}
}

// PinchScript returns the touch events that scale the zoom by factor
func PinchScript(center types.Point, factor float64) []Event {
	const d0 = 100.0
	d1 := d0 * factor
	return []Event{
		{Type: EventTouchStart, Touches: []types.Point{{X: center.X - d0/2, Y: center.Y}, {X: center.X + d0/2, Y: center.Y}}},
		{Type: EventTouchMove, Touches: []types.Point{{X: center.X - d1/2, Y: center.Y}, {X: center.X + d1/2, Y: center.Y}}},
		{Type: EventTouchEnd},
	}
}
