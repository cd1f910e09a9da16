package types

import "math"

// Zoom bounds shared by the wheel and pinch handlers.
const (
	MinZoom = 0.1
	MaxZoom = 3.0
)

// Point is a position in device (viewport) coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the euclidean distance between p and q
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Transform is the zoom/pan mapping from bitmap-local coordinates
// (origin at the bitmap center) to viewport coordinates:
//
//	viewport = center + Zoom * (bitmap + Pan)
type Transform struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// Identity returns the transform a freshly loaded bitmap is shown with
func Identity() Transform {
	return Transform{Zoom: 1}
}

// ClampZoom clips z into [MinZoom, MaxZoom]
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Preset is a named output size
type Preset struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Output presets used by profile and student photo screens
var (
	Square   = Preset{Name: "square", Width: 200, Height: 200}
	Portrait = Preset{Name: "portrait", Width: 128, Height: 192}
)

// Presets returns the known output presets
func Presets() []Preset {
	return []Preset{Square, Portrait}
}

// PresetByName looks up a preset, reporting whether it exists
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
