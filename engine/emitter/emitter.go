// Package emitter builds the CPU-side emitter scene the cascade's creation pass samples: an
// rgba8 image where rgb is emitted light and alpha is opacity.
package emitter

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg"
)

// Emitter is a disc of emitted light. Positions and radii are relative to the scene, so the
// layout survives a resize.
type Emitter struct {
	// X and Y are the center in [0, 1] scene coordinates.
	X, Y float32
	// Radius is relative to the scene's shorter side.
	Radius float32
	// Color is the emitted light, each channel in [0, 1].
	Color [3]float32
}

// Occluder is an opaque, non-emitting rectangle in relative coordinates.
type Occluder struct {
	X, Y, W, H float32
}

type scene struct {
	mu *sync.Mutex

	dc *gg.Context

	emitters  []Emitter
	occluders []Occluder

	cursor        *Emitter
	cursorX       float32
	cursorY       float32
	cursorEnabled bool
}

// Scene is a resizable emitter scene. Render rasterizes it into an rgba8 buffer that is
// reused between calls.
type Scene interface {
	// Width returns the scene width in pixels.
	Width() int

	// Height returns the scene height in pixels.
	Height() int

	// Resize changes the pixel size of the scene. Non-positive sizes are ignored.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetCursor moves the cursor emitter to a pixel position. It has no effect without
	// WithCursorEmitter.
	//
	// Parameters:
	//   - x: the cursor x in pixels
	//   - y: the cursor y in pixels
	SetCursor(x, y float64)

	// AddEmitter adds a static emitter.
	//
	// Parameters:
	//   - e: the emitter
	AddEmitter(e Emitter)

	// AddOccluder adds an occluder.
	//
	// Parameters:
	//   - o: the occluder
	AddOccluder(o Occluder)

	// Emitters returns the static emitters followed by the cursor emitter, if any.
	//
	// Returns:
	//   - []Emitter: a copy of the emitters
	Emitters() []Emitter

	// Render rasterizes occluders, then emitters, into the pixel buffer. The returned slice is
	// owned by the scene and overwritten by the next call.
	//
	// Returns:
	//   - []byte: width*height*4 bytes of rgba8 pixels
	//   - error: an error if a shape could not be filled
	Render() ([]byte, error)
}

var _ Scene = &scene{}

// NewScene creates an empty scene of the given pixel size.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//   - options: variadic SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
func NewScene(width, height int, options ...SceneBuilderOption) Scene {
	s := &scene{mu: &sync.Mutex{}, dc: gg.NewContext(max(width, 1), max(height, 1))}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewDemoScene creates the scene the demo renders: three coloured lights, a few walls for
// shadows and a white light that follows the cursor.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - Scene: the demo scene
func NewDemoScene(width, height int) Scene {
	return NewScene(width, height,
		WithEmitters(
			Emitter{X: 0.2, Y: 0.25, Radius: 0.04, Color: [3]float32{1, 0.3, 0.2}},
			Emitter{X: 0.8, Y: 0.3, Radius: 0.05, Color: [3]float32{0.2, 0.5, 1}},
			Emitter{X: 0.5, Y: 0.8, Radius: 0.03, Color: [3]float32{0.3, 1, 0.4}},
		),
		WithOccluders(
			Occluder{X: 0.35, Y: 0.4, W: 0.3, H: 0.03},
			Occluder{X: 0.15, Y: 0.55, W: 0.03, H: 0.25},
			Occluder{X: 0.7, Y: 0.5, W: 0.12, H: 0.12},
		),
		WithCursorEmitter(0.025, [3]float32{1, 1, 1}),
	)
}

func (s *scene) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Width()
}

func (s *scene) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Height()
}

func (s *scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// dimensions are checked above, the only error Resize reports
	_ = s.dc.Resize(width, height)
}

func (s *scene) SetCursor(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor == nil {
		return
	}
	s.cursorX = float32(x / float64(s.dc.Width()))
	s.cursorY = float32(y / float64(s.dc.Height()))
	s.cursorEnabled = true
}

func (s *scene) AddEmitter(e Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitters = append(s.emitters, e)
}

func (s *scene) AddOccluder(o Occluder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occluders = append(s.occluders, o)
}

func (s *scene) Emitters() []Emitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allEmitters()
}

func (s *scene) allEmitters() []Emitter {
	out := make([]Emitter, 0, len(s.emitters)+1)
	out = append(out, s.emitters...)
	if s.cursor != nil && s.cursorEnabled {
		c := *s.cursor
		c.X, c.Y = s.cursorX, s.cursorY
		out = append(out, c)
	}
	return out
}

func (s *scene) Render() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := float64(s.dc.Width()), float64(s.dc.Height())
	s.dc.Clear()

	s.dc.SetRGBA(0, 0, 0, 1)
	for _, o := range s.occluders {
		s.dc.DrawRectangle(float64(o.X)*w, float64(o.Y)*h, float64(o.W)*w, float64(o.H)*h)
		if err := s.dc.Fill(); err != nil {
			return nil, fmt.Errorf("failed to fill occluder: %w", err)
		}
	}
	for _, e := range s.allEmitters() {
		s.dc.SetRGBA(unit(e.Color[0]), unit(e.Color[1]), unit(e.Color[2]), 1)
		s.dc.DrawCircle(float64(e.X)*w, float64(e.Y)*h, float64(e.Radius)*min(w, h))
		if err := s.dc.Fill(); err != nil {
			return nil, fmt.Errorf("failed to fill emitter: %w", err)
		}
	}
	return s.dc.ResizeTarget().Data(), nil
}

func unit(v float32) float64 {
	return float64(min(max(v, 0), 1))
}
