package emitter

// SceneBuilderOption is a functional option used to configure a Scene during construction.
type SceneBuilderOption func(*scene)

// WithEmitters adds static emitters to the scene.
//
// Parameters:
//   - emitters: the emitters to add
//
// Returns:
//   - SceneBuilderOption: a function that adds the emitters
func WithEmitters(emitters ...Emitter) SceneBuilderOption {
	return func(s *scene) {
		s.emitters = append(s.emitters, emitters...)
	}
}

// WithOccluders adds occluders to the scene.
//
// Parameters:
//   - occluders: the occluders to add
//
// Returns:
//   - SceneBuilderOption: a function that adds the occluders
func WithOccluders(occluders ...Occluder) SceneBuilderOption {
	return func(s *scene) {
		s.occluders = append(s.occluders, occluders...)
	}
}

// WithCursorEmitter adds an emitter that follows SetCursor. It is hidden until the first
// cursor position arrives.
//
// Parameters:
//   - radius: the radius relative to the scene's shorter side
//   - color: the emitted light
//
// Returns:
//   - SceneBuilderOption: a function that adds the cursor emitter
func WithCursorEmitter(radius float32, color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.cursor = &Emitter{Radius: radius, Color: color}
	}
}
