package cascade

import "errors"

var (
	// ErrInvalidTarget is returned when the render target or the reduced lit scene has a zero side.
	ErrInvalidTarget = errors.New("cascade: invalid render target")
	// ErrInvalidReduction is returned when the reduction factor is below one.
	ErrInvalidReduction = errors.New("cascade: invalid reduction factor")
	// ErrInvalidRayLength is returned when the base ray length is not a positive finite number.
	ErrInvalidRayLength = errors.New("cascade: invalid base ray length")
	// ErrInvalidRayOffset is returned when the base ray offset is negative or not finite.
	ErrInvalidRayOffset = errors.New("cascade: invalid base ray offset")
	// ErrMissingKernel is returned when a phase has no kernel.
	ErrMissingKernel = errors.New("cascade: missing kernel")
	// ErrMissingBinding is returned when a kernel does not declare a binding a phase requires.
	ErrMissingBinding = errors.New("cascade: missing kernel binding")
	// ErrWorkgroupMismatch is returned when the merging kernel's workgroup size differs from the
	// creation kernel's. Both dispatch over the same layer groups.
	ErrWorkgroupMismatch = errors.New("cascade: merging and creation workgroup sizes differ")
	// ErrNotConfigured is returned by Render before a successful Configure.
	ErrNotConfigured = errors.New("cascade: not configured")
	// ErrNoLayers is returned when hardware limits leave no layer to allocate.
	ErrNoLayers = errors.New("cascade: no layers fit the device limits")
	// ErrInvalidSource is returned by Render when the source handle is zero.
	ErrInvalidSource = errors.New("cascade: invalid source image")
)
