package cascade

// ResourceHandle identifies a GPU resource owned by a Backend. Handles are opaque to the
// cascade; the zero value never refers to a live resource.
type ResourceHandle uint32

// BindingsHandle identifies a prepared set of kernel bindings (a bind group) owned by a Backend.
// The zero value never refers to a live bindings object.
type BindingsHandle uint32

// ResourceKind identifies the storage representation a Backend must allocate for a resource.
type ResourceKind int

const (
	// ResourceKindRadiance is a read/write storage buffer holding one vec4<f32> per cell of
	// its extent (rgb radiance + transmittance).
	ResourceKindRadiance ResourceKind = iota

	// ResourceKindUniform is a uniform buffer of ResourceDescriptor.Size bytes.
	ResourceKindUniform

	// ResourceKindImage is a 2D rgba16float image writable from compute kernels and
	// readable by the compositor.
	ResourceKindImage
)

// RadianceCellBytes is the byte size of one vec4<f32> cell of a ResourceKindRadiance buffer.
const RadianceCellBytes = 16

// String returns a readable name for the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case ResourceKindRadiance:
		return "radiance"
	case ResourceKindUniform:
		return "uniform"
	case ResourceKindImage:
		return "image"
	default:
		return "unknown"
	}
}

// ResourceDescriptor describes a GPU resource to be created by a Backend.
type ResourceDescriptor struct {
	// Label is a debug label forwarded to the GPU API.
	Label string
	// Kind selects the storage representation.
	Kind ResourceKind
	// Extent is the cell grid for radiance buffers and the pixel size for images (z = 1).
	// Unused for uniform buffers.
	Extent [3]uint32
	// Size is the byte size of a uniform buffer. Unused for other kinds.
	Size uint64
}

// Binding associates a kernel variable name with a resource.
type Binding struct {
	// Name is the WGSL variable name declared by the kernel (e.g. "radianceMap").
	Name string
	// Resource is the handle bound to that variable.
	Resource ResourceHandle
}

// Limits reports the hardware ceilings the cascade plans against.
type Limits struct {
	// MaxVolumeExtent is the largest extent a volumetric layer may have on any single axis.
	// Zero means the backend reports no ceiling.
	MaxVolumeExtent uint32
}

// Kernel is the view of a compiled compute program the cascade needs: an identity, the
// declared thread-group size, and name lookup for its bindings. It is satisfied by
// shader.Shader.
type Kernel interface {
	// Key returns the unique identifier of the kernel.
	//
	// Returns:
	//   - string: the kernel key
	Key() string

	// WorkgroupSize returns the kernel's declared @workgroup_size as [x, y, z].
	//
	// Returns:
	//   - [3]uint32: the thread-group size
	WorkgroupSize() [3]uint32

	// BindGroupFromVarName resolves a WGSL variable name to its binding index within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name to look up
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable is declared in the group
	BindGroupFromVarName(group int, varName string) (int, bool)
}

// Backend is the GPU command surface the cascade drives. The wgpu renderer implements it for
// real hardware; tests substitute a recording fake. All methods are called from a single
// submission goroutine.
type Backend interface {
	// Limits reports the hardware ceilings of the device.
	//
	// Returns:
	//   - Limits: the device limits relevant to cascade planning
	Limits() Limits

	// CreateResource allocates a GPU resource and returns its handle.
	//
	// Parameters:
	//   - desc: the resource description
	//
	// Returns:
	//   - ResourceHandle: the handle of the new resource
	//   - error: an error if the allocation fails
	CreateResource(desc ResourceDescriptor) (ResourceHandle, error)

	// ReleaseResource frees a resource. Releasing an unknown handle is a no-op.
	//
	// Parameters:
	//   - h: the resource to release
	ReleaseResource(h ResourceHandle)

	// WriteResource queues a write of data into a buffer resource at the given byte offset.
	//
	// Parameters:
	//   - h: the destination resource
	//   - offset: the byte offset within the resource
	//   - data: the bytes to write
	WriteResource(h ResourceHandle, offset uint64, data []byte)

	// CreateBindings prepares a bindings object for kernel, resolving every binding by name.
	//
	// Parameters:
	//   - kernel: the kernel whose layout the bindings follow
	//   - bindings: the named resources to bind
	//
	// Returns:
	//   - BindingsHandle: the handle of the prepared bindings
	//   - error: an error if a name is not declared by the kernel or a resource is unknown
	CreateBindings(kernel Kernel, bindings []Binding) (BindingsHandle, error)

	// ReleaseBindings frees a bindings object. Releasing an unknown handle is a no-op.
	//
	// Parameters:
	//   - h: the bindings to release
	ReleaseBindings(h BindingsHandle)

	// BeginCompute opens a command sequence that batches every dispatch of a frame into
	// one submission.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginCompute() error

	// Dispatch records one kernel dispatch into the open command sequence.
	//
	// Parameters:
	//   - kernel: the kernel to run
	//   - bindings: the prepared bindings for the kernel
	//   - groups: the number of thread groups along x, y and z
	Dispatch(kernel Kernel, bindings BindingsHandle, groups [3]uint32)

	// EndCompute closes the command sequence and submits it to the GPU queue.
	EndCompute()
}
