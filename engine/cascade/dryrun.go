package cascade

import "sync"

// litTexelBytes is the size of one rgba16float lit-scene texel.
const litTexelBytes = 8

// DryRunBackend is a Backend that allocates handles and tallies memory without touching a GPU.
// It lets a Cascade be configured to inspect its plan, layers and dispatch groups offline.
type DryRunBackend struct {
	mu sync.Mutex

	limits    Limits
	next      ResourceHandle
	nextBind  BindingsHandle
	resources map[ResourceHandle]ResourceDescriptor
	bindings  map[BindingsHandle]struct{}
	dispatch  int
}

var _ Backend = &DryRunBackend{}

// NewDryRunBackend creates a DryRunBackend that reports limits to the cascade.
//
// Parameters:
//   - limits: the device limits to pretend to have
//
// Returns:
//   - *DryRunBackend: the new backend
func NewDryRunBackend(limits Limits) *DryRunBackend {
	return &DryRunBackend{
		limits:    limits,
		resources: make(map[ResourceHandle]ResourceDescriptor),
		bindings:  make(map[BindingsHandle]struct{}),
	}
}

func (b *DryRunBackend) Limits() Limits {
	return b.limits
}

func (b *DryRunBackend) CreateResource(desc ResourceDescriptor) (ResourceHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.resources[b.next] = desc
	return b.next, nil
}

func (b *DryRunBackend) ReleaseResource(h ResourceHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.resources, h)
}

func (b *DryRunBackend) WriteResource(ResourceHandle, uint64, []byte) {}

func (b *DryRunBackend) CreateBindings(Kernel, []Binding) (BindingsHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextBind++
	b.bindings[b.nextBind] = struct{}{}
	return b.nextBind, nil
}

func (b *DryRunBackend) ReleaseBindings(h BindingsHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bindings, h)
}

func (b *DryRunBackend) BeginCompute() error {
	return nil
}

func (b *DryRunBackend) Dispatch(Kernel, BindingsHandle, [3]uint32) {
	b.mu.Lock()
	b.dispatch++
	b.mu.Unlock()
}

func (b *DryRunBackend) EndCompute() {}

// ResourceBytes returns the number of bytes a live resource would occupy on the GPU, or zero
// for an unknown handle.
//
// Parameters:
//   - h: the resource handle
//
// Returns:
//   - uint64: the resource size in bytes
func (b *DryRunBackend) ResourceBytes(h ResourceHandle) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	desc, ok := b.resources[h]
	if !ok {
		return 0
	}
	return descriptorBytes(desc)
}

// AllocatedBytes returns the total size of every live resource.
func (b *DryRunBackend) AllocatedBytes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total uint64
	for _, desc := range b.resources {
		total += descriptorBytes(desc)
	}
	return total
}

// LiveResources returns the number of resources not yet released.
func (b *DryRunBackend) LiveResources() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.resources)
}

// LiveBindings returns the number of bindings objects not yet released.
func (b *DryRunBackend) LiveBindings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bindings)
}

// Dispatches returns the number of dispatches recorded since creation.
func (b *DryRunBackend) Dispatches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatch
}

func descriptorBytes(desc ResourceDescriptor) uint64 {
	cells := uint64(desc.Extent[0]) * uint64(desc.Extent[1]) * uint64(max(desc.Extent[2], 1))
	switch desc.Kind {
	case ResourceKindRadiance:
		return cells * RadianceCellBytes
	case ResourceKindImage:
		return cells * litTexelBytes
	default:
		return desc.Size
	}
}
