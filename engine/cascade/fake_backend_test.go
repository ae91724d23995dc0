package cascade

import (
	"errors"
	"fmt"
)

type fakeKernel struct {
	key   string
	group [3]uint32
	names map[string]int
}

func newFakeKernel(key string, group [3]uint32, names ...string) *fakeKernel {
	k := &fakeKernel{key: key, group: group, names: map[string]int{}}
	for i, n := range names {
		k.names[n] = i
	}
	return k
}

func (k *fakeKernel) Key() string              { return k.key }
func (k *fakeKernel) WorkgroupSize() [3]uint32 { return k.group }
func (k *fakeKernel) BindGroupFromVarName(group int, name string) (int, bool) {
	if group != 0 {
		return -1, false
	}
	i, ok := k.names[name]
	if !ok {
		return -1, false
	}
	return i, true
}

func fakeKernels(group [3]uint32) KernelSet {
	return KernelSet{
		Creation:     newFakeKernel("creation", group, CreationBindings...),
		Merging:      newFakeKernel("merging", group, MergingBindings...),
		Finalization: newFakeKernel("finalization", [3]uint32{8, 8, 1}, FinalizationBindings...),
	}
}

type dispatchCall struct {
	kernel   string
	bindings map[string]ResourceHandle
	groups   [3]uint32
}

// fakeBackend records every call so tests can assert on allocation and dispatch order.
type fakeBackend struct {
	limits Limits

	nextResource ResourceHandle
	nextBindings BindingsHandle
	resources    map[ResourceHandle]ResourceDescriptor
	bindings     map[BindingsHandle]map[string]ResourceHandle
	writes       map[ResourceHandle][]byte

	createdBindings int
	submissions     int
	open            bool
	dispatches      []dispatchCall

	failCreateAfter int // fail CreateResource once this many resources exist; 0 disables
	failBegin       error
}

func newFakeBackend(limits Limits) *fakeBackend {
	return &fakeBackend{
		limits:    limits,
		resources: map[ResourceHandle]ResourceDescriptor{},
		bindings:  map[BindingsHandle]map[string]ResourceHandle{},
		writes:    map[ResourceHandle][]byte{},
	}
}

func (f *fakeBackend) Limits() Limits { return f.limits }

func (f *fakeBackend) CreateResource(desc ResourceDescriptor) (ResourceHandle, error) {
	if f.failCreateAfter > 0 && len(f.resources) >= f.failCreateAfter {
		return 0, errors.New("out of memory")
	}
	f.nextResource++
	f.resources[f.nextResource] = desc
	return f.nextResource, nil
}

func (f *fakeBackend) ReleaseResource(h ResourceHandle) {
	delete(f.resources, h)
	delete(f.writes, h)
}

func (f *fakeBackend) WriteResource(h ResourceHandle, offset uint64, data []byte) {
	buf := f.writes[h]
	if need := int(offset) + len(data); len(buf) < need {
		buf = append(buf, make([]byte, need-len(buf))...)
	}
	copy(buf[offset:], data)
	f.writes[h] = buf
}

func (f *fakeBackend) CreateBindings(kernel Kernel, bindings []Binding) (BindingsHandle, error) {
	set := map[string]ResourceHandle{}
	for _, b := range bindings {
		if _, ok := kernel.BindGroupFromVarName(0, b.Name); !ok {
			return 0, fmt.Errorf("kernel %s has no binding %q", kernel.Key(), b.Name)
		}
		if _, ok := f.resources[b.Resource]; !ok && b.Name != BindingEmitterScene {
			return 0, fmt.Errorf("unknown resource %d for %q", b.Resource, b.Name)
		}
		set[b.Name] = b.Resource
	}
	f.nextBindings++
	f.createdBindings++
	f.bindings[f.nextBindings] = set
	return f.nextBindings, nil
}

func (f *fakeBackend) ReleaseBindings(h BindingsHandle) {
	delete(f.bindings, h)
}

func (f *fakeBackend) BeginCompute() error {
	if f.failBegin != nil {
		return f.failBegin
	}
	f.open = true
	return nil
}

func (f *fakeBackend) Dispatch(kernel Kernel, bindings BindingsHandle, groups [3]uint32) {
	if !f.open {
		panic("dispatch outside compute sequence")
	}
	f.dispatches = append(f.dispatches, dispatchCall{kernel: kernel.Key(), bindings: f.bindings[bindings], groups: groups})
}

func (f *fakeBackend) EndCompute() {
	f.open = false
	f.submissions++
}

func (f *fakeBackend) resourcesOfKind(kind ResourceKind) []ResourceDescriptor {
	var out []ResourceDescriptor
	for h := ResourceHandle(1); h <= f.nextResource; h++ {
		if d, ok := f.resources[h]; ok && d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
