package cascade

import (
	"errors"
	"fmt"
)

// RadianceLayer is the GPU-resident state of one planned layer.
type RadianceLayer struct {
	// Index is the layer's position, 0 being the nearest.
	Index int
	// Info is the planned geometry the layer was allocated from.
	Info LayerInfo
	// Extent is the layer buffer's cell grid.
	Extent [3]uint32
	// Params is the uniform block uploaded for the layer.
	Params GPULayerParams
	// DispatchGroups is the thread-group count for layer-sized dispatches.
	DispatchGroups [3]uint32
	// Buffer is the radiance storage buffer.
	Buffer ResourceHandle
	// Uniforms is the uniform buffer holding Params.
	Uniforms ResourceHandle
}

// layerStore owns every GPU object the cascade allocates for one configuration: the layer
// buffers, their uniform buffers, the lit scene and every bindings object. Nothing outside
// the store releases them.
type layerStore struct {
	backend Backend

	layers         []RadianceLayer
	litScene       ResourceHandle
	litExtent      [3]uint32
	finalizeGroups [3]uint32

	createBindings   []BindingsHandle
	mergeBindings    []BindingsHandle // mergeBindings[i-1] pairs far layer i with near layer i-1
	finalizeBindings BindingsHandle
	boundSource      ResourceHandle
}

// newLayerStore allocates the buffers for layers and the lit scene, uploads every layer's
// uniform block and prepares the bindings that do not depend on the source image. On error
// everything allocated so far is released.
func newLayerStore(backend Backend, layout Layout, kernels KernelSet, infos []LayerInfo, reduction int, lit [2]int) (*layerStore, error) {
	s := &layerStore{backend: backend}
	if err := s.allocate(layout, infos, reduction, lit); err != nil {
		s.release()
		return nil, err
	}
	if err := s.bindStatic(kernels); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *layerStore) allocate(layout Layout, infos []LayerInfo, reduction int, lit [2]int) error {
	s.layers = make([]RadianceLayer, 0, len(infos))
	for i, info := range infos {
		layer := RadianceLayer{
			Index:  i,
			Info:   info,
			Extent: layout.Extent(info, i, infos),
		}
		layer.Params = GPULayerParams{
			Extent:             [4]uint32{layer.Extent[0], layer.Extent[1], layer.Extent[2], 0},
			ProbeSpacing:       uint32(info.ProbeSpacing),
			AngularResolution:  uint32(info.Resolution[2]),
			QuarterSampleCount: uint32(info.QuarterSampleCount),
			RenderScale:        float32(reduction),
			Scale:              layout.Scale(i, reduction),
			RayOffset:          info.RayOffset,
			StepSize:           info.StepSize,
		}
		layer.DispatchGroups = layout.DispatchGroupsFor(&layer)

		buf, err := s.backend.CreateResource(ResourceDescriptor{
			Label:  fmt.Sprintf("Radiance Layer %d", i),
			Kind:   ResourceKindRadiance,
			Extent: layer.Extent,
		})
		if err != nil {
			return fmt.Errorf("failed to create radiance layer %d: %w", i, err)
		}
		layer.Buffer = buf
		// Track the layer before the next allocation so release can free it on error.
		s.layers = append(s.layers, layer)

		params := layer.Params.Marshal()
		uni, err := s.backend.CreateResource(ResourceDescriptor{
			Label: fmt.Sprintf("Radiance Layer %d Params", i),
			Kind:  ResourceKindUniform,
			Size:  uint64(len(params)),
		})
		if err != nil {
			return fmt.Errorf("failed to create uniforms for layer %d: %w", i, err)
		}
		s.layers[i].Uniforms = uni
		s.backend.WriteResource(uni, 0, params)
	}

	s.litExtent = [3]uint32{uint32(lit[0]), uint32(lit[1]), 1}
	img, err := s.backend.CreateResource(ResourceDescriptor{
		Label:  "Lit Scene",
		Kind:   ResourceKindImage,
		Extent: s.litExtent,
	})
	if err != nil {
		return fmt.Errorf("failed to create lit scene: %w", err)
	}
	s.litScene = img
	return nil
}

// bindStatic prepares the merge and finalize bindings. The finalize pass always reads layer 0.
func (s *layerStore) bindStatic(kernels KernelSet) error {
	s.mergeBindings = make([]BindingsHandle, 0, max(len(s.layers)-1, 0))
	for i := 1; i < len(s.layers); i++ {
		far, near := s.layers[i], s.layers[i-1]
		h, err := s.backend.CreateBindings(kernels.Merging, []Binding{
			{Name: BindingFarRadianceMap, Resource: far.Buffer},
			{Name: BindingNearRadianceMap, Resource: near.Buffer},
			{Name: BindingFarParams, Resource: far.Uniforms},
			{Name: BindingNearParams, Resource: near.Uniforms},
		})
		if err != nil {
			return fmt.Errorf("failed to bind merge %d->%d: %w", i, i-1, err)
		}
		s.mergeBindings = append(s.mergeBindings, h)
	}

	h, err := s.backend.CreateBindings(kernels.Finalization, []Binding{
		{Name: BindingRadianceMap, Resource: s.layers[0].Buffer},
		{Name: BindingLitScene, Resource: s.litScene},
		{Name: BindingParams, Resource: s.layers[0].Uniforms},
	})
	if err != nil {
		return fmt.Errorf("failed to bind finalize: %w", err)
	}
	s.finalizeBindings = h
	s.finalizeGroups = DispatchGroups(s.litExtent, kernels.Finalization.WorkgroupSize())
	return nil
}

// bindSource rebuilds the creation bindings when source differs from the bound image.
func (s *layerStore) bindSource(kernels KernelSet, source ResourceHandle) error {
	if source == s.boundSource && len(s.createBindings) == len(s.layers) {
		return nil
	}
	s.releaseCreateBindings()

	bindings := make([]BindingsHandle, 0, len(s.layers))
	for _, layer := range s.layers {
		h, err := s.backend.CreateBindings(kernels.Creation, []Binding{
			{Name: BindingEmitterScene, Resource: source},
			{Name: BindingRadianceMap, Resource: layer.Buffer},
			{Name: BindingParams, Resource: layer.Uniforms},
		})
		if err != nil {
			for _, b := range bindings {
				s.backend.ReleaseBindings(b)
			}
			return fmt.Errorf("failed to bind creation for layer %d: %w", layer.Index, err)
		}
		bindings = append(bindings, h)
	}
	s.createBindings = bindings
	s.boundSource = source
	return nil
}

func (s *layerStore) releaseCreateBindings() {
	for _, h := range s.createBindings {
		s.backend.ReleaseBindings(h)
	}
	s.createBindings = nil
	s.boundSource = 0
}

// release frees every GPU object the store owns. Safe to call on a partially built store.
func (s *layerStore) release() {
	s.releaseCreateBindings()
	for _, h := range s.mergeBindings {
		s.backend.ReleaseBindings(h)
	}
	s.mergeBindings = nil
	if s.finalizeBindings != 0 {
		s.backend.ReleaseBindings(s.finalizeBindings)
		s.finalizeBindings = 0
	}
	for _, layer := range s.layers {
		if layer.Uniforms != 0 {
			s.backend.ReleaseResource(layer.Uniforms)
		}
		if layer.Buffer != 0 {
			s.backend.ReleaseResource(layer.Buffer)
		}
	}
	s.layers = nil
	if s.litScene != 0 {
		s.backend.ReleaseResource(s.litScene)
		s.litScene = 0
	}
}

// validateKernels checks every phase has a kernel declaring the bindings that phase binds, and
// that merging shares the creation kernel's workgroup size since merges reuse layer groups.
func validateKernels(kernels KernelSet) error {
	var errs []error
	for _, phase := range []struct {
		name   string
		kernel Kernel
		names  []string
	}{
		{"creation", kernels.Creation, CreationBindings},
		{"merging", kernels.Merging, MergingBindings},
		{"finalization", kernels.Finalization, FinalizationBindings},
	} {
		if phase.kernel == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKernel, phase.name))
			continue
		}
		for _, name := range phase.names {
			if _, ok := phase.kernel.BindGroupFromVarName(0, name); !ok {
				errs = append(errs, fmt.Errorf("%w: %s kernel %q does not declare %q",
					ErrMissingBinding, phase.name, phase.kernel.Key(), name))
			}
		}
	}
	if kernels.Creation != nil && kernels.Merging != nil {
		if c, m := kernels.Creation.WorkgroupSize(), kernels.Merging.WorkgroupSize(); c != m {
			errs = append(errs, fmt.Errorf("%w: creation %v, merging %v", ErrWorkgroupMismatch, c, m))
		}
	}
	return errors.Join(errs...)
}
