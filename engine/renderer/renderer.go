package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-radiance/common"
	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-radiance/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// CompositeTextureVar is the variable the composite fragment shader samples the lit scene through.
	CompositeTextureVar = "litScene"
	// CompositeSamplerVar is the variable holding the composite sampler.
	CompositeSamplerVar = "litSampler"

	// LitSceneFormat is the texel format of cascade images.
	LitSceneFormat = wgpu.TextureFormatRGBA16Float
	// SourceImageFormat is the texel format of emitter scene images.
	SourceImageFormat = wgpu.TextureFormatRGBA8Unorm
)

var (
	// ErrUnknownResource is returned when a handle does not refer to a live resource.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownPipeline is returned when no registered pipeline matches a kernel or key.
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrUnboundVariable is returned when a kernel does not declare a bound variable.
	ErrUnboundVariable = errors.New("variable not declared by kernel")
)

// resourceEntry is a live resource and the provider that owns its GPU objects. Buffers and
// textures are always stored at binding 0 of the provider.
type resourceEntry struct {
	desc      cascade.ResourceDescriptor
	provider  bind_group_provider.BindGroupProvider
	texelSize uint32 // zero for buffers
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	nextHandle uint32
	resources  map[cascade.ResourceHandle]*resourceEntry
	bindings   map[cascade.BindingsHandle]bind_group_provider.BindGroupProvider

	compositeKey      string
	compositeProvider bind_group_provider.BindGroupProvider
	compositeFor      cascade.ResourceHandle

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer is the GPU side of the radiance cascade. It implements cascade.Backend on top of the
// WebGPU backend, mapping cascade handles onto BindGroupProviders, and cascade.Compositor by
// drawing the lit scene onto the window surface with a full-screen triangle.
//
// Compute pipelines are looked up by the Key of the kernel they were built from, so every
// kernel handed to a Cascade must be registered first.
type Renderer interface {
	cascade.Backend
	cascade.Compositor

	// Pipeline retrieves the registered Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU pipeline objects (render or compute) for each pipeline via
	// the backend, then caches them by PipelineKey. Pipelines whose keys are already registered
	// are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SetCompositePipeline selects the registered render pipeline Composite draws with.
	//
	// Parameters:
	//   - key: the key of a registered render pipeline
	//
	// Returns:
	//   - error: ErrUnknownPipeline if no pipeline is registered under key
	SetCompositePipeline(key string) error

	// Resize reconfigures the surface for a new size. Call it when the window's framebuffer
	// size changes, before resizing the cascade.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode sets the present mode used on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateSourceImage allocates an rgba8unorm image the host uploads the emitter scene into
	// with WriteResource. The image can be bound as a cascade source.
	//
	// Parameters:
	//   - width: the image width in pixels
	//   - height: the image height in pixels
	//
	// Returns:
	//   - cascade.ResourceHandle: the handle of the new image
	//   - error: an error if the texture could not be created
	CreateSourceImage(width, height int) (cascade.ResourceHandle, error)

	// Release frees every resource, bindings object and pipeline, then the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for window's surface, configures the surface at the
// window's size and registers any pipelines passed as options.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window whose surface the renderer presents to
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: an error if the device, surface or a pipeline could not be created
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)

	// pipelines passed as options are registered once the surface format is known
	pending := r.pipelineCache
	r.pipelineCache = make(map[string]pipeline.Pipeline, len(pending))

	var (
		backend RendererBackend
		err     error
	)
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter)
	}
	if err != nil {
		return nil, err
	}
	r.backend = backend

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.ConfigureSurface(window.Width(), window.Height()); err != nil {
		r.Release()
		return nil, err
	}

	for _, p := range pending {
		if err := r.RegisterPipelines(p); err != nil {
			r.Release()
			return nil, err
		}
	}
	if r.compositeKey != "" {
		if err := r.SetCompositePipeline(r.compositeKey); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// newRenderer builds the renderer state without touching the GPU.
func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		logger:        cascade.Logger(),
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		resources:     make(map[cascade.ResourceHandle]*resourceEntry),
		bindings:      make(map[cascade.BindingsHandle]bind_group_provider.BindGroupProvider),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) Resize(width, height int) error {
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		r.mu.Lock()
		_, exists := r.pipelineCache[p.PipelineKey()]
		r.mu.Unlock()
		if exists {
			continue
		}

		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		default:
			err = r.backend.RegisterRenderPipeline(p)
		}
		if err != nil {
			return fmt.Errorf("failed to register pipeline %q: %w", p.PipelineKey(), err)
		}

		r.mu.Lock()
		r.pipelineCache[p.PipelineKey()] = p
		r.mu.Unlock()
		r.logger.Debug("renderer: pipeline registered", slog.String("key", p.PipelineKey()))
	}
	return nil
}

func (r *renderer) SetCompositePipeline(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pipelineCache[key]
	if !ok || p.Type() != pipeline.PipelineTypeRender {
		return fmt.Errorf("%w: composite %q", ErrUnknownPipeline, key)
	}
	r.compositeKey = key
	r.releaseComposite()
	return nil
}

func (r *renderer) Limits() cascade.Limits {
	return cascade.Limits{MaxVolumeExtent: r.backend.SupportedLimits().MaxTextureDimension3D}
}

func (r *renderer) allocHandle() uint32 {
	r.nextHandle++
	return r.nextHandle
}

func (r *renderer) CreateResource(desc cascade.ResourceDescriptor) (cascade.ResourceHandle, error) {
	provider := bind_group_provider.NewBindGroupProvider(desc.Label)
	entry := &resourceEntry{desc: desc, provider: provider}

	var err error
	switch desc.Kind {
	case cascade.ResourceKindRadiance:
		size := radianceBufferSize(desc.Extent)
		if limit := r.backend.SupportedLimits().MaxStorageBufferBindingSize; limit > 0 && size > limit {
			return 0, fmt.Errorf("%s: %d bytes exceeds max storage binding size %d", desc.Label, size, limit)
		}
		err = r.backend.InitBuffer(provider, 0, size, bufferUsage(desc.Kind))
	case cascade.ResourceKindUniform:
		err = r.backend.InitBuffer(provider, 0, desc.Size, bufferUsage(desc.Kind))
	case cascade.ResourceKindImage:
		entry.texelSize = texelSize(LitSceneFormat)
		err = r.backend.InitTexture(provider, 0, desc.Extent[0], desc.Extent[1], LitSceneFormat,
			wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding)
	default:
		return 0, fmt.Errorf("%s: unsupported resource kind %s", desc.Label, desc.Kind)
	}
	if err != nil {
		provider.Release()
		return 0, fmt.Errorf("failed to create %s %q: %w", desc.Kind, desc.Label, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h := cascade.ResourceHandle(r.allocHandle())
	r.resources[h] = entry
	return h, nil
}

func (r *renderer) CreateSourceImage(width, height int) (cascade.ResourceHandle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid source image size %dx%d", width, height)
	}
	desc := cascade.ResourceDescriptor{
		Label:  "Emitter Scene",
		Kind:   cascade.ResourceKindImage,
		Extent: [3]uint32{uint32(width), uint32(height), 1},
	}
	provider := bind_group_provider.NewBindGroupProvider(desc.Label)
	if err := r.backend.InitTexture(provider, 0, desc.Extent[0], desc.Extent[1], SourceImageFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst); err != nil {
		provider.Release()
		return 0, fmt.Errorf("failed to create source image: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h := cascade.ResourceHandle(r.allocHandle())
	r.resources[h] = &resourceEntry{desc: desc, provider: provider, texelSize: texelSize(SourceImageFormat)}
	return h, nil
}

func (r *renderer) ReleaseResource(h cascade.ResourceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.resources[h]
	if !ok {
		return
	}
	if r.compositeFor == h {
		r.releaseComposite()
	}
	entry.provider.Release()
	delete(r.resources, h)
}

// WriteResource uploads into a buffer at offset, or replaces a whole image. Image writes
// ignore offset and expect tightly packed rows.
func (r *renderer) WriteResource(h cascade.ResourceHandle, offset uint64, data []byte) {
	r.mu.Lock()
	entry, ok := r.resources[h]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("renderer: write to unknown resource", slog.Any("handle", h))
		return
	}

	if entry.texelSize == 0 {
		r.backend.WriteBuffer(entry.provider.Buffer(0), offset, data)
		return
	}
	w, hgt := entry.desc.Extent[0], entry.desc.Extent[1]
	if want := int(w * hgt * entry.texelSize); len(data) != want {
		r.logger.Warn("renderer: image write size mismatch",
			slog.String("label", entry.desc.Label), slog.Int("got", len(data)), slog.Int("want", want))
		return
	}
	r.backend.WriteTexture(entry.provider.Texture(0), w, hgt, entry.texelSize, data)
}

func (r *renderer) CreateBindings(kernel cascade.Kernel, bindings []cascade.Binding) (cascade.BindingsHandle, error) {
	r.mu.Lock()
	p, ok := r.pipelineCache[kernel.Key()]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", ErrUnknownPipeline, kernel.Key())
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		idx, declared := kernel.BindGroupFromVarName(0, b.Name)
		if !declared {
			r.mu.Unlock()
			return 0, fmt.Errorf("%w: %q in %q", ErrUnboundVariable, b.Name, kernel.Key())
		}
		res, live := r.resources[b.Resource]
		if !live {
			r.mu.Unlock()
			return 0, fmt.Errorf("%w: %d bound to %q", ErrUnknownResource, b.Resource, b.Name)
		}
		entries = append(entries, bindGroupEntry(uint32(idx), res))
	}
	r.mu.Unlock()

	provider := bind_group_provider.NewBindGroupProvider(kernel.Key())
	if err := r.backend.InitBindGroup(provider, p.BindGroupLayout(0), entries); err != nil {
		return 0, fmt.Errorf("failed to create bindings for %q: %w", kernel.Key(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	h := cascade.BindingsHandle(r.allocHandle())
	r.bindings[h] = provider
	return h, nil
}

func (r *renderer) ReleaseBindings(h cascade.BindingsHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.bindings[h]; ok {
		provider.Release()
		delete(r.bindings, h)
	}
}

func (r *renderer) BeginCompute() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) Dispatch(kernel cascade.Kernel, bindings cascade.BindingsHandle, groups [3]uint32) {
	r.mu.Lock()
	p, okPipeline := r.pipelineCache[kernel.Key()]
	provider, okBindings := r.bindings[bindings]
	r.mu.Unlock()

	if !okPipeline || !okBindings {
		r.logger.Warn("renderer: dispatch dropped",
			slog.String("kernel", kernel.Key()), slog.Bool("pipeline", okPipeline), slog.Bool("bindings", okBindings))
		return
	}
	if err := r.backend.DispatchCompute(p, provider, groups); err != nil {
		r.logger.Warn("renderer: dispatch failed", slog.String("kernel", kernel.Key()), slog.Any("error", err))
	}
}

func (r *renderer) EndCompute() {
	r.backend.EndComputeFrame()
}

// Composite draws litScene onto the surface. The composite bind group is rebuilt only when
// the lit scene handle changes.
func (r *renderer) Composite(litScene cascade.ResourceHandle) error {
	r.mu.Lock()
	p, ok := r.pipelineCache[r.compositeKey]
	entry, live := r.resources[litScene]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no composite pipeline", ErrUnknownPipeline)
	}
	if !live || entry.texelSize == 0 {
		return fmt.Errorf("%w: lit scene %d", ErrUnknownResource, litScene)
	}

	if err := r.bindComposite(p, litScene, entry); err != nil {
		return err
	}

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	if err := r.backend.Draw(p, 3, []bind_group_provider.BindGroupProvider{r.compositeProvider}); err != nil {
		// the pass still has to be closed so the surface can be released
		_ = r.backend.EndFrame()
		r.backend.Present()
		return err
	}
	if err := r.backend.EndFrame(); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) bindComposite(p pipeline.Pipeline, litScene cascade.ResourceHandle, entry *resourceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.compositeProvider != nil && r.compositeFor == litScene {
		return nil
	}
	r.releaseComposite()

	fragment := p.Shader(shader.ShaderTypeFragment)
	texIdx, okTex := fragment.BindGroupFromVarName(0, CompositeTextureVar)
	sampIdx, okSamp := fragment.BindGroupFromVarName(0, CompositeSamplerVar)
	if !okTex || !okSamp {
		return fmt.Errorf("%w: composite shader must declare %q and %q", ErrUnboundVariable, CompositeTextureVar, CompositeSamplerVar)
	}

	provider := bind_group_provider.NewBindGroupProvider("Composite")
	if err := r.backend.InitSampler(provider, sampIdx, common.SamplerStagingData{}); err != nil {
		provider.Release()
		return fmt.Errorf("failed to create composite sampler: %w", err)
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: uint32(texIdx), TextureView: entry.provider.TextureView(0)},
		{Binding: uint32(sampIdx), Sampler: provider.Sampler(sampIdx)},
	}
	if err := r.backend.InitBindGroup(provider, p.BindGroupLayout(0), entries); err != nil {
		provider.Release()
		return fmt.Errorf("failed to create composite bind group: %w", err)
	}
	r.compositeProvider = provider
	r.compositeFor = litScene
	return nil
}

// releaseComposite drops the cached composite bind group. Callers hold r.mu.
func (r *renderer) releaseComposite() {
	if r.compositeProvider != nil {
		r.compositeProvider.Release()
		r.compositeProvider = nil
	}
	r.compositeFor = 0
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.releaseComposite()
	for h, provider := range r.bindings {
		provider.Release()
		delete(r.bindings, h)
	}
	for h, entry := range r.resources {
		entry.provider.Release()
		delete(r.resources, h)
	}
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
}

// radianceBufferSize is the byte size of a radiance buffer holding one vec4<f32> per cell.
func radianceBufferSize(extent [3]uint32) uint64 {
	return uint64(extent[0]) * uint64(extent[1]) * uint64(max(extent[2], 1)) * cascade.RadianceCellBytes
}

// bufferUsage maps a buffer resource kind to its wgpu usage flags.
func bufferUsage(kind cascade.ResourceKind) wgpu.BufferUsage {
	switch kind {
	case cascade.ResourceKindUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
}

// texelSize returns the byte size of one texel of the formats cascade images use.
func texelSize(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// bindGroupEntry binds a resource's buffer or texture view at binding.
func bindGroupEntry(binding uint32, entry *resourceEntry) wgpu.BindGroupEntry {
	if entry.texelSize == 0 {
		return wgpu.BindGroupEntry{
			Binding: binding,
			Buffer:  entry.provider.Buffer(0),
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}
	return wgpu.BindGroupEntry{
		Binding:     binding,
		TextureView: entry.provider.TextureView(0),
	}
}
