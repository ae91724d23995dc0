// Package kernels embeds the WGSL programs the radiance cascade runs and turns them into
// shaders and pipelines ready for the renderer.
package kernels

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/shader"
)

//go:embed assets
var assets embed.FS

// CompositeKey is the pipeline key of the full-screen composite pipeline.
const CompositeKey = "composite"

// ErrMissingParams is returned when a kernel does not declare the LayerParams uniforms its
// phase reads through a group annotation.
var ErrMissingParams = errors.New("kernel does not declare layer params")

// phase is one of the three compute programs of a variant.
type phase struct {
	name   string
	file   string
	params []string
}

var phases = []phase{
	{name: "creation", file: "creation.wgsl", params: []string{cascade.BindingParams}},
	{name: "merging", file: "merging.wgsl", params: []string{cascade.BindingFarParams, cascade.BindingNearParams}},
	{name: "finalization", file: "finalization.wgsl", params: []string{cascade.BindingParams}},
}

// Set is the compiled kernel set of one variant plus the compute pipelines that run it.
type Set struct {
	// Variant is the storage variant the kernels were written for.
	Variant cascade.Variant
	// Kernels is what a Cascade is constructed with.
	Kernels cascade.KernelSet
	// Pipelines are the compute pipelines to register before the cascade configures, one per
	// kernel, keyed by the kernel's Key.
	Pipelines []pipeline.Pipeline
}

// Key returns the pipeline and shader key of a variant's phase, e.g. "packed-merging".
//
// Parameters:
//   - variant: the storage variant
//   - phaseName: creation, merging or finalization
//
// Returns:
//   - string: the key
func Key(variant cascade.Variant, phaseName string) string {
	return variant.String() + "-" + phaseName
}

// Load parses the three kernels of variant concurrently on a worker pool, checks each declares
// the LayerParams uniforms of its phase and, if enabled, compiles them offline to SPIR-V.
//
// Parameters:
//   - variant: the storage variant to load
//   - options: variadic LoadOption functions
//
// Returns:
//   - *Set: the kernels and their pipelines
//   - error: every phase's error joined, nil if all three loaded
func Load(variant cascade.Variant, options ...LoadOption) (*Set, error) {
	cfg := &loadConfig{workers: len(phases)}
	for _, opt := range options {
		opt(cfg)
	}

	sources := make([]string, len(phases))
	for i, p := range phases {
		src, err := source(variant, p.file)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}

	shaders := make([]shader.Shader, len(phases))
	errs := make([]error, len(phases))

	pool := worker.NewDynamicWorkerPool(cfg.workers, 256, 1*time.Second)
	var wg sync.WaitGroup
	for i, p := range phases {
		wg.Add(1)
		idx, ph := i, p
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				s, err := compile(Key(variant, ph.name), sources[idx], ph.params, cfg.validate)
				shaders[idx], errs[idx] = s, err
				return s, err
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to load %s kernels: %w", variant, err)
	}

	set := &Set{
		Variant: variant,
		Kernels: cascade.KernelSet{
			Creation:     shaders[0],
			Merging:      shaders[1],
			Finalization: shaders[2],
		},
		Pipelines: make([]pipeline.Pipeline, 0, len(shaders)),
	}
	for _, s := range shaders {
		set.Pipelines = append(set.Pipelines,
			pipeline.NewPipeline(s.Key(), pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s)))
	}
	return set, nil
}

// Composite builds the full-screen render pipeline that draws the lit scene to the surface.
//
// Returns:
//   - pipeline.Pipeline: the composite pipeline, not yet registered
//   - error: an error if the embedded source fails to parse
func Composite() (pipeline.Pipeline, error) {
	src, err := assets.ReadFile("assets/composite/composite.wgsl")
	if err != nil {
		return nil, err
	}
	vs, err := shader.NewShader(CompositeKey+"-vs", shader.ShaderTypeVertex, string(src))
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(CompositeKey+"-fs", shader.ShaderTypeFragment, string(src))
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(CompositeKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
	), nil
}

func source(variant cascade.Variant, file string) (string, error) {
	path := fmt.Sprintf("assets/%s/%s", variant, file)
	b, err := assets.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("no %s kernel %s: %w", variant, file, err)
	}
	return string(b), nil
}

// compile parses one kernel and checks its declarations.
func compile(key, src string, params []string, validate bool) (shader.Shader, error) {
	s, err := shader.NewShader(key, shader.ShaderTypeCompute, src)
	if err != nil {
		return nil, err
	}
	if err := checkParams(s, params); err != nil {
		return nil, err
	}
	if validate {
		if _, err := shader.Validate(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// checkParams verifies every name in params is declared through a layer_params group annotation.
func checkParams(s shader.Shader, params []string) error {
	declared := make([]string, 0, len(params))
	for _, decl := range s.Declarations() {
		if decl.Type != shader.AnnotationTypeBindingGroup || len(decl.Args) != 3 {
			continue
		}
		if decl.Args[2] == shader.AnnotationArgLayerParams {
			declared = append(declared, string(decl.Args[1]))
		}
	}
	for _, name := range params {
		if !slices.Contains(declared, name) {
			return fmt.Errorf("%w: %s does not declare %q", ErrMissingParams, s.Key(), name)
		}
	}
	return nil
}
