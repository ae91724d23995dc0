package cascade

// Binding names the cascade kernels must declare in bind group 0.
const (
	BindingEmitterScene    = "emitterScene"
	BindingRadianceMap     = "radianceMap"
	BindingParams          = "params"
	BindingFarRadianceMap  = "farRadianceMap"
	BindingNearRadianceMap = "nearRadianceMap"
	BindingFarParams       = "farParams"
	BindingNearParams      = "nearParams"
	BindingLitScene        = "litScene"
)

var (
	// CreationBindings are the variables the Creation kernel binds per layer.
	CreationBindings = []string{BindingEmitterScene, BindingRadianceMap, BindingParams}
	// MergingBindings are the variables the Merging kernel binds per far/near pair.
	MergingBindings = []string{BindingFarRadianceMap, BindingNearRadianceMap, BindingFarParams, BindingNearParams}
	// FinalizationBindings are the variables the Finalization kernel binds once.
	FinalizationBindings = []string{BindingRadianceMap, BindingLitScene, BindingParams}
)

// KernelSet holds the three compute programs of one layout variant.
type KernelSet struct {
	Creation     Kernel
	Merging      Kernel
	Finalization Kernel
}
