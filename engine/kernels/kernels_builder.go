package kernels

// loadConfig collects the LoadOption settings.
type loadConfig struct {
	workers  int
	validate bool
}

// LoadOption is a functional option applied to Load.
type LoadOption func(*loadConfig)

// WithValidation compiles every kernel offline to SPIR-V while loading, so WGSL errors surface
// as configuration errors instead of device errors.
//
// Parameters:
//   - validate: true to compile each kernel
//
// Returns:
//   - LoadOption: a function that applies the validation option
func WithValidation(validate bool) LoadOption {
	return func(c *loadConfig) {
		c.validate = validate
	}
}

// WithWorkers sets the number of workers kernels are parsed on. Values below one are ignored.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - LoadOption: a function that applies the worker count option
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}
