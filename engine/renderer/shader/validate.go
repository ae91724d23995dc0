package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrInvalidSPIRV is returned when compilation succeeds but the output is not a SPIR-V module.
var ErrInvalidSPIRV = errors.New("compiled output is not SPIR-V")

// Validate compiles the shader's pre-processed source offline to SPIR-V, catching WGSL errors
// before the source reaches a device.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - []byte: the SPIR-V words in little-endian byte order
//   - error: the compiler's error, or ErrInvalidSPIRV
func Validate(s Shader) ([]byte, error) {
	spirv, err := naga.Compile(s.Source())
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", s.Key(), err)
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return nil, fmt.Errorf("shader %s: %w", s.Key(), ErrInvalidSPIRV)
	}
	return spirv, nil
}
