package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchGroups(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		work  [3]uint32
		group [3]uint32
		want  [3]uint32
	}{
		{"exact fit", [3]uint32{1920, 1152, 1}, [3]uint32{8, 8, 1}, [3]uint32{240, 144, 1}},
		{"round up", [3]uint32{960, 540, 1}, [3]uint32{8, 8, 1}, [3]uint32{120, 68, 1}},
		{"single item", [3]uint32{1, 1, 1}, [3]uint32{8, 8, 1}, [3]uint32{1, 1, 1}},
		{"volume", [3]uint32{240, 135, 64}, [3]uint32{4, 4, 4}, [3]uint32{60, 34, 16}},
		{"empty axis", [3]uint32{0, 4, 1}, [3]uint32{8, 8, 1}, [3]uint32{0, 1, 1}},
		{"zero group size", [3]uint32{5, 6, 7}, [3]uint32{0, 0, 0}, [3]uint32{5, 6, 7}},
		{"no overflow", [3]uint32{^uint32(0), 1, 1}, [3]uint32{256, 1, 1}, [3]uint32{1 << 24, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DispatchGroups(tt.work, tt.group))
		})
	}
}

func TestDispatchGroups_Covers(t *testing.T) {
	t.Parallel()

	for work := uint32(1); work < 200; work += 7 {
		for size := uint32(1); size <= 16; size++ {
			g := DispatchGroups([3]uint32{work, work, work}, [3]uint32{size, size, size})
			for axis := range 3 {
				assert.GreaterOrEqual(t, uint64(g[axis])*uint64(size), uint64(work))
				assert.Less(t, uint64(g[axis]-1)*uint64(size), uint64(work))
			}
		}
	}
}
