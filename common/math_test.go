package common_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func assertVecNear(t *testing.T, want, got []float32) {
	t.Helper()
	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	half := math32.Sqrt(0.5)
	tests := []struct {
		name string
		t    [3]float32
		r    [4]float32
		s    [3]float32
	}{
		{"identity", [3]float32{}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1}},
		{"translate", [3]float32{1, -2, 3}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1}},
		{"yaw 90", [3]float32{0, 0, 0}, [4]float32{0, half, 0, half}, [3]float32{1, 1, 1}},
		{"roll 180 scaled", [3]float32{5, 0, 0}, [4]float32{0, 0, 1, 0}, [3]float32{2, 3, 4}},
		{"pitch 90", [3]float32{0, 1, 0}, [4]float32{half, 0, 0, half}, [3]float32{0.5, 0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, r, s := common.DecomposeMatrix(common.ComposeTRS(tt.t, tt.r, tt.s))
			assertVecNear(t, tt.t[:], tr[:])
			assertVecNear(t, tt.s[:], s[:])

			// q and -q are the same rotation
			if r[3]*tt.r[3]+r[0]*tt.r[0]+r[1]*tt.r[1]+r[2]*tt.r[2] < 0 {
				r = [4]float32{-r[0], -r[1], -r[2], -r[3]}
			}
			assertVecNear(t, tt.r[:], r[:])
		})
	}
}

func TestDecomposeNegativeScale(t *testing.T) {
	m := common.ComposeTRS([3]float32{}, [4]float32{0, 0, 0, 1}, [3]float32{-1, 1, 1})
	_, _, s := common.DecomposeMatrix(m)
	assertVecNear(t, []float32{-1, 1, 1}, s[:])
}

func TestMul4(t *testing.T) {
	a := common.ComposeTRS([3]float32{1, 2, 3}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})
	b := common.ComposeTRS([3]float32{}, [4]float32{0, 0, 0, 1}, [3]float32{2, 2, 2})

	assert.Equal(t, a, common.Mul4(common.IdentityMat4(), a))
	assert.Equal(t, a, common.Mul4(a, common.IdentityMat4()))

	ab := common.Mul4(a, b)
	assert.Equal(t, float32(2), ab[0])
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{ab[12], ab[13], ab[14]})

	ba := common.Mul4(b, a)
	assert.Equal(t, [3]float32{2, 4, 6}, [3]float32{ba[12], ba[13], ba[14]})
}

func TestNormalizeQuat(t *testing.T) {
	assert.Equal(t, [4]float32{0, 0, 0, 1}, common.NormalizeQuat([4]float32{}))
	assertVecNear(t, []float32{0, 0.6, 0, 0.8}, func() []float32 {
		q := common.NormalizeQuat([4]float32{0, 3, 0, 4})
		return q[:]
	}())
}

func TestSlerp(t *testing.T) {
	half := math32.Sqrt(0.5)
	a := [4]float32{0, 0, 0, 1}
	b := [4]float32{0, 0, 1, 0}

	mid := common.Slerp(a, b, 0.5)
	assertVecNear(t, []float32{0, 0, half, half}, mid[:])

	end := common.Slerp(a, b, 1)
	assertVecNear(t, b[:], end[:])

	// the shortest arc flips a negated target
	neg := common.Slerp(a, [4]float32{0, 0, -1, 0}, 0.5)
	assertVecNear(t, []float32{0, 0, half, half}, neg[:])
}

func TestLerp3(t *testing.T) {
	assert.Equal(t, [3]float32{1, 2, 3}, common.Lerp3([3]float32{0, 0, 0}, [3]float32{2, 4, 6}, 0.5))
}

func TestIsIdentity(t *testing.T) {
	assert.True(t, common.IsIdentity(common.IdentityMat4()))
	m := common.IdentityMat4()
	m[12] = 1
	assert.False(t, common.IsIdentity(m))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, common.Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", common.Coalesce("", ""))
}

func TestTextureSlotColourSpace(t *testing.T) {
	assert.True(t, common.SlotDiffuse.SRGB())
	assert.True(t, common.SlotEmissive.SRGB())
	assert.False(t, common.SlotNormal.SRGB())
	assert.False(t, common.SlotMetallicRoughness.SRGB())
	assert.False(t, common.SlotOcclusion.SRGB())
}

func TestPixelFormatChannels(t *testing.T) {
	assert.Equal(t, 0, common.PixelFormatUnknown.Channels())
	assert.Equal(t, 1, common.PixelFormatR8.Channels())
	assert.Equal(t, 2, common.PixelFormatRG8.Channels())
	assert.Equal(t, 3, common.PixelFormatRGB8.Channels())
	assert.Equal(t, 4, common.PixelFormatRGBA8.Channels())
}
