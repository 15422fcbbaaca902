package vbib

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UnitLengthThreshold is the largest accepted deviation of a normal from unit length.
const UnitLengthThreshold = 0.00674

func slt(v float32) float32 {
	if v < 0 {
		return 1
	}
	return 0
}

func decompressNormal(x, y float32) mgl32.Vec3 {
	x -= 128
	y -= 128

	zSignBit := slt(x)
	tSignBit := slt(y)
	zSign := -(2*zSignBit - 1)
	tSign := -(2*tSignBit - 1)

	// 0..127, then -64..63
	x = x*zSign - zSignBit
	y = y*tSign - tSignBit
	x -= 64
	y -= 64

	xSignBit := slt(x)
	ySignBit := slt(y)
	xSign := -(2*xSignBit - 1)
	ySign := -(2*ySignBit - 1)

	x = (x*xSign - xSignBit) / 63
	y = (y*ySign - ySignBit) / 63
	z := 1 - x - y

	oolen := 1 / float32(math.Sqrt(float64(x*x+y*y+z*z)))
	return mgl32.Vec3{x * oolen * xSign, y * oolen * ySign, z * oolen * zSign}
}

func DecompressNormal(x, y byte) mgl32.Vec3 {
	return decompressNormal(float32(x), float32(y))
}

// DecompressTangent decodes like a normal, W is bitangent sign taken from y.
func DecompressTangent(x, y byte) mgl32.Vec4 {
	n := decompressNormal(float32(x), float32(y))
	w := float32(1)
	if y < 128 {
		w = -1
	}
	return n.Vec4(w)
}

func DecompressNormalTangent(packed [4]byte) (mgl32.Vec3, mgl32.Vec4) {
	return DecompressNormal(packed[0], packed[1]), DecompressTangent(packed[2], packed[3])
}

// DecompressNormalTangentV2 decodes 32 bit frames: sign:1 angle:11 x:10 y:10.
func DecompressNormalTangentV2(packed uint32) (mgl32.Vec3, mgl32.Vec4) {
	signBit := packed & 1
	tBits := float32((packed >> 1) & 0x7ff)
	xBits := float32((packed >> 12) & 0x3ff)
	yBits := float32((packed >> 22) & 0x3ff)

	x := xBits/1023*2 - 1
	y := yBits/1023*2 - 1
	z := 1 - abs(x) - abs(y)
	n := mgl32.Vec3{x, y, z}

	// Octahedral fold: negative z was spread over x and y
	comp := mgl32.Clamp(-z, 0, 1)
	for i := 0; i < 2; i++ {
		if n[i] >= 0 {
			n[i] -= comp
		} else {
			n[i] += comp
		}
	}
	normal := n.Normalize()

	tangentSign := float32(1)
	if normal[2] < 0 {
		tangentSign = -1
	}
	rcpTangentZ := 1 / (tangentSign + normal[2])
	unaligned := mgl32.Vec3{
		-tangentSign*(normal[0]*normal[0])*rcpTangentZ + 1,
		-tangentSign * ((normal[0] * normal[1]) * rcpTangentZ),
		-tangentSign * normal[0],
	}

	angle := float64(tBits / 2047 * 2 * math.Pi)
	tangent := unaligned.Mul(float32(math.Cos(angle))).Add(normal.Cross(unaligned).Mul(float32(math.Sin(angle))))

	w := float32(1)
	if signBit == 0 {
		w = -1
	}
	return normal, tangent.Vec4(w)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// SwapYZ exchanges Y and Z components. Exported geometry keeps engine axes and
// relies on the root node transform instead.
func SwapYZ(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[2], v[1]}
}

// FixZeroLengthNormals replaces vectors that are not unit length with -Z.
func FixZeroLengthNormals(normals [][3]float32) int {
	fixed := 0
	for i, n := range normals {
		if abs(mgl32.Vec3(n).Len()-1) > UnitLengthThreshold {
			normals[i] = [3]float32{0, 0, -1}
			fixed++
		}
	}
	return fixed
}

// FixZeroLengthTangents is FixZeroLengthNormals for xyz keeping handedness in W.
func FixZeroLengthTangents(tangents [][4]float32) int {
	fixed := 0
	for i, t := range tangents {
		if abs(mgl32.Vec3{t[0], t[1], t[2]}.Len()-1) > UnitLengthThreshold {
			tangents[i] = [4]float32{0, 0, -1, t[3]}
			fixed++
		}
	}
	return fixed
}
