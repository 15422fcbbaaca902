package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Engine units are inches, glTF uses meters.
const InchesToMeters = 0.0254

func IsFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// QuatFromYawPitchRoll rotates by roll around Z, then pitch around X, then yaw around Y.
func QuatFromYawPitchRoll(yaw, pitch, roll float32) mgl32.Quat {
	sr, cr := math.Sincos(float64(roll) * 0.5)
	sp, cp := math.Sincos(float64(pitch) * 0.5)
	sy, cy := math.Sincos(float64(yaw) * 0.5)

	return mgl32.Quat{
		W: float32(cy*cp*cr + sy*sp*sr),
		V: mgl32.Vec3{
			float32(cy*sp*cr + sy*cp*sr),
			float32(sy*cp*cr - cy*sp*sr),
			float32(cy*cp*sr - sy*sp*cr),
		},
	}
}

// SourceToGLTF converts Z-up inches into Y-up meters.
func SourceToGLTF() mgl32.Mat4 {
	rot := QuatFromYawPitchRoll(0, -math.Pi/2, -math.Pi/2).Mat4()
	return rot.Mul4(mgl32.Scale3D(InchesToMeters, InchesToMeters, InchesToMeters))
}

// DominantAxis returns index of the component with the largest magnitude.
// Y wins only when strictly largest, X beats Z only when strictly larger.
func DominantAxis(v mgl32.Vec3) int {
	ax, ay, az := abs32(v[0]), abs32(v[1]), abs32(v[2])
	if ay > ax && ay > az {
		return 1
	}
	if ax > az {
		return 0
	}
	return 2
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// Mat4ToArray flattens column-major m for glTF nodes and accessors.
func Mat4ToArray(m mgl32.Mat4) [16]float32 {
	return [16]float32(m)
}
