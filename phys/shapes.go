package phys

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

const (
	SphereLatitudeSegments  = 16
	SphereLongitudeSegments = 16
	CapsuleSegments         = 16
	CapsuleRings            = 8

	// Planar projection tiling, one texture repeat per 50 units.
	UVScale = 0.02
)

// Geometry is an indexed triangle list with per vertex normal and uv.
type Geometry struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

func (g *Geometry) VertexCount() int   { return len(g.Positions) }
func (g *Geometry) TriangleCount() int { return len(g.Indices) / 3 }

func (g *Geometry) base() uint32 { return uint32(len(g.Positions)) }

func (g *Geometry) addVertex(pos, normal mgl32.Vec3, uv mgl32.Vec2) {
	g.Positions = append(g.Positions, pos)
	g.Normals = append(g.Normals, normal)
	g.UVs = append(g.UVs, uv)
}

// grid emits two triangles for every cell of rows x cols quad grid with
// cols+1 vertices per row starting at base.
func (g *Geometry) grid(base uint32, rows, cols int) {
	stride := uint32(cols + 1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			first := base + uint32(r)*stride + uint32(c)
			second := first + stride
			g.Indices = append(g.Indices,
				first, second, first+1,
				second, second+1, first+1)
		}
	}
}

func sincos(a float64) (float32, float32) {
	s, c := math.Sincos(a)
	return float32(s), float32(c)
}

// Sphere appends latitude/longitude sphere.
func (g *Geometry) Sphere(center mgl32.Vec3, radius float32) {
	base := g.base()
	for lat := 0; lat <= SphereLatitudeSegments; lat++ {
		sinTheta, cosTheta := sincos(float64(lat) * math.Pi / SphereLatitudeSegments)
		for lon := 0; lon <= SphereLongitudeSegments; lon++ {
			sinPhi, cosPhi := sincos(float64(lon) * 2 * math.Pi / SphereLongitudeSegments)

			normal := mgl32.Vec3{cosPhi * sinTheta, cosTheta, sinPhi * sinTheta}
			uv := mgl32.Vec2{
				float32(lon) / SphereLongitudeSegments,
				float32(lat) / SphereLatitudeSegments,
			}
			g.addVertex(center.Add(normal.Mul(radius)), normal, uv)
		}
	}
	g.grid(base, SphereLatitudeSegments, SphereLongitudeSegments)
}

// Capsule appends cylinder between start and end plus full sphere at both ends.
func (g *Geometry) Capsule(start, end mgl32.Vec3, radius float32) {
	axis := end.Sub(start)
	length := axis.Len()
	direction := mgl32.Vec3{0, 0, 1}
	if length > 0 {
		direction = axis.Mul(1 / length)
	}
	center := start.Add(end).Mul(0.5)

	var right mgl32.Vec3
	if abs32(direction.Y()) < 0.9 {
		right = direction.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	} else {
		right = direction.Cross(mgl32.Vec3{1, 0, 0}).Normalize()
	}
	up := right.Cross(direction)

	base := g.base()
	for ring := 0; ring <= CapsuleRings; ring++ {
		t := float32(ring) / CapsuleRings
		pos := center.Add(direction.Mul((t - 0.5) * length))

		for seg := 0; seg <= CapsuleSegments; seg++ {
			s, c := sincos(float64(seg) * 2 * math.Pi / CapsuleSegments)
			normal := right.Mul(c * radius).Add(up.Mul(s * radius)).Normalize()
			g.addVertex(pos.Add(normal.Mul(radius)), normal, mgl32.Vec2{float32(seg) / CapsuleSegments, t})
		}
	}
	g.grid(base, CapsuleRings, CapsuleSegments)

	g.Sphere(start, radius)
	g.Sphere(end, radius)
}

// Triangle appends one flat shaded triangle with planar uvs.
func (g *Geometry) Triangle(a, b, c mgl32.Vec3) {
	normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
	base := g.base()
	for _, p := range [3]mgl32.Vec3{a, b, c} {
		g.addVertex(p, normal, PlanarUV(p, normal))
	}
	g.Indices = append(g.Indices, base, base+1, base+2)
}

// Hull fans every face from its start edge origin while walking Next links.
func (g *Geometry) Hull(h *resource.Hull, pose mgl32.Mat4) {
	positions := transformAll(h.Vertices, pose)
	for _, start := range h.Faces {
		// walk is bounded by edge count so a corrupted loop can not spin forever
		edge := h.Edges[start].Next
		for steps := 0; edge != start && steps < len(h.Edges); steps++ {
			next := h.Edges[edge].Next
			if next == start {
				break
			}
			g.Triangle(
				positions[h.Edges[start].Origin],
				positions[h.Edges[edge].Origin],
				positions[h.Edges[next].Origin])
			edge = next
		}
	}
}

func (g *Geometry) TriangleMesh(m *resource.TriangleMesh, pose mgl32.Mat4) {
	positions := transformAll(m.Vertices, pose)
	for _, tri := range m.Triangles {
		g.Triangle(positions[tri[0]], positions[tri[1]], positions[tri[2]])
	}
}

// Append copies other into g, rebasing its indices.
func (g *Geometry) Append(other *Geometry) {
	base := g.base()
	g.Positions = append(g.Positions, other.Positions...)
	g.Normals = append(g.Normals, other.Normals...)
	g.UVs = append(g.UVs, other.UVs...)
	for _, i := range other.Indices {
		g.Indices = append(g.Indices, base+i)
	}
}

// PlanarUV projects position on the plane facing the dominant normal axis.
// Vertical planes use -Y as V so textures stay upright on walls.
func PlanarUV(position, normal mgl32.Vec3) mgl32.Vec2 {
	switch utils.DominantAxis(normal) {
	case 1:
		return mgl32.Vec2{position.X() * UVScale, position.Z() * UVScale}
	case 0:
		return mgl32.Vec2{position.Z() * UVScale, -position.Y() * UVScale}
	default:
		return mgl32.Vec2{position.X() * UVScale, -position.Y() * UVScale}
	}
}

func transformAll(in []mgl32.Vec3, pose mgl32.Mat4) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		out[i] = mgl32.TransformCoordinate(v, pose)
	}
	return out
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
