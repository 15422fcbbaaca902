package resource

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeCapsule
	ShapeHull
	ShapeMesh
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeCapsule:
		return "capsule"
	case ShapeHull:
		return "hull"
	case ShapeMesh:
		return "mesh"
	}
	return "unknown"
}

type HalfEdge struct {
	Next   int
	Twin   int
	Origin int
	Face   int
}

type Hull struct {
	Vertices []mgl32.Vec3
	Edges    []HalfEdge

	// Start edge of every face
	Faces []int
}

type TriangleMesh struct {
	Vertices  []mgl32.Vec3
	Triangles [][3]int
}

// ShapePrimitive is one collision shape. Only fields matching Kind are set.
type ShapePrimitive struct {
	Kind                    ShapeKind
	CollisionAttributeIndex int
	SurfacePropertyIndex    int

	Center  mgl32.Vec3
	Radius  float32
	Capsule [2]mgl32.Vec3
	Hull    *Hull
	Mesh    *TriangleMesh
}

type PhysShape struct {
	Spheres  []ShapePrimitive
	Capsules []ShapePrimitive
	Hulls    []ShapePrimitive
	Meshes   []ShapePrimitive
}

type PhysPart struct {
	Shape PhysShape
}

type CollisionAttribute struct {
	CollisionGroup string
	InteractAs     []string
	PhysicsTags    []string
}

// Tags returns interact-as tags, falling back to physics tags.
func (ca *CollisionAttribute) Tags() []string {
	if len(ca.InteractAs) != 0 {
		return ca.InteractAs
	}
	return ca.PhysicsTags
}

type PhysAggregate struct {
	Parts               []PhysPart
	CollisionAttributes []CollisionAttribute
	SurfaceProperties   []string
	BindPose            []mgl32.Mat4
}

// PartPose returns bind pose of part, identity when absent.
func (pa *PhysAggregate) PartPose(part int) mgl32.Mat4 {
	if part < len(pa.BindPose) {
		return pa.BindPose[part]
	}
	return mgl32.Ident4()
}

func vec3List(r *kv.Record, key string) ([]mgl32.Vec3, error) {
	flat, err := r.Floats(key)
	if err != nil {
		return nil, err
	}
	if len(flat)%3 != 0 {
		return nil, errors.Errorf("%q has %d components", key, len(flat))
	}
	result := make([]mgl32.Vec3, len(flat)/3)
	for i := range result {
		result[i] = mgl32.Vec3{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return result, nil
}

func parseHull(r *kv.Record) (*Hull, error) {
	h := &Hull{}
	var err error
	if h.Vertices, err = vec3List(r, "m_vertexPositions"); err != nil {
		return nil, err
	}
	if h.Faces, err = intsOf(r, "m_faces"); err != nil {
		return nil, err
	}
	ers, err := r.Records("m_edges")
	if err != nil {
		return nil, err
	}
	h.Edges = make([]HalfEdge, len(ers))
	for i, er := range ers {
		h.Edges[i] = HalfEdge{
			Next:   int(er.IntOr("m_nNext", 0)),
			Twin:   int(er.IntOr("m_nTwin", 0)),
			Origin: int(er.IntOr("m_nOrigin", 0)),
			Face:   int(er.IntOr("m_nFace", 0)),
		}
		if e := h.Edges[i]; e.Next < 0 || e.Next >= len(ers) || e.Origin < 0 || e.Origin >= len(h.Vertices) {
			return nil, errors.Errorf("edge %d is out of range", i)
		}
	}
	for i, start := range h.Faces {
		if start < 0 || start >= len(h.Edges) {
			return nil, errors.Errorf("face %d starts at edge %d of %d", i, start, len(h.Edges))
		}
	}
	return h, nil
}

func parseTriangleMesh(r *kv.Record) (*TriangleMesh, error) {
	m := &TriangleMesh{}
	var err error
	if m.Vertices, err = vec3List(r, "m_vertices"); err != nil {
		return nil, err
	}
	indices, err := intsOf(r, "m_triangles")
	if err != nil {
		return nil, err
	}
	if len(indices)%3 != 0 {
		return nil, errors.Errorf("triangle list has %d indices", len(indices))
	}
	m.Triangles = make([][3]int, len(indices)/3)
	for i := range m.Triangles {
		for j := 0; j < 3; j++ {
			idx := indices[i*3+j]
			if idx < 0 || idx >= len(m.Vertices) {
				return nil, errors.Errorf("triangle %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
			m.Triangles[i][j] = idx
		}
	}
	return m, nil
}

func parseShapePrimitive(r *kv.Record, kind ShapeKind) (sp ShapePrimitive, err error) {
	sp.Kind = kind
	sp.CollisionAttributeIndex = int(r.IntOr("m_nCollisionAttributeIndex", 0))
	sp.SurfacePropertyIndex = int(r.IntOr("m_nSurfacePropertyIndex", 0))

	switch kind {
	case ShapeSphere:
		if sp.Center, err = r.Vec3("m_vCenter"); err != nil {
			return
		}
		sp.Radius, err = r.Float("m_flRadius")
	case ShapeCapsule:
		var flat []float32
		if flat, err = r.Floats("m_vCenter"); err != nil {
			return
		}
		if len(flat) != 6 {
			return sp, errors.Errorf("capsule has %d center components", len(flat))
		}
		sp.Capsule = [2]mgl32.Vec3{{flat[0], flat[1], flat[2]}, {flat[3], flat[4], flat[5]}}
		sp.Radius, err = r.Float("m_flRadius")
	case ShapeHull:
		var hr *kv.Record
		if hr, err = r.Record("m_Hull"); err != nil {
			return
		}
		sp.Hull, err = parseHull(hr)
	case ShapeMesh:
		var mr *kv.Record
		if mr, err = r.Record("m_Mesh"); err != nil {
			return
		}
		sp.Mesh, err = parseTriangleMesh(mr)
	}
	return
}

func parseShapeList(r *kv.Record, key string, kind ShapeKind) ([]ShapePrimitive, error) {
	if !r.Has(key) {
		return nil, nil
	}
	srs, err := r.Records(key)
	if err != nil {
		return nil, err
	}
	result := make([]ShapePrimitive, len(srs))
	for i, sr := range srs {
		if result[i], err = parseShapePrimitive(sr, kind); err != nil {
			return nil, errors.Wrapf(err, "%s %d", kind, i)
		}
	}
	return result, nil
}

func (ps *PhysShape) all() [][]ShapePrimitive {
	return [][]ShapePrimitive{ps.Spheres, ps.Capsules, ps.Hulls, ps.Meshes}
}

func ParsePhysAggregate(r *kv.Record) (*PhysAggregate, error) {
	pa := &PhysAggregate{}

	prs, err := r.Records("m_parts")
	if err != nil {
		return nil, err
	}
	pa.Parts = make([]PhysPart, len(prs))
	for i, pr := range prs {
		sr, err := pr.Record("m_rnShape")
		if err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		shape := &pa.Parts[i].Shape
		if shape.Spheres, err = parseShapeList(sr, "m_spheres", ShapeSphere); err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		if shape.Capsules, err = parseShapeList(sr, "m_capsules", ShapeCapsule); err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		if shape.Hulls, err = parseShapeList(sr, "m_hulls", ShapeHull); err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
		if shape.Meshes, err = parseShapeList(sr, "m_meshes", ShapeMesh); err != nil {
			return nil, errors.Wrapf(err, "part %d", i)
		}
	}

	if r.Has("m_collisionAttributes") {
		cars, err := r.Records("m_collisionAttributes")
		if err != nil {
			return nil, err
		}
		pa.CollisionAttributes = make([]CollisionAttribute, len(cars))
		for i, car := range cars {
			ca := &pa.CollisionAttributes[i]
			ca.CollisionGroup = car.StringOr("m_CollisionGroupString", "")
			if ca.InteractAs, err = stringsOf(car, "m_InteractAsStrings"); err != nil {
				return nil, errors.Wrapf(err, "collision attribute %d", i)
			}
			if ca.PhysicsTags, err = stringsOf(car, "m_PhysicsTagStrings"); err != nil {
				return nil, errors.Wrapf(err, "collision attribute %d", i)
			}
		}
	}
	if pa.SurfaceProperties, err = stringsOf(r, "m_surfacePropertyNames"); err != nil {
		return nil, err
	}

	if r.Has("m_bindPose") {
		poses, err := r.Array("m_bindPose")
		if err != nil {
			return nil, err
		}
		pa.BindPose = make([]mgl32.Mat4, len(poses))
		for i, pose := range poses {
			if pa.BindPose[i], err = kv.New().Set("pose", pose).Mat4("pose"); err != nil {
				return nil, errors.Wrapf(err, "bind pose %d", i)
			}
		}
	}

	pa.normalize()
	if err := pa.validate(); err != nil {
		return nil, err
	}
	return pa, nil
}

// Shapes may reference index 0 of empty name tables.
func (pa *PhysAggregate) normalize() {
	if len(pa.CollisionAttributes) == 0 {
		pa.CollisionAttributes = []CollisionAttribute{{}}
	}
	if len(pa.SurfaceProperties) == 0 {
		pa.SurfaceProperties = []string{""}
	}
}

func (pa *PhysAggregate) validate() error {
	for iPart := range pa.Parts {
		for _, list := range pa.Parts[iPart].Shape.all() {
			for i := range list {
				sp := &list[i]
				if sp.CollisionAttributeIndex < 0 || sp.CollisionAttributeIndex >= len(pa.CollisionAttributes) {
					return errors.Errorf("part %d %s %d: collision attribute %d of %d",
						iPart, sp.Kind, i, sp.CollisionAttributeIndex, len(pa.CollisionAttributes))
				}
				if sp.SurfacePropertyIndex < 0 || sp.SurfacePropertyIndex >= len(pa.SurfaceProperties) {
					return errors.Errorf("part %d %s %d: surface property %d of %d",
						iPart, sp.Kind, i, sp.SurfacePropertyIndex, len(pa.SurfaceProperties))
				}
			}
		}
	}
	return nil
}
