package phys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/resource"
)

var ErrUnknownShape = errors.New("unknown shape kind")

type GroupKey struct {
	CollisionAttribute int
	SurfaceProperty    int
}

// Group is all geometry sharing one collision attribute and surface property.
type Group struct {
	GroupKey
	Geometry
}

type Builder struct {
	groups map[GroupKey]*Group
}

func NewBuilder() *Builder {
	return &Builder{groups: make(map[GroupKey]*Group)}
}

func (b *Builder) group(key GroupKey) *Group {
	g, ok := b.groups[key]
	if !ok {
		g = &Group{GroupKey: key}
		b.groups[key] = g
	}
	return g
}

// Add triangulates shape placed by pose into its group.
func (b *Builder) Add(shape *resource.ShapePrimitive, pose mgl32.Mat4) error {
	g := b.group(GroupKey{shape.CollisionAttributeIndex, shape.SurfacePropertyIndex})

	switch shape.Kind {
	case resource.ShapeSphere:
		g.Sphere(mgl32.TransformCoordinate(shape.Center, pose), shape.Radius)
	case resource.ShapeCapsule:
		g.Capsule(
			mgl32.TransformCoordinate(shape.Capsule[0], pose),
			mgl32.TransformCoordinate(shape.Capsule[1], pose),
			shape.Radius)
	case resource.ShapeHull:
		if shape.Hull == nil {
			return errors.Errorf("hull shape without hull data")
		}
		g.Hull(shape.Hull, pose)
	case resource.ShapeMesh:
		if shape.Mesh == nil {
			return errors.Errorf("mesh shape without mesh data")
		}
		g.TriangleMesh(shape.Mesh, pose)
	default:
		return errors.Wrapf(ErrUnknownShape, "%d", shape.Kind)
	}
	return nil
}

// Groups returns non empty groups ordered by collision attribute, then surface property.
func (b *Builder) Groups() []*Group {
	result := make([]*Group, 0, len(b.groups))
	for _, g := range b.groups {
		if g.VertexCount() != 0 {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CollisionAttribute != result[j].CollisionAttribute {
			return result[i].CollisionAttribute < result[j].CollisionAttribute
		}
		return result[i].SurfaceProperty < result[j].SurfaceProperty
	})
	return result
}

// Build triangulates every shape of every part of agg.
func Build(agg *resource.PhysAggregate) ([]*Group, error) {
	b := NewBuilder()
	for p := range agg.Parts {
		pose := agg.PartPose(p)
		shape := &agg.Parts[p].Shape
		for _, list := range [][]resource.ShapePrimitive{shape.Spheres, shape.Capsules, shape.Hulls, shape.Meshes} {
			for i := range list {
				if err := b.Add(&list[i], pose); err != nil {
					return nil, errors.Wrapf(err, "Failed to build part %d %v %d", p, list[i].Kind, i)
				}
			}
		}
	}
	return b.Groups(), nil
}

func (g *Group) Attribute(agg *resource.PhysAggregate) *resource.CollisionAttribute {
	return &agg.CollisionAttributes[g.CollisionAttribute]
}

func (g *Group) Surface(agg *resource.PhysAggregate) string {
	return agg.SurfaceProperties[g.SurfaceProperty]
}

// MeshName names group after its collision tags or group, suffixed by surface.
func MeshName(agg *resource.PhysAggregate, g *Group) string {
	attr := g.Attribute(agg)
	name := "physics_group"
	if attr.CollisionGroup != "" && !strings.EqualFold(attr.CollisionGroup, "default") {
		name = "physics_" + attr.CollisionGroup
	}
	if tags := attr.Tags(); len(tags) != 0 {
		name = "physics_" + strings.Join(tags, "_")
	}

	if surface := g.Surface(agg); surface != "" && !strings.EqualFold(surface, "default") {
		return fmt.Sprintf("%s_%s", name, surface)
	}
	return name
}

// ToolTextureName maps interact tags to tool texture short name, "nodraw" when none.
func ToolTextureName(tags []string) string {
	if len(tags) == 0 {
		return "nodraw"
	}
	switch tag := tags[0]; tag {
	case "playerclip", "npcclip", "blocksound":
		return tag
	case "sky":
		return "skybox"
	case "csgo_grenadeclip":
		return "grenadeclip"
	case "ladder":
		return "invisibleladder"
	}
	return "nodraw"
}

// ToolMaterialPath is the material drawn on collision with given tool texture.
func ToolMaterialPath(toolTexture string) string {
	return fmt.Sprintf("materials/tools/tools%s.vmat", toolTexture)
}

// FileName returns physics output file name next to model output path.
func FileName(modelPath string) string {
	ext := ""
	if i := strings.LastIndexByte(modelPath, '.'); i > strings.LastIndexAny(modelPath, `/\`) {
		ext = modelPath[i:]
		modelPath = modelPath[:i]
	}
	return modelPath + "_physics" + ext
}
