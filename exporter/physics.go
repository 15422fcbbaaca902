package exporter

import (
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/material"
	"github.com/mogaika/s2gltf/phys"
	"github.com/mogaika/s2gltf/resource"
)

var physicsColor = [4]float32{0.5, 0.5, 1, 1}

// exportPhysics writes one mesh node per collision group under parent.
func (r *run) exportPhysics(agg *resource.PhysAggregate, parent uint32) error {
	groups, err := phys.Build(agg)
	if err != nil {
		return err
	}

	for i, g := range groups {
		if err := cancelled(r.ctx); err != nil {
			return err
		}
		if g.TriangleCount() == 0 {
			continue
		}
		name := phys.MeshName(agg, g)
		r.progress(float32(i)/float32(len(groups)), "Physics %s", name)

		attributes := gltf.Attribute{
			"POSITION":   modeler.WritePosition(r.doc, vec3s(g.Positions)),
			"NORMAL":     modeler.WriteNormal(r.doc, vec3s(g.Normals)),
			"TEXCOORD_0": modeler.WriteTextureCoord(r.doc, vec2s(g.UVs)),
		}
		prim := &gltf.Primitive{
			Indices:    gltf.Index(writeIndices(r.doc, g.Indices)),
			Attributes: attributes,
			Mode:       gltf.PrimitiveTriangles,
		}
		if r.Config.Export.Materials {
			prim.Material = gltf.Index(r.physicsMaterial(agg, g))
		}

		r.doc.Meshes = append(r.doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
		attr := g.Attribute(agg)
		r.addChild(parent, &gltf.Node{
			Name: name,
			Mesh: gltf.Index(uint32(len(r.doc.Meshes) - 1)),
			Extras: map[string]interface{}{
				"SurfaceProperty": g.Surface(agg),
				"CollisionGroup":  attr.CollisionGroup,
				"InteractAs":      strings.Join(attr.Tags(), ","),
			},
		})
	}
	return nil
}

// physicsMaterial is shared by groups with the same tool texture and surface.
// Texture comes from tool material when it exists, otherwise it is generated.
func (r *run) physicsMaterial(agg *resource.PhysAggregate, g *phys.Group) uint32 {
	tool := phys.ToolTextureName(g.Attribute(agg).Tags())
	surface := g.Surface(agg)
	key := "physmat:" + tool + ":" + surface

	return r.cacher.GetCachedOr(key, func() interface{} {
		name := "physics_" + tool
		if surface != "" && !strings.EqualFold(surface, "default") {
			name += "_" + surface
		}
		base := physicsColor
		m := &gltf.Material{
			Name: name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &base,
				MetallicFactor:  gltf.Float(0),
			},
		}
		r.doc.Materials = append(r.doc.Materials, m)

		if texPath := r.toolTexture(tool); texPath != "" {
			job := r.textures.submit("tool_"+tool, func(bc *BitmapCache) (image.Image, error) {
				return bc.Get(texPath)
			})
			job.bindings = append(job.bindings, textureBinding{material: m, target: material.TargetBaseColor})
		} else {
			textureName := surface
			if textureName == "" {
				textureName = tool
			}
			job := r.textures.submit("physics_"+textureName, func(*BitmapCache) (image.Image, error) {
				return phys.SurfaceTexture(textureName), nil
			})
			job.bindings = append(job.bindings, textureBinding{material: m, target: material.TargetBaseColor})
		}
		return uint32(len(r.doc.Materials) - 1)
	}).(uint32)
}

// toolTexture returns color texture of tool material, empty when there is none.
func (r *run) toolTexture(tool string) string {
	matPath := phys.ToolMaterialPath(tool)
	res, err := r.Loader.LoadFileCompiled(matPath)
	if err != nil || res == nil {
		logger.Debug("Tool material not found", zap.String("material", matPath), zap.Error(err))
		return ""
	}
	mat, err := res.Material()
	if err != nil {
		logger.Debug("Failed to parse tool material", zap.String("material", matPath), zap.Error(err))
		return ""
	}
	return mat.TextureParams["g_tColor"]
}

func vec3s(in []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func vec2s(in []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
