package material

import (
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/s2gltf/resource"
)

const ExtensionUnlit = "KHR_materials_unlit"

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// IsTranslucent also treats glass shaders as blended.
func IsTranslucent(mat *resource.Material) bool {
	return mat.IntParam("F_TRANSLUCENT") > 0 || strings.HasSuffix(mat.ShaderName, "_glass.vfx")
}

// NewGLTFMaterial converts render flags and factors of mat. tint is draw call tint.
func NewGLTFMaterial(doc *gltf.Document, mat *resource.Material, name string, tint [4]float32) *gltf.Material {
	alphaTest := mat.IntParam("F_ALPHA_TEST") > 0

	m := &gltf.Material{
		Name:        name,
		DoubleSided: mat.IntParam("F_RENDER_BACKFACES") > 0,
		AlphaMode:   gltf.AlphaOpaque,
	}
	switch {
	case IsTranslucent(mat):
		m.AlphaMode = gltf.AlphaBlend
	case alphaTest:
		m.AlphaMode = gltf.AlphaMask
		if ref, ok := mat.FloatParams["g_flAlphaTestReference"]; ok {
			m.AlphaCutoff = gltf.Float(ref)
		}
	}

	if mat.IntParam("F_UNLIT") > 0 {
		m.Extensions = gltf.Extensions{ExtensionUnlit: map[string]interface{}{}}
		AddExtensionUsed(doc, ExtensionUnlit)
	}

	base := [4]float32{1, 1, 1, 1}
	if ct, ok := mat.VectorParams["g_vColorTint"]; ok {
		for i := 0; i < 3; i++ {
			base[i] = clamp01(ct[i])
		}
	}
	for i := range base {
		base[i] *= tint[i]
	}

	m.PBRMetallicRoughness = &gltf.PBRMetallicRoughness{
		BaseColorFactor: &base,
		MetallicFactor:  gltf.Float(clamp01(mat.FloatParam("g_flMetalness", 0))),
	}
	return m
}

func AddExtensionUsed(doc *gltf.Document, ext string) {
	for _, e := range doc.ExtensionsUsed {
		if e == ext {
			return
		}
	}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, ext)
}

// TieTexture binds texture to material slot of target.
func TieTexture(m *gltf.Material, target string, texture uint32) {
	switch target {
	case TargetBaseColor:
		m.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: texture}
	case TargetNormal:
		m.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(texture)}
	case TargetMetallicRoughness:
		m.PBRMetallicRoughness.MetallicRoughnessTexture = &gltf.TextureInfo{Index: texture}
		// texture carries metalness, factor from parameters no longer applies
		m.PBRMetallicRoughness.MetallicFactor = gltf.Float(1)
	case TargetOcclusion:
		m.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(texture)}
	case TargetEmissive:
		m.EmissiveTexture = &gltf.TextureInfo{Index: texture}
		m.EmissiveFactor = [3]float32{1, 1, 1}
	}
}

// TieORM binds combined texture to metallic roughness and to its red channel target.
func TieORM(m *gltf.Material, orm *ORMRequest, texture uint32) {
	TieTexture(m, TargetMetallicRoughness, texture)
	if orm.RedTarget != "" {
		TieTexture(m, orm.RedTarget, texture)
	}
}
