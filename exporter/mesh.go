package exporter

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/anim"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/vbib"
)

type exportedMesh struct {
	Index      uint32
	MorphNames []string
}

// meshWriter shares accessors of one mesh vertex buffers between its draw calls.
type meshWriter struct {
	r       *run
	mesh    *resource.Mesh
	remap   []int
	skinned bool

	attributes map[int]gltf.Attribute
	counts     map[int]int
	morphs     map[int][]gltf.Attribute
}

func (r *run) skipMesh(mesh *resource.Mesh) bool {
	skip := r.Config.Export.SkipMaterials
	if len(skip) == 0 || mesh.DrawCallCount() == 0 {
		return false
	}
	for _, so := range mesh.SceneObjects {
		for _, dc := range so.DrawCalls {
			found := false
			for _, s := range skip {
				if strings.EqualFold(s, dc.Material) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// exportMesh writes mesh into document. Unskinned meshes are written once per
// name. Returns nil when mesh is skipped by configuration.
func (r *run) exportMesh(mesh *resource.Mesh, remap []int, skinned bool) (*exportedMesh, error) {
	if r.skipMesh(mesh) {
		logger.Info("Skipping mesh by material", zap.String("mesh", mesh.Name))
		return nil, nil
	}

	key := "mesh:" + mesh.Name
	if !skinned {
		if v, ok := r.cacher.GetCached(key); ok {
			logger.Debug("Reusing mesh", zap.String("mesh", mesh.Name))
			return v.(*exportedMesh), nil
		}
	}

	mw := &meshWriter{
		r:          r,
		mesh:       mesh,
		remap:      remap,
		skinned:    skinned,
		attributes: make(map[int]gltf.Attribute),
		counts:     make(map[int]int),
		morphs:     make(map[int][]gltf.Attribute),
	}

	gm := &gltf.Mesh{Name: mesh.Name}
	total := mesh.DrawCallCount()
	n := 0
	for _, so := range mesh.SceneObjects {
		for i := range so.DrawCalls {
			if err := cancelled(r.ctx); err != nil {
				return nil, err
			}
			r.progress(float32(n)/float32(total), "Mesh %s draw call %d/%d", mesh.Name, n+1, total)
			prim, err := mw.primitive(&so.DrawCalls[i])
			if err != nil {
				return nil, errors.Wrapf(err, "Draw call %d of mesh %q", n, mesh.Name)
			}
			gm.Primitives = append(gm.Primitives, prim)
			n++
		}
	}

	em := &exportedMesh{}
	if mw.hasMorphs() {
		em.MorphNames = mesh.Morph.FlexNames
		gm.Weights = make([]float32, len(em.MorphNames))
		gm.Extras = map[string]interface{}{"targetNames": em.MorphNames}
	}

	r.doc.Meshes = append(r.doc.Meshes, gm)
	em.Index = uint32(len(r.doc.Meshes) - 1)
	if !skinned {
		r.cacher.AddCache(key, em)
	}
	return em, nil
}

func (mw *meshWriter) hasMorphs() bool {
	return mw.r.Config.Export.Morphs && mw.mesh.Morph != nil && len(mw.mesh.Morph.FlexNames) != 0
}

func (mw *meshWriter) primitive(dc *resource.DrawCall) (*gltf.Primitive, error) {
	if dc.IndexBuffer < 0 || dc.IndexBuffer >= len(mw.mesh.IndexBuffers) {
		return nil, errors.Errorf("index buffer %d of %d", dc.IndexBuffer, len(mw.mesh.IndexBuffers))
	}
	indices, err := vbib.ResolveIndices(&mw.mesh.IndexBuffers[dc.IndexBuffer], dc)
	if err != nil {
		return nil, err
	}

	attributes := make(gltf.Attribute)
	for _, vbi := range dc.VertexBuffers {
		a, err := mw.vertexAttributes(vbi)
		if err != nil {
			return nil, errors.Wrapf(err, "vertex buffer %d", vbi)
		}
		for name, accessor := range a {
			if _, ok := attributes[name]; !ok {
				attributes[name] = accessor
			}
		}
	}
	if _, ok := attributes[vbib.SemanticPosition]; !ok {
		return nil, errors.Wrapf(vbib.ErrUnsupportedAttributeShape, "draw call without %s", vbib.SemanticPosition)
	}

	prim := &gltf.Primitive{
		Indices:    gltf.Index(writeIndices(mw.r.doc, indices)),
		Attributes: attributes,
		Mode:       gltf.PrimitiveTriangles,
	}

	if mw.r.Config.Export.Materials && dc.Material != "" {
		if m := mw.r.material(dc.Material, dc.TintColor); m != nil {
			prim.Material = gltf.Index(m.Index)
		}
	}

	if mw.hasMorphs() && len(dc.VertexBuffers) != 0 {
		prim.Targets = mw.morphTargets(dc.VertexBuffers[0])
	}
	return prim, nil
}

func (mw *meshWriter) vertexAttributes(vbi int) (gltf.Attribute, error) {
	if a, ok := mw.attributes[vbi]; ok {
		return a, nil
	}
	if vbi < 0 || vbi >= len(mw.mesh.VertexBuffers) {
		return nil, errors.Errorf("vertex buffer %d of %d", vbi, len(mw.mesh.VertexBuffers))
	}

	boneWeightCount := 0
	if mw.skinned {
		boneWeightCount = mw.mesh.BoneWeightCount
	}
	db, err := vbib.Decode(&mw.mesh.VertexBuffers[vbi], boneWeightCount, mw.remap)
	if err != nil {
		return nil, err
	}

	doc := mw.r.doc
	a := make(gltf.Attribute)
	for i := range db.Streams {
		a[db.Streams[i].Name] = writeStream(doc, &db.Streams[i])
	}
	if db.Normals != nil {
		a[vbib.SemanticNormal] = modeler.WriteNormal(doc, db.Normals)
	}
	if db.Tangents != nil {
		a[vbib.SemanticTangent] = modeler.WriteTangent(doc, db.Tangents)
	}
	for i := range db.Joints {
		a[fmt.Sprintf("JOINTS_%d", i)] = modeler.WriteJoints(doc, db.Joints[i])
	}
	for i := range db.Weights {
		a[fmt.Sprintf("WEIGHTS_%d", i)] = modeler.WriteWeights(doc, db.Weights[i])
	}

	mw.attributes[vbi] = a
	mw.counts[vbi] = db.VertexCount
	return a, nil
}

// morphTargets returns position deltas of every flex. Deltas are indexed
// like vertex buffer 0, other buffers get zero deltas.
func (mw *meshWriter) morphTargets(vbi int) []gltf.Attribute {
	if t, ok := mw.morphs[vbi]; ok {
		return t
	}
	morph := mw.mesh.Morph
	count := mw.counts[vbi]

	var zero uint32
	hasZero := false
	targets := make([]gltf.Attribute, len(morph.FlexNames))
	for i, name := range morph.FlexNames {
		deltas := morph.Targets[name]
		if vbi != 0 || len(deltas) != count {
			if vbi == 0 {
				logger.Warn("Flex does not match vertex count", zap.String("mesh", mw.mesh.Name),
					zap.String("flex", name), zap.Int("deltas", len(deltas)), zap.Int("vertices", count))
			}
			if !hasZero {
				zero = modeler.WritePosition(mw.r.doc, make([][3]float32, count))
				hasZero = true
			}
			targets[i] = gltf.Attribute{vbib.SemanticPosition: zero}
			continue
		}
		targets[i] = gltf.Attribute{vbib.SemanticPosition: modeler.WritePosition(mw.r.doc, deltas)}
	}
	mw.morphs[vbi] = targets
	return targets
}

func writeIndices(doc *gltf.Document, indices []uint32) uint32 {
	var maxIndex uint32
	for _, i := range indices {
		if i > maxIndex {
			maxIndex = i
		}
	}
	if maxIndex < 0xffff {
		short := make([]uint16, len(indices))
		for i, v := range indices {
			short[i] = uint16(v)
		}
		return modeler.WriteIndices(doc, short)
	}
	return modeler.WriteIndices(doc, indices)
}

func writeStream(doc *gltf.Document, s *vbib.Stream) uint32 {
	isColor := strings.HasPrefix(s.Name, vbib.SemanticColor+"_")
	switch s.Components {
	case 1:
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, s.Data)
	case 2:
		uvs := vbib.ToVec2(s.Data)
		if strings.HasPrefix(s.Name, vbib.SemanticTexCoord+"_") {
			return modeler.WriteTextureCoord(doc, uvs)
		}
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, uvs)
	case 3:
		v := vbib.ToVec3(s.Data)
		switch {
		case s.Name == vbib.SemanticPosition:
			return modeler.WritePosition(doc, v)
		case isColor:
			colors := make([][4]float32, len(v))
			for i, c := range v {
				colors[i] = [4]float32{c[0], c[1], c[2], 1}
			}
			return modeler.WriteColor(doc, colors)
		}
		return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, v)
	}
	v := vbib.ToVec4(s.Data)
	if isColor {
		return modeler.WriteColor(doc, v)
	}
	return modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, v)
}

// exportModelMeshes places first LOD meshes of model under root and returns
// morph targets for animation weights channels.
func (r *run) exportModelMeshes(model *resource.Model, root uint32, skel *exportedSkeleton) ([]anim.MorphTarget, error) {
	var morphs []anim.MorphTarget
	for i := range model.Meshes {
		mm := &model.Meshes[i]
		if !mm.InFirstLOD() {
			continue
		}
		if err := cancelled(r.ctx); err != nil {
			return nil, err
		}

		res, err := r.Loader.LoadFileCompiled(mm.File)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to load mesh %q", mm.File)
		}
		if res == nil {
			logger.Warn("Mesh not found", zap.String("model", model.Name), zap.String("mesh", mm.File))
			continue
		}
		mesh, err := res.Mesh()
		if err != nil {
			return nil, err
		}

		skinned := skel != nil && mesh.BoneWeightCount > 0
		em, err := r.exportMesh(mesh, model.RemapTable(mm.Index), skinned)
		if err != nil {
			return nil, err
		}
		if em == nil {
			continue
		}

		node := &gltf.Node{Name: mesh.Name, Mesh: gltf.Index(em.Index)}
		if skinned {
			node.Skin = gltf.Index(skel.Skin)
		}
		index := r.addChild(root, node)
		if len(em.MorphNames) != 0 {
			morphs = append(morphs, anim.MorphTarget{Node: index, Names: em.MorphNames})
		}
	}
	return morphs, nil
}
