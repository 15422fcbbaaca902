package resource

import (
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

const PrimitiveTriangles = "RENDER_PRIM_TRIANGLES"

type AttributeDescriptor struct {
	SemanticName  string
	SemanticIndex int
	Format        string
	Offset        int
}

type VertexBuffer struct {
	ElementCount int
	ElementSize  int
	Attributes   []AttributeDescriptor
	Data         []byte
}

type IndexBuffer struct {
	ElementCount int
	ElementSize  int
	Data         []byte
}

type DrawCall struct {
	PrimitiveType string
	Material      string
	TintColor     [4]float32
	BaseVertex    int
	VertexCount   int
	StartIndex    int
	IndexCount    int
	VertexBuffers []int
	IndexBuffer   int
}

type SceneObject struct {
	DrawCalls []DrawCall
}

// MorphData keeps per vertex position deltas of every flex, indexed like vertex buffer 0.
type MorphData struct {
	FlexNames []string
	Targets   map[string][][3]float32
}

type Mesh struct {
	Name            string
	VertexBuffers   []VertexBuffer
	IndexBuffers    []IndexBuffer
	SceneObjects    []SceneObject
	BoneWeightCount int
	Morph           *MorphData
}

func (m *Mesh) DrawCallCount() int {
	count := 0
	for _, so := range m.SceneObjects {
		count += len(so.DrawCalls)
	}
	return count
}

func parseVertexBuffer(r *kv.Record) (vb VertexBuffer, err error) {
	var n int64
	if n, err = r.Int("m_nElementCount"); err != nil {
		return
	}
	vb.ElementCount = int(n)
	if n, err = r.Int("m_nElementSizeInBytes"); err != nil {
		return
	}
	vb.ElementSize = int(n)
	if vb.Data, err = r.Bytes("m_pData"); err != nil {
		return
	}
	if len(vb.Data) < vb.ElementCount*vb.ElementSize {
		return vb, errors.Errorf("buffer holds %d bytes, need %d", len(vb.Data), vb.ElementCount*vb.ElementSize)
	}

	fields, err := r.Records("m_inputLayoutFields")
	if err != nil {
		return
	}
	vb.Attributes = make([]AttributeDescriptor, len(fields))
	for i, f := range fields {
		a := &vb.Attributes[i]
		if a.SemanticName, err = f.String("m_pSemanticName"); err != nil {
			return
		}
		if a.Format, err = f.String("m_Format"); err != nil {
			return
		}
		a.SemanticIndex = int(f.IntOr("m_nSemanticIndex", 0))
		a.Offset = int(f.IntOr("m_nOffset", 0))
	}
	return vb, nil
}

func parseIndexBuffer(r *kv.Record) (ib IndexBuffer, err error) {
	var n int64
	if n, err = r.Int("m_nElementCount"); err != nil {
		return
	}
	ib.ElementCount = int(n)
	if n, err = r.Int("m_nElementSizeInBytes"); err != nil {
		return
	}
	ib.ElementSize = int(n)
	if ib.Data, err = r.Bytes("m_pData"); err != nil {
		return
	}
	if len(ib.Data) < ib.ElementCount*ib.ElementSize {
		return ib, errors.Errorf("buffer holds %d bytes, need %d", len(ib.Data), ib.ElementCount*ib.ElementSize)
	}
	return ib, nil
}

func bufferHandle(r *kv.Record) (int, error) {
	n, err := r.Int("m_hBuffer")
	return int(n), err
}

func parseDrawCall(r *kv.Record) (dc DrawCall, err error) {
	if dc.PrimitiveType, err = r.String("m_nPrimitiveType"); err != nil {
		return
	}
	dc.Material = r.StringOr("m_material", r.StringOr("m_pMaterial", ""))
	dc.BaseVertex = int(r.IntOr("m_nBaseVertex", 0))
	dc.VertexCount = int(r.IntOr("m_nVertexCount", 0))
	dc.StartIndex = int(r.IntOr("m_nStartIndex", 0))
	n, err := r.Int("m_nIndexCount")
	if err != nil {
		return
	}
	dc.IndexCount = int(n)

	dc.TintColor = [4]float32{1, 1, 1, 1}
	if tint, err := r.Vec3("m_vTintColor"); err == nil {
		dc.TintColor = [4]float32{tint[0], tint[1], tint[2], r.FloatOr("m_flAlpha", 1)}
	}

	ibr, err := r.Record("m_indexBuffer")
	if err != nil {
		return
	}
	if dc.IndexBuffer, err = bufferHandle(ibr); err != nil {
		return
	}

	vbrs, err := r.Records("m_vertexBuffers")
	if err != nil {
		return
	}
	dc.VertexBuffers = make([]int, len(vbrs))
	for i, vbr := range vbrs {
		if dc.VertexBuffers[i], err = bufferHandle(vbr); err != nil {
			return
		}
	}
	return dc, nil
}

func parseMorph(r *kv.Record) (*MorphData, error) {
	names, err := r.Strings("m_flexNames")
	if err != nil {
		return nil, err
	}
	md := &MorphData{
		FlexNames: names,
		Targets:   make(map[string][][3]float32, len(names)),
	}
	targets, err := r.Record("m_targets")
	if err != nil {
		return nil, err
	}
	for _, name := range targets.Keys() {
		flat, err := targets.Floats(name)
		if err != nil {
			return nil, err
		}
		if len(flat)%3 != 0 {
			return nil, errors.Errorf("flex %q has %d components", name, len(flat))
		}
		deltas := make([][3]float32, len(flat)/3)
		for i := range deltas {
			deltas[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
		}
		md.Targets[name] = deltas
	}
	return md, nil
}

func ParseMesh(r *kv.Record) (*Mesh, error) {
	m := &Mesh{}

	vbrs, err := r.Records("m_vertexBuffers")
	if err != nil {
		return nil, err
	}
	m.VertexBuffers = make([]VertexBuffer, len(vbrs))
	for i, vbr := range vbrs {
		if m.VertexBuffers[i], err = parseVertexBuffer(vbr); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse vertex buffer %d", i)
		}
	}

	ibrs, err := r.Records("m_indexBuffers")
	if err != nil {
		return nil, err
	}
	m.IndexBuffers = make([]IndexBuffer, len(ibrs))
	for i, ibr := range ibrs {
		if m.IndexBuffers[i], err = parseIndexBuffer(ibr); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse index buffer %d", i)
		}
	}

	sors, err := r.Records("m_sceneObjects")
	if err != nil {
		return nil, err
	}
	m.SceneObjects = make([]SceneObject, len(sors))
	for i, sor := range sors {
		dcrs, err := sor.Records("m_drawCalls")
		if err != nil {
			return nil, errors.Wrapf(err, "scene object %d", i)
		}
		so := &m.SceneObjects[i]
		so.DrawCalls = make([]DrawCall, len(dcrs))
		for j, dcr := range dcrs {
			if so.DrawCalls[j], err = parseDrawCall(dcr); err != nil {
				return nil, errors.Wrapf(err, "Failed to parse draw call %d of scene object %d", j, i)
			}
			if err := m.checkDrawCall(&so.DrawCalls[j]); err != nil {
				return nil, errors.Wrapf(err, "draw call %d of scene object %d", j, i)
			}
		}
	}

	if skel, err := r.Record("m_skeleton"); err == nil {
		m.BoneWeightCount = int(skel.IntOr("m_nBoneWeightCount", 0))
	}

	if r.Has("m_morph") {
		mr, err := r.Record("m_morph")
		if err != nil {
			return nil, err
		}
		if m.Morph, err = parseMorph(mr); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse morph data")
		}
	}

	return m, nil
}

func (m *Mesh) checkDrawCall(dc *DrawCall) error {
	if dc.IndexBuffer < 0 || dc.IndexBuffer >= len(m.IndexBuffers) {
		return errors.Errorf("index buffer %d out of range", dc.IndexBuffer)
	}
	for _, vb := range dc.VertexBuffers {
		if vb < 0 || vb >= len(m.VertexBuffers) {
			return errors.Errorf("vertex buffer %d out of range", vb)
		}
	}
	return nil
}
