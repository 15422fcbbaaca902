package vbib

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

func TestDecompressNormalUnitLength(t *testing.T) {
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			n := DecompressNormal(byte(x), byte(y))
			if l := n.Len(); math.Abs(float64(l)-1) > 1e-5 {
				t.Fatalf("DecompressNormal(%d, %d)=%v; length %v", x, y, n, l)
			}
			tg := DecompressTangent(byte(x), byte(y))
			if (y < 128) != (tg[3] == -1) {
				t.Fatalf("DecompressTangent(%d, %d) handedness %v", x, y, tg[3])
			}
		}
	}
}

func TestDecompressNormalKnown(t *testing.T) {
	third := float32(1 / math.Sqrt(3))
	for _, tc := range []struct {
		x, y   byte
		expect mgl32.Vec3
	}{
		{128, 128, mgl32.Vec3{-third, -third, -third}},
		{255, 255, mgl32.Vec3{third, third, -third}},
	} {
		if n := DecompressNormal(tc.x, tc.y); !n.ApproxEqualThreshold(tc.expect, 1e-6) {
			t.Errorf("DecompressNormal(%d, %d)=%v; expected %v", tc.x, tc.y, n, tc.expect)
		}
	}
}

func TestDecompressNormalTangentV2(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20000; i++ {
		packed := r.Uint32()
		n, tg := DecompressNormalTangentV2(packed)
		if math.Abs(float64(n.Len())-1) > 1e-5 {
			t.Fatalf("normal of 0x%08x=%v is not unit", packed, n)
		}
		t3 := tg.Vec3()
		if math.Abs(float64(t3.Len())-1) > 1e-3 {
			t.Fatalf("tangent of 0x%08x=%v is not unit", packed, tg)
		}
		if d := n.Dot(t3); math.Abs(float64(d)) > 1e-3 {
			t.Fatalf("tangent of 0x%08x is not orthogonal: dot %v", packed, d)
		}
		if expect := float32(packed&1)*2 - 1; tg[3] != expect {
			t.Fatalf("tangent sign of 0x%08x=%v; expected %v", packed, tg[3], expect)
		}
	}
}

func TestFixZeroLength(t *testing.T) {
	normals := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0.9, 0}}
	if fixed := FixZeroLengthNormals(normals); fixed != 2 {
		t.Errorf("FixZeroLengthNormals fixed %d; expected 2", fixed)
	}
	if normals[0] != [3]float32{0, 0, -1} || normals[1] != [3]float32{1, 0, 0} {
		t.Errorf("normals=%v", normals)
	}

	tangents := [][4]float32{{0, 0, 0, -1}, {0, 1, 0, 1}}
	FixZeroLengthTangents(tangents)
	if tangents[0] != [4]float32{0, 0, -1, -1} || tangents[1] != [4]float32{0, 1, 0, 1} {
		t.Errorf("tangents=%v", tangents)
	}
}

func TestSwapYZ(t *testing.T) {
	if v := SwapYZ(mgl32.Vec3{1, 2, 3}); v != (mgl32.Vec3{1, 3, 2}) {
		t.Errorf("SwapYZ=%v", v)
	}
}

func TestCompactJoints(t *testing.T) {
	for _, tc := range []struct {
		joints        []uint16
		weights       []float32
		expectJoints  []uint16
		expectWeights []float32
	}{
		{
			[]uint16{3, 3, 1, 1}, []float32{.25, .25, .25, .25},
			[]uint16{3, 1, 0, 0}, []float32{.5, .5, 0, 0},
		},
		{
			[]uint16{7, 2, 9, 4}, []float32{1, 0, 0, 0},
			[]uint16{7, 0, 0, 0}, []float32{1, 0, 0, 0},
		},
		{
			[]uint16{5, 5, 5, 5}, []float32{.25, .25, .25, .25},
			[]uint16{5, 0, 0, 0}, []float32{1, 0, 0, 0},
		},
		{
			[]uint16{1, 2, 1, 2}, []float32{.1, .2, .3, .4},
			[]uint16{1, 2, 0, 0}, []float32{.4, .6, 0, 0},
		},
	} {
		joints := append([]uint16(nil), tc.joints...)
		weights := append([]float32(nil), tc.weights...)
		if err := CompactJoints(joints, weights, 4); err != nil {
			t.Fatalf("CompactJoints: %v", err)
		}
		for i := range joints {
			if joints[i] != tc.expectJoints[i] || math.Abs(float64(weights[i]-tc.expectWeights[i])) > 1e-6 {
				t.Errorf("CompactJoints(%v, %v)=%v, %v; expected %v, %v",
					tc.joints, tc.weights, joints, weights, tc.expectJoints, tc.expectWeights)
				break
			}
		}
	}
}

func TestCompactJointsProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, width := range []int{4, 8} {
		count := 500
		joints := make([]uint16, count*width)
		weights := make([]float32, count*width)
		for i := range joints {
			joints[i] = uint16(r.Intn(4))
			if r.Intn(3) != 0 {
				weights[i] = r.Float32()
			}
		}
		original := append([]float32(nil), weights...)

		if err := CompactJoints(joints, weights, width); err != nil {
			t.Fatalf("CompactJoints: %v", err)
		}
		NormalizeWeights(weights, width)

		for v := 0; v < count; v++ {
			var before, after float32
			seen := make(map[uint16]bool)
			for s := 0; s < width; s++ {
				before += original[v*width+s]
				w := weights[v*width+s]
				after += w
				if w == 0 {
					continue
				}
				j := joints[v*width+s]
				if seen[j] {
					t.Fatalf("vertex %d width %d has joint %d twice: %v %v", v, width,
						j, joints[v*width:v*width+width], weights[v*width:v*width+width])
				}
				seen[j] = true
			}
			if before > 0 && math.Abs(float64(after)-1) > 1e-5 {
				t.Fatalf("vertex %d width %d weights sum to %v", v, width, after)
			}
		}
	}
}

func TestCompactJointsShape(t *testing.T) {
	err := CompactJoints(make([]uint16, 6), make([]float32, 6), 4)
	if errors.Cause(err) != ErrUnsupportedAttributeShape {
		t.Errorf("CompactJoints with ragged input returned %v", err)
	}
}

func TestUniformWeights(t *testing.T) {
	w := UniformWeights(2, 4, 2)
	expect := []float32{.5, .5, 0, 0, .5, .5, 0, 0}
	for i := range expect {
		if w[i] != expect[i] {
			t.Fatalf("UniformWeights=%v; expected %v", w, expect)
		}
	}
	if w := UniformWeights(1, 4, 0); w[0] != 0 {
		t.Errorf("UniformWeights without active joints=%v", w)
	}
}

func TestSplitEight(t *testing.T) {
	joints := []uint16{1, 2, 3, 4, 5, 6, 7, 8, 11, 12, 13, 14, 15, 16, 17, 18}
	sets := SplitJoints(joints, 8)
	if len(sets) != 2 || sets[0][1] != [4]uint16{11, 12, 13, 14} || sets[1][1] != [4]uint16{15, 16, 17, 18} {
		t.Errorf("SplitJoints=%v", sets)
	}
	wsets := SplitWeights([]float32{1, 0, 0, 0}, 4)
	if len(wsets) != 1 || wsets[0][0] != [4]float32{1, 0, 0, 0} {
		t.Errorf("SplitWeights=%v", wsets)
	}
}

func TestResolveIndices(t *testing.T) {
	ib16 := &resource.IndexBuffer{ElementCount: 6, ElementSize: 2, Data: utils.AsBytes([]uint16{0, 1, 2, 2, 1, 3})}
	ib32 := &resource.IndexBuffer{ElementCount: 6, ElementSize: 4, Data: utils.AsBytes([]uint32{0, 1, 2, 2, 1, 3})}
	expect := []uint32{100, 101, 102, 102, 101, 103}

	for _, ib := range []*resource.IndexBuffer{ib16, ib32} {
		dc := &resource.DrawCall{PrimitiveType: resource.PrimitiveTriangles, StartIndex: 0, IndexCount: 6, BaseVertex: 100}
		indices, err := ResolveIndices(ib, dc)
		if err != nil {
			t.Fatalf("ResolveIndices(%d byte): %v", ib.ElementSize, err)
		}
		for i := range expect {
			if indices[i] != expect[i] {
				t.Fatalf("ResolveIndices(%d byte)=%v; expected %v", ib.ElementSize, indices, expect)
			}
		}
	}

	dc := &resource.DrawCall{PrimitiveType: resource.PrimitiveTriangles, StartIndex: 3, IndexCount: 3, BaseVertex: 1}
	if indices, err := ResolveIndices(ib16, dc); err != nil || indices[0] != 3 || indices[2] != 4 {
		t.Errorf("ResolveIndices(start 3)=%v, %v", indices, err)
	}

	dc.StartIndex = 4
	if _, err := ResolveIndices(ib16, dc); err == nil {
		t.Errorf("expected error for indices past the buffer end")
	}

	bad := &resource.IndexBuffer{ElementCount: 2, ElementSize: 1, Data: []byte{0, 1}}
	dc = &resource.DrawCall{PrimitiveType: resource.PrimitiveTriangles, IndexCount: 2}
	if _, err := ResolveIndices(bad, dc); errors.Cause(err) != ErrUnsupportedIndexSize {
		t.Errorf("ResolveIndices(1 byte)=%v; expected ErrUnsupportedIndexSize", err)
	}

	dc = &resource.DrawCall{PrimitiveType: "RENDER_PRIM_LINES", IndexCount: 2}
	if _, err := ResolveIndices(ib16, dc); errors.Cause(err) != ErrUnsupportedTopology {
		t.Errorf("ResolveIndices(lines)=%v; expected ErrUnsupportedTopology", err)
	}
}

func TestAccessorNamer(t *testing.T) {
	type step struct {
		semantic string
		index    int
		format   string
		expect   string
		fail     bool
	}
	for _, tc := range [][]step{
		{
			{"POSITION", 0, R32G32B32_FLOAT, "POSITION", false},
			{"TEXCOORD", 0, R32G32_FLOAT, "TEXCOORD_0", false},
			{"TEXCOORD", 1, R16G16_FLOAT, "TEXCOORD_1", false},
			{"TEXCOORD", 2, R32G32B32A32_FLOAT, "_TEXCOORD_2", false},
			{"COLOR", 0, R8G8B8A8_UNORM, "COLOR_0", false},
			{"COLOR", 1, R8G8B8A8_UNORM, "COLOR_1", false},
		},
		{
			{"TEXCOORD", 0, R32_FLOAT, "_TEXCOORD_0", false},
			{"BLENDMASK", 0, R32_FLOAT, "_BLENDMASK", false},
			{"BLENDMASK", 1, R32_FLOAT, "_BLENDMASK_1", false},
		},
		{
			{"POSITION", 0, R32G32B32_FLOAT, "POSITION", false},
			{"POSITION", 0, R32G32B32_FLOAT, "", true},
		},
	} {
		namer := NewAccessorNamer()
		for _, s := range tc {
			attr := &resource.AttributeDescriptor{SemanticName: s.semantic, SemanticIndex: s.index, Format: s.format}
			fi, _ := GetFormatInfo(s.format)
			name, err := namer.Name(attr, fi.Components)
			if s.fail {
				if errors.Cause(err) != ErrUnsupportedAttributeShape {
					t.Errorf("Name(%s %d) returned %q, %v; expected ErrUnsupportedAttributeShape", s.semantic, s.index, name, err)
				}
				continue
			}
			if err != nil || name != s.expect {
				t.Errorf("Name(%s %d %s)=%q, %v; expected %q", s.semantic, s.index, s.format, name, err, s.expect)
			}
		}
	}
}

func TestCheckShape(t *testing.T) {
	for _, tc := range []struct {
		semantic string
		format   string
		ok       bool
	}{
		{"POSITION", R32G32B32_FLOAT, true},
		{"POSITION", R32G32_FLOAT, false},
		{"NORMAL", R8G8B8A8_UNORM, true},
		{"NORMAL", R32_UINT, true},
		{"NORMAL", R16G16_FLOAT, false},
		{"NORMAL", R32G32_FLOAT, false},
		{"BLENDWEIGHT", R32_FLOAT, false},
		{"BLENDWEIGHT", R8G8B8A8_UNORM, true},
		{"TANGENT", R32G32B32_FLOAT, false},
	} {
		err := CheckShape(&resource.AttributeDescriptor{SemanticName: tc.semantic, Format: tc.format})
		if (err == nil) != tc.ok {
			t.Errorf("CheckShape(%s %s)=%v; expected ok=%v", tc.semantic, tc.format, err, tc.ok)
		}
	}
}

func TestReadAttributeFormats(t *testing.T) {
	for _, tc := range []struct {
		format string
		data   []byte
		expect []float32
	}{
		{R16G16_UNORM, utils.AsBytes([]uint16{65535, 0}), []float32{1, 0}},
		{R16G16_SNORM, utils.AsBytes([]int16{-32768, 32767}), []float32{-1, 1}},
		{R8G8B8A8_SNORM, []byte{0x81, 0x7f, 0, 0x80}, []float32{-1, 1, 0, -1}},
		{R8G8B8A8_UNORM, []byte{255, 0, 51, 255}, []float32{1, 0, 0.2, 1}},
		{R16G16_FLOAT, utils.AsBytes([]uint16{float16.Fromfloat32(0.5).Bits(), float16.Fromfloat32(-2).Bits()}), []float32{0.5, -2}},
		{R32_FLOAT, utils.AsBytes([]float32{3.5}), []float32{3.5}},
	} {
		vb := &resource.VertexBuffer{ElementCount: 1, ElementSize: len(tc.data), Data: tc.data}
		attr := &resource.AttributeDescriptor{SemanticName: "TEXCOORD", Format: tc.format}
		got, n, err := ReadAttribute(vb, attr)
		if err != nil || n != len(tc.expect) {
			t.Fatalf("ReadAttribute(%s)=%v, %d, %v", tc.format, got, n, err)
		}
		for i := range got {
			if math.Abs(float64(got[i]-tc.expect[i])) > 1e-6 {
				t.Errorf("ReadAttribute(%s)=%v; expected %v", tc.format, got, tc.expect)
				break
			}
		}
	}

	vb := &resource.VertexBuffer{ElementCount: 2, ElementSize: 8, Data: make([]byte, 12)}
	attr := &resource.AttributeDescriptor{SemanticName: "POSITION", Format: R32G32B32_FLOAT}
	if _, _, err := ReadAttribute(vb, attr); err == nil {
		t.Errorf("expected error for attribute wider than element")
	}
	attr.Format = "R11G11B10_FLOAT"
	if _, _, err := ReadAttribute(vb, attr); errors.Cause(err) != ErrUnsupportedFormat {
		t.Errorf("ReadAttribute(R11G11B10_FLOAT)=%v; expected ErrUnsupportedFormat", err)
	}
}

type testVertex struct {
	Position [3]float32
	Normal   [4]uint8
	UV       [2]uint16
	Joints   [4]uint8
	Weights  [4]uint8
}

func testSkinnedBuffer() *resource.VertexBuffer {
	uv := [2]uint16{float16.Fromfloat32(0.25).Bits(), float16.Fromfloat32(0.75).Bits()}
	vertices := []testVertex{
		{[3]float32{0, 0, 0}, [4]uint8{255, 255, 255, 255}, uv, [4]uint8{0, 1, 1, 0}, [4]uint8{128, 64, 63, 0}},
		{[3]float32{1, 0, 0}, [4]uint8{128, 128, 128, 0}, uv, [4]uint8{1, 0, 0, 0}, [4]uint8{255, 0, 0, 0}},
	}
	return &resource.VertexBuffer{
		ElementCount: len(vertices),
		ElementSize:  28,
		Data:         utils.AsBytes(vertices),
		Attributes: []resource.AttributeDescriptor{
			{SemanticName: "BLENDWEIGHT", Format: R8G8B8A8_UNORM, Offset: 24},
			{SemanticName: "POSITION", Format: R32G32B32_FLOAT, Offset: 0},
			{SemanticName: "NORMAL", Format: R8G8B8A8_UNORM, Offset: 12},
			{SemanticName: "TEXCOORD", Format: R16G16_FLOAT, Offset: 16},
			{SemanticName: "BLENDINDICES", Format: R8G8B8A8_UINT, Offset: 20},
		},
	}
}

func TestDecodeSkinned(t *testing.T) {
	db, err := Decode(testSkinnedBuffer(), 4, []int{5, 9})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if db.Stream("POSITION") == nil || db.Stream("TEXCOORD_0") == nil {
		t.Fatalf("streams=%v", db.Streams)
	}
	if uv := db.Stream("TEXCOORD_0").Data; uv[0] != 0.25 || uv[1] != 0.75 {
		t.Errorf("uv=%v", uv)
	}
	if len(db.Normals) != 2 || len(db.Tangents) != 2 {
		t.Fatalf("normals=%v tangents=%v", db.Normals, db.Tangents)
	}
	if len(db.Joints) != 1 || len(db.Weights) != 1 {
		t.Fatalf("joint sets=%d weight sets=%d", len(db.Joints), len(db.Weights))
	}
	// Slots 1 and 2 reference the same joint and merge
	if j := db.Joints[0][0]; j != [4]uint16{5, 9, 0, 0} {
		t.Errorf("joints=%v", j)
	}
	if w := db.Weights[0][0]; math.Abs(float64(w[0]+w[1])-1) > 1e-6 || w[2] != 0 {
		t.Errorf("weights=%v", w)
	}
	if j := db.Joints[0][1]; j != [4]uint16{9, 0, 0, 0} {
		t.Errorf("joints=%v", j)
	}
}

func TestDecodeUnskinnedIgnoresBlend(t *testing.T) {
	db, err := Decode(testSkinnedBuffer(), 0, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if db.Joints != nil || db.Weights != nil {
		t.Errorf("unexpected skin data")
	}
}

func TestDecodeJointsWithoutWeights(t *testing.T) {
	vb := testSkinnedBuffer()
	vb.Attributes = vb.Attributes[1:]
	db, err := Decode(vb, 2, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// Vertex 1 joints are 1, 0, 0, 0 with uniform 0.5 weights
	if w := db.Weights[0][1]; w != [4]float32{.5, .5, 0, 0} {
		t.Errorf("weights=%v", w)
	}
}

func TestBlendIndicesRemapOutOfRange(t *testing.T) {
	vb := testSkinnedBuffer()
	attr := &vb.Attributes[4]
	if _, _, err := ReadBlendIndices(vb, attr, []int{3}); err == nil {
		t.Errorf("expected error for joint outside remap table")
	}
}
