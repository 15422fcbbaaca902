package gltfutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

func TestGetCachedOr(t *testing.T) {
	gc := NewCacher()
	calls := 0
	create := func() interface{} {
		calls++
		return uint32(calls)
	}
	a := gc.GetCachedOr("mesh", create).(uint32)
	b := gc.GetCachedOr("mesh", create).(uint32)
	if a != b || calls != 1 {
		t.Errorf("GetCachedOr created %d times (%d, %d); expected 1", calls, a, b)
	}
	gc.AddCache("other", "x")
	if v, ok := gc.GetCached("other"); !ok || v.(string) != "x" {
		t.Errorf("GetCached(other)=%v,%v", v, ok)
	}
}

func TestWriteMat4(t *testing.T) {
	doc := NewDocument()
	mats := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(1, 2, 3)}
	index := WriteMat4(doc, mats)
	acc := doc.Accessors[index]
	if acc.Type != gltf.AccessorMat4 {
		t.Errorf("type=%v; expected MAT4", acc.Type)
	}
	if acc.Count != 2 {
		t.Errorf("count=%d; expected 2", acc.Count)
	}
	if size := BuffersSize(doc); size != 2*16*4 {
		t.Errorf("buffer size=%d; expected %d", size, 2*16*4)
	}
}

func TestWriteScalarsBounds(t *testing.T) {
	doc := NewDocument()
	index := WriteScalars(doc, []float32{0, 0.5, 2})
	acc := doc.Accessors[index]
	if len(acc.Min) != 1 || len(acc.Max) != 1 {
		t.Fatalf("bounds not set: min=%v max=%v", acc.Min, acc.Max)
	}
	if acc.Min[0] != 0 || acc.Max[0] != 2 {
		t.Errorf("bounds=%v..%v; expected 0..2", acc.Min, acc.Max)
	}
}

func TestAddRootNode(t *testing.T) {
	doc := NewDocument()
	AddNode(doc, &gltf.Node{Name: "child"})
	root := AddRootNode(doc, &gltf.Node{Name: "root"})
	if root != 1 {
		t.Errorf("root index=%d; expected 1", root)
	}
	if len(doc.Scenes[0].Nodes) != 1 || doc.Scenes[0].Nodes[0] != root {
		t.Errorf("scene nodes=%v; expected [%d]", doc.Scenes[0].Nodes, root)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	doc := NewDocument()
	WriteVec3(doc, [][3]float32{{0, 0, 0}, {1, 1, 1}})

	out := filepath.Join(dir, "sub", "model.gltf")
	if err := Save(doc, out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, name := range []string{"model.gltf", "model.bin"} {
		if _, err := os.Stat(filepath.Join(dir, "sub", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	glb := filepath.Join(dir, "model.glb")
	if err := Save(NewDocument(), glb); err != nil {
		t.Fatalf("Save glb: %v", err)
	}
	if !IsBinaryPath(glb) || IsBinaryPath(out) {
		t.Errorf("IsBinaryPath mismatch")
	}
}

func TestCheckSize(t *testing.T) {
	for _, c := range []struct {
		lengths []uint32
		tooBig  bool
	}{
		{nil, false},
		{[]uint32{1}, false},
		{[]uint32{1<<31 - 1}, false},
		{[]uint32{1 << 31}, true},
		{[]uint32{1 << 30, 1 << 30}, true},
		{[]uint32{1 << 30, 1<<30 - 1}, false},
	} {
		doc := NewDocument()
		for _, l := range c.lengths {
			doc.Buffers = append(doc.Buffers, &gltf.Buffer{ByteLength: l})
		}
		err := CheckSize(doc)
		if tooBig := errors.Is(err, ErrOutputTooLarge); tooBig != c.tooBig || (err != nil && !tooBig) {
			t.Errorf("CheckSize(%v)=%v; expected too large=%v", c.lengths, err, c.tooBig)
		}
	}

	doc := NewDocument()
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{ByteLength: 1 << 31})
	err := Save(doc, filepath.Join(t.TempDir(), "big.glb"))
	if !errors.Is(err, ErrOutputTooLarge) {
		t.Errorf("Save of 2GiB buffers=%v; expected ErrOutputTooLarge", err)
	}
}

func TestBuffersSizeFollowsData(t *testing.T) {
	doc := NewDocument()
	acc := doc.Accessors[WriteScalars(doc, []float32{0.5, -1, 3})]
	if acc.Min[0] != -1 || acc.Max[0] != 3 {
		t.Errorf("bounds min=%v max=%v; expected [-1] [3]", acc.Min, acc.Max)
	}
	if size := BuffersSize(doc); size == 0 || size != int64(len(doc.Buffers[0].Data)) {
		t.Errorf("BuffersSize=%d; expected %d", size, len(doc.Buffers[0].Data))
	}
}
