package gltfutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const Generator = "s2gltf"

// MaxBufferSize is the first total buffer size that is rejected.
const MaxBufferSize = 1 << 31

var ErrOutputTooLarge = errors.New("output buffers are 2GiB or larger")

// GLTFCacher keeps exported objects of one document by key, so shared
// resources are written only once.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, v interface{}) {
	gc.cache[key] = v
}

func (gc *GLTFCacher) GetCached(key string) (interface{}, bool) {
	v, ok := gc.cache[key]
	return v, ok
}

func (gc *GLTFCacher) GetCachedOr(key string, create func() interface{}) interface{} {
	if v, ok := gc.cache[key]; ok {
		return v
	}
	v := create()
	gc.cache[key] = v
	return v
}

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = Generator
	return doc
}

// AddRootNode appends node and places it into the default scene.
func AddRootNode(doc *gltf.Document, node *gltf.Node) uint32 {
	index := AddNode(doc, node)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, index)
	return index
}

func AddNode(doc *gltf.Document, node *gltf.Node) uint32 {
	doc.Nodes = append(doc.Nodes, node)
	return uint32(len(doc.Nodes) - 1)
}

// WriteScalars writes float scalars, used for animation inputs which require bounds.
func WriteScalars(doc *gltf.Document, data []float32) uint32 {
	index := modeler.WriteAccessor(doc, gltf.TargetNone, data)
	if len(data) != 0 {
		min, max := data[0], data[0]
		for _, v := range data {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		acc := doc.Accessors[index]
		acc.Min, acc.Max = []float32{min}, []float32{max}
	}
	return index
}

func WriteVec3(doc *gltf.Document, data [][3]float32) uint32 {
	return modeler.WriteAccessor(doc, gltf.TargetNone, data)
}

func WriteVec4(doc *gltf.Document, data [][4]float32) uint32 {
	return modeler.WriteAccessor(doc, gltf.TargetNone, data)
}

// WriteMat4 writes column major matrices as MAT4 accessor.
func WriteMat4(doc *gltf.Document, mats []mgl32.Mat4) uint32 {
	columns := make([][4]float32, len(mats)*4)
	for i, m := range mats {
		for c := 0; c < 4; c++ {
			columns[i*4+c] = m.Col(c)
		}
	}
	index := modeler.WriteAccessor(doc, gltf.TargetNone, columns)
	acc := doc.Accessors[index]
	acc.Type = gltf.AccessorMat4
	acc.Count /= 4
	if acc.BufferView != nil {
		if bv := doc.BufferViews[*acc.BufferView]; bv.ByteStride != 0 {
			bv.ByteStride *= 4
		}
	}
	return index
}

// BuffersSize sums declared buffer lengths, modeler keeps them equal to data sizes.
func BuffersSize(doc *gltf.Document) int64 {
	var total int64
	for _, b := range doc.Buffers {
		total += int64(b.ByteLength)
	}
	return total
}

func CheckSize(doc *gltf.Document) error {
	if size := BuffersSize(doc); size >= MaxBufferSize {
		return errors.Wrapf(ErrOutputTooLarge, "%d bytes", size)
	}
	return nil
}

// IsBinaryPath reports whether path asks for .glb output.
func IsBinaryPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".glb")
}

// Save writes doc as .glb or as .gltf with sibling .bin buffer depending on path extension.
func Save(doc *gltf.Document, path string) error {
	if err := CheckSize(doc); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return errors.Wrapf(err, "Failed to create output directory")
	}

	if IsBinaryPath(path) {
		if err := gltf.SaveBinary(doc, path); err != nil {
			return errors.Wrapf(err, "Failed to save %q", path)
		}
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i, b := range doc.Buffers {
		if b.URI == "" && len(b.Data) != 0 {
			if i == 0 {
				b.URI = base + ".bin"
			} else {
				b.URI = fmt.Sprintf("%s_%d.bin", base, i)
			}
		}
	}
	if err := gltf.Save(doc, path); err != nil {
		return errors.Wrapf(err, "Failed to save %q", path)
	}
	return nil
}
