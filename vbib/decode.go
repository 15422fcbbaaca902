package vbib

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
)

// Stream is one decoded attribute with Components floats per vertex.
type Stream struct {
	Name       string
	Components int
	Data       []float32
}

type DecodedBuffer struct {
	VertexCount int
	Streams     []Stream
	Normals     [][3]float32
	Tangents    [][4]float32

	// JOINTS_n and WEIGHTS_n sets, empty for unskinned buffers.
	Joints  [][][4]uint16
	Weights [][][4]float32
}

func (db *DecodedBuffer) Stream(name string) *Stream {
	for i := range db.Streams {
		if db.Streams[i].Name == name {
			return &db.Streams[i]
		}
	}
	return nil
}

// Decode reads every attribute of vb. Blend attributes are read only when
// boneWeightCount is positive, joints are remapped through remap.
func Decode(vb *resource.VertexBuffer, boneWeightCount int, remap []int) (*DecodedBuffer, error) {
	db := &DecodedBuffer{VertexCount: vb.ElementCount}
	if vb.ElementCount == 0 {
		return db, nil
	}

	namer := NewAccessorNamer()
	var joints []uint16
	var weights []float32
	jointWidth, weightWidth := 0, 0

	for _, attr := range SortedAttributes(vb) {
		attr := attr
		if err := CheckShape(&attr); err != nil {
			return nil, err
		}

		if IsBlendSemantic(attr.SemanticName) {
			if boneWeightCount <= 0 {
				continue
			}
			var err error
			if attr.SemanticName == SemanticBlendIndices {
				if joints != nil {
					return nil, errors.Wrapf(ErrUnsupportedAttributeShape, "more than one %s", attr.SemanticName)
				}
				joints, jointWidth, err = ReadBlendIndices(vb, &attr, remap)
			} else {
				if weights != nil {
					return nil, errors.Wrapf(ErrUnsupportedAttributeShape, "more than one %s", attr.SemanticName)
				}
				weights, weightWidth, err = ReadBlendWeights(vb, &attr)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read %s", attr.SemanticName)
			}
			continue
		}

		fi, _ := GetFormatInfo(attr.Format)
		name, err := namer.Name(&attr, fi.Components)
		if err != nil {
			return nil, err
		}

		if attr.SemanticName == SemanticNormal {
			normals, tangents, err := ReadNormalTangent(vb, &attr)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read %s", attr.SemanticName)
			}
			if fixed := FixZeroLengthNormals(normals); fixed != 0 {
				logger.Debug("Replaced non unit normals", zap.Int("count", fixed))
			}
			db.Normals = normals
			if tangents != nil {
				FixZeroLengthTangents(tangents)
				db.Tangents = tangents
			}
			continue
		}

		flat, components, err := ReadAttribute(vb, &attr)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %s", attr.SemanticName)
		}
		if name == SemanticTangent {
			db.Tangents = ToVec4(flat)
			FixZeroLengthTangents(db.Tangents)
			continue
		}
		db.Streams = append(db.Streams, Stream{Name: name, Components: components, Data: flat})
	}

	if joints != nil {
		if err := db.setSkin(joints, jointWidth, weights, weightWidth, boneWeightCount); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *DecodedBuffer) setSkin(joints []uint16, jointWidth int, weights []float32, weightWidth int, boneWeightCount int) error {
	if weights == nil {
		weights = UniformWeights(db.VertexCount, jointWidth, boneWeightCount)
		weightWidth = jointWidth
	}
	if weightWidth != jointWidth {
		// Four joint slots with two weights, or eight slots with packed weights
		expanded := make([]float32, db.VertexCount*jointWidth)
		for i := 0; i < db.VertexCount; i++ {
			n := weightWidth
			if n > jointWidth {
				n = jointWidth
			}
			copy(expanded[i*jointWidth:i*jointWidth+n], weights[i*weightWidth:])
		}
		weights = expanded
	}

	if err := CompactJoints(joints, weights, jointWidth); err != nil {
		return err
	}
	NormalizeWeights(weights, jointWidth)

	db.Joints = SplitJoints(joints, jointWidth)
	db.Weights = SplitWeights(weights, jointWidth)
	return nil
}
