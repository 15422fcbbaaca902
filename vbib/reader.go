package vbib

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

func attributeView(vb *resource.VertexBuffer, attr *resource.AttributeDescriptor, size int) (*utils.BufStack, error) {
	bs := utils.NewBufStack("vertexbuffer", vb.Data).SetName(attr.SemanticName)
	if vb.ElementCount == 0 {
		return bs, nil
	}
	last := (vb.ElementCount-1)*vb.ElementSize + attr.Offset
	if attr.Offset < 0 || attr.Offset+size > vb.ElementSize || !bs.Fits(last, size) {
		return nil, errors.Errorf("attribute %s at offset %d size %d does not fit %s", attr.SemanticName, attr.Offset, size, bs)
	}
	return bs, nil
}

// ReadAttribute decodes every element of attr into flat float components.
func ReadAttribute(vb *resource.VertexBuffer, attr *resource.AttributeDescriptor) ([]float32, int, error) {
	fi, err := GetFormatInfo(attr.Format)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "attribute %s", attr.SemanticName)
	}
	bs, err := attributeView(vb, attr, fi.Size())
	if err != nil {
		return nil, 0, err
	}

	n := fi.Components
	result := make([]float32, vb.ElementCount*n)
	for i := 0; i < vb.ElementCount; i++ {
		off := i*vb.ElementSize + attr.Offset
		out := result[i*n : i*n+n]
		for c := 0; c < n; c++ {
			co := off + c*fi.ComponentSize
			switch attr.Format {
			case R32_FLOAT, R32G32_FLOAT, R32G32B32_FLOAT, R32G32B32A32_FLOAT:
				out[c] = bs.LF(co)
			case R16G16_FLOAT, R16G16B16A16_FLOAT:
				out[c] = float16.Frombits(bs.LU16(co)).Float32()
			case R16G16_UNORM, R16G16B16A16_UNORM:
				out[c] = float32(bs.LU16(co)) / 65535
			case R16G16_SNORM:
				out[c] = snorm(float32(bs.LI16(co)) / 32767)
			case R8G8B8A8_UNORM:
				out[c] = float32(bs.Byte(co)) / 255
			case R8G8B8A8_SNORM:
				out[c] = snorm(float32(int8(bs.Byte(co))) / 127)
			case R8G8B8A8_UINT:
				out[c] = float32(bs.Byte(co))
			case R16G16_SINT, R16G16B16A16_SINT:
				out[c] = float32(bs.LI16(co))
			case R16G16B16A16_UINT:
				out[c] = float32(bs.LU16(co))
			case R32_UINT:
				out[c] = float32(bs.LU32(co))
			case R32G32B32A32_SINT:
				out[c] = float32(bs.LI32(co))
			default:
				return nil, 0, errors.Wrapf(ErrUnsupportedFormat, "attribute %s: %q", attr.SemanticName, attr.Format)
			}
		}
	}
	return result, n, nil
}

func snorm(f float32) float32 {
	if f < -1 {
		return -1
	}
	return f
}

func ToVec2(flat []float32) [][2]float32 {
	result := make([][2]float32, len(flat)/2)
	for i := range result {
		copy(result[i][:], flat[i*2:])
	}
	return result
}

func ToVec3(flat []float32) [][3]float32 {
	result := make([][3]float32, len(flat)/3)
	for i := range result {
		copy(result[i][:], flat[i*3:])
	}
	return result
}

func ToVec4(flat []float32) [][4]float32 {
	result := make([][4]float32, len(flat)/4)
	for i := range result {
		copy(result[i][:], flat[i*4:])
	}
	return result
}

// ReadNormalTangent decodes plain or packed normals. Tangents are nil for plain normals.
func ReadNormalTangent(vb *resource.VertexBuffer, attr *resource.AttributeDescriptor) ([][3]float32, [][4]float32, error) {
	switch attr.Format {
	case R32G32B32_FLOAT:
		flat, _, err := ReadAttribute(vb, attr)
		if err != nil {
			return nil, nil, err
		}
		return ToVec3(flat), nil, nil
	case R32_UINT:
		bs, err := attributeView(vb, attr, 4)
		if err != nil {
			return nil, nil, err
		}
		normals := make([][3]float32, vb.ElementCount)
		tangents := make([][4]float32, vb.ElementCount)
		for i := range normals {
			n, t := DecompressNormalTangentV2(bs.LU32(i*vb.ElementSize + attr.Offset))
			normals[i], tangents[i] = n, t
		}
		return normals, tangents, nil
	case R8G8B8A8_UNORM:
		bs, err := attributeView(vb, attr, 4)
		if err != nil {
			return nil, nil, err
		}
		normals := make([][3]float32, vb.ElementCount)
		tangents := make([][4]float32, vb.ElementCount)
		for i := range normals {
			off := i*vb.ElementSize + attr.Offset
			var packed [4]byte
			copy(packed[:], bs.Slice(off, 4))
			n, t := DecompressNormalTangent(packed)
			normals[i], tangents[i] = n, t
		}
		return normals, tangents, nil
	}
	return nil, nil, errors.Wrapf(ErrUnsupportedAttributeShape, "packed normal format %q", attr.Format)
}

// JointsPerVertex returns how many joint slots a blend index format carries.
func JointsPerVertex(format string) int {
	switch format {
	case R32G32B32A32_SINT, R16G16B16A16_UINT:
		return 8
	}
	return 4
}

// ReadBlendIndices returns width joint slots per vertex, remapped through remap when given.
func ReadBlendIndices(vb *resource.VertexBuffer, attr *resource.AttributeDescriptor, remap []int) ([]uint16, int, error) {
	fi, err := GetFormatInfo(attr.Format)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "attribute %s", attr.SemanticName)
	}
	bs, err := attributeView(vb, attr, fi.Size())
	if err != nil {
		return nil, 0, err
	}

	width := JointsPerVertex(attr.Format)
	joints := make([]uint16, vb.ElementCount*width)
	for i := 0; i < vb.ElementCount; i++ {
		off := i*vb.ElementSize + attr.Offset
		out := joints[i*width : i*width+width]
		switch attr.Format {
		case R16G16_SINT:
			// Two influences, trailing slots repeat the second joint
			out[0] = bs.LU16(off)
			out[1] = bs.LU16(off + 2)
			out[2] = out[1]
			out[3] = out[1]
		case R16G16B16A16_SINT, R32G32B32A32_SINT:
			for j := range out {
				out[j] = bs.LU16(off + j*2)
			}
		case R8G8B8A8_UINT, R16G16B16A16_UINT:
			for j := range out {
				out[j] = uint16(bs.Byte(off + j))
			}
		default:
			return nil, 0, errors.Wrapf(ErrUnsupportedFormat, "blend indices %q", attr.Format)
		}
	}

	if remap != nil {
		for i, j := range joints {
			if int(j) >= len(remap) {
				return nil, 0, errors.Errorf("joint slot %d is outside remap table of %d", j, len(remap))
			}
			joints[i] = uint16(remap[j])
		}
	}
	return joints, width, nil
}

// ReadBlendWeights returns width weights per vertex.
func ReadBlendWeights(vb *resource.VertexBuffer, attr *resource.AttributeDescriptor) ([]float32, int, error) {
	fi, err := GetFormatInfo(attr.Format)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "attribute %s", attr.SemanticName)
	}
	bs, err := attributeView(vb, attr, fi.Size())
	if err != nil {
		return nil, 0, err
	}

	switch attr.Format {
	case R8G8B8A8_UNORM, R16G16B16A16_UNORM:
		// Both store one byte per weight
		width := fi.Size()
		weights := make([]float32, vb.ElementCount*width)
		for i := 0; i < vb.ElementCount; i++ {
			off := i*vb.ElementSize + attr.Offset
			for j := 0; j < width; j++ {
				weights[i*width+j] = float32(bs.Byte(off+j)) / 255
			}
		}
		return weights, width, nil
	case R16G16_UNORM:
		weights := make([]float32, vb.ElementCount*4)
		for i := 0; i < vb.ElementCount; i++ {
			off := i*vb.ElementSize + attr.Offset
			weights[i*4] = float32(bs.LU16(off)) / 65535
			weights[i*4+1] = float32(bs.LU16(off+2)) / 65535
		}
		return weights, 4, nil
	case R32G32B32A32_FLOAT:
		flat, _, err := ReadAttribute(vb, attr)
		return flat, 4, err
	}
	return nil, 0, errors.Wrapf(ErrUnsupportedAttributeShape, "blend weights %q", attr.Format)
}

// ResolveIndices reads IndexCount indices from StartIndex and offsets them by BaseVertex.
func ResolveIndices(ib *resource.IndexBuffer, dc *resource.DrawCall) ([]uint32, error) {
	if dc.PrimitiveType != resource.PrimitiveTriangles {
		return nil, errors.Wrapf(ErrUnsupportedTopology, "%q", dc.PrimitiveType)
	}
	if ib.ElementSize != 2 && ib.ElementSize != 4 {
		return nil, errors.Wrapf(ErrUnsupportedIndexSize, "%d bytes", ib.ElementSize)
	}
	bs := utils.NewBufStack("indexbuffer", ib.Data)
	if dc.StartIndex < 0 || dc.IndexCount < 0 || dc.StartIndex+dc.IndexCount > ib.ElementCount ||
		!bs.Fits(dc.StartIndex*ib.ElementSize, dc.IndexCount*ib.ElementSize) {
		return nil, errors.Errorf("indices %d..%d outside buffer of %d", dc.StartIndex, dc.StartIndex+dc.IndexCount, ib.ElementCount)
	}

	indices := make([]uint32, dc.IndexCount)
	for i := range indices {
		off := (dc.StartIndex + i) * ib.ElementSize
		if ib.ElementSize == 2 {
			indices[i] = uint32(bs.LU16(off)) + uint32(dc.BaseVertex)
		} else {
			indices[i] = bs.LU32(off) + uint32(dc.BaseVertex)
		}
	}
	return indices, nil
}
