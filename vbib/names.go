package vbib

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/resource"
)

// Semantics with special handling.
const (
	SemanticPosition     = "POSITION"
	SemanticNormal       = "NORMAL"
	SemanticTangent      = "TANGENT"
	SemanticTexCoord     = "TEXCOORD"
	SemanticColor        = "COLOR"
	SemanticBlendIndices = "BLENDINDICES"
	SemanticBlendWeight  = "BLENDWEIGHT"
	SemanticBlendWeights = "BLENDWEIGHTS"
)

func IsBlendSemantic(semantic string) bool {
	switch semantic {
	case SemanticBlendIndices, SemanticBlendWeight, SemanticBlendWeights:
		return true
	}
	return false
}

// AccessorNamer hands out glTF attribute names for the attributes of one vertex buffer.
type AccessorNamer struct {
	counters map[string]int
}

func NewAccessorNamer() *AccessorNamer {
	return &AccessorNamer{counters: make(map[string]int)}
}

// Name returns attribute name for attr with components elements.
// Scalars never get a reserved name, unknown semantics get an underscore prefix.
func (an *AccessorNamer) Name(attr *resource.AttributeDescriptor, components int) (string, error) {
	var name string
	switch attr.SemanticName {
	case SemanticTexCoord:
		if components == 2 {
			name = SemanticTexCoord
		} else {
			name = "_" + SemanticTexCoord
		}
	case SemanticColor, SemanticPosition, SemanticNormal, SemanticTangent:
		name = attr.SemanticName
	default:
		name = "_" + attr.SemanticName
	}

	if components == 1 && name[0] != '_' {
		name = "_" + name
	}

	counter := an.counters[name]
	an.counters[name] = counter + 1

	switch {
	case attr.SemanticIndex > 0 && name[0] == '_':
		name = fmt.Sprintf("%s_%d", name, attr.SemanticIndex)
	case attr.SemanticName == SemanticTexCoord || attr.SemanticName == SemanticColor:
		name = fmt.Sprintf("%s_%d", name, counter)
	case counter > 0:
		return "", errors.Wrapf(ErrUnsupportedAttributeShape, "attribute %s appears more than once", attr.SemanticName)
	}
	return name, nil
}

// CheckShape validates component count of attr against its semantic.
func CheckShape(attr *resource.AttributeDescriptor) error {
	fi, err := GetFormatInfo(attr.Format)
	if err != nil {
		return err
	}
	ok := true
	switch attr.SemanticName {
	case SemanticPosition:
		ok = fi.Components == 3
	case SemanticNormal:
		ok = fi.Components == 3 || attr.Format == R8G8B8A8_UNORM || attr.Format == R32_UINT
	case SemanticTangent:
		ok = fi.Components == 4
	case SemanticBlendWeight, SemanticBlendWeights:
		ok = fi.Components == 4 || fi.Components == 2
	case SemanticBlendIndices:
		ok = fi.Components == 4 || fi.Components == 2
	}
	if !ok {
		return errors.Wrapf(ErrUnsupportedAttributeShape, "%s with format %s (%d components)",
			attr.SemanticName, attr.Format, fi.Components)
	}
	return nil
}

// SortedAttributes orders attributes by semantic index, then by offset.
func SortedAttributes(vb *resource.VertexBuffer) []resource.AttributeDescriptor {
	attrs := make([]resource.AttributeDescriptor, len(vb.Attributes))
	copy(attrs, vb.Attributes)
	sort.SliceStable(attrs, func(i, j int) bool {
		if attrs[i].SemanticIndex != attrs[j].SemanticIndex {
			return attrs[i].SemanticIndex < attrs[j].SemanticIndex
		}
		return attrs[i].Offset < attrs[j].Offset
	})
	return attrs
}
