// Package vbib decodes vertex and index buffers of compiled meshes.
package vbib

import (
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedFormat         = errors.New("unsupported element format")
	ErrUnsupportedAttributeShape = errors.New("unsupported attribute shape")
	ErrUnsupportedIndexSize      = errors.New("unsupported index size")
	ErrUnsupportedTopology       = errors.New("unsupported primitive topology")
)

// Element formats, named like their DXGI counterparts.
const (
	R8G8B8A8_UINT      = "R8G8B8A8_UINT"
	R8G8B8A8_UNORM     = "R8G8B8A8_UNORM"
	R8G8B8A8_SNORM     = "R8G8B8A8_SNORM"
	R16G16_FLOAT       = "R16G16_FLOAT"
	R16G16_SINT        = "R16G16_SINT"
	R16G16_SNORM       = "R16G16_SNORM"
	R16G16_UNORM       = "R16G16_UNORM"
	R16G16B16A16_FLOAT = "R16G16B16A16_FLOAT"
	R16G16B16A16_SINT  = "R16G16B16A16_SINT"
	R16G16B16A16_UINT  = "R16G16B16A16_UINT"
	R16G16B16A16_UNORM = "R16G16B16A16_UNORM"
	R32_FLOAT          = "R32_FLOAT"
	R32_UINT           = "R32_UINT"
	R32G32_FLOAT       = "R32G32_FLOAT"
	R32G32B32_FLOAT    = "R32G32B32_FLOAT"
	R32G32B32A32_FLOAT = "R32G32B32A32_FLOAT"
	R32G32B32A32_SINT  = "R32G32B32A32_SINT"
)

type FormatInfo struct {
	ComponentSize int
	Components    int
}

func (fi FormatInfo) Size() int {
	return fi.ComponentSize * fi.Components
}

var formats = map[string]FormatInfo{
	R8G8B8A8_UINT:      {1, 4},
	R8G8B8A8_UNORM:     {1, 4},
	R8G8B8A8_SNORM:     {1, 4},
	R16G16_FLOAT:       {2, 2},
	R16G16_SINT:        {2, 2},
	R16G16_SNORM:       {2, 2},
	R16G16_UNORM:       {2, 2},
	R16G16B16A16_FLOAT: {2, 4},
	R16G16B16A16_SINT:  {2, 4},
	R16G16B16A16_UINT:  {2, 4},
	R16G16B16A16_UNORM: {2, 4},
	R32_FLOAT:          {4, 1},
	R32_UINT:           {4, 1},
	R32G32_FLOAT:       {4, 2},
	R32G32B32_FLOAT:    {4, 3},
	R32G32B32A32_FLOAT: {4, 4},
	R32G32B32A32_SINT:  {4, 4},
}

func GetFormatInfo(format string) (FormatInfo, error) {
	fi, ok := formats[format]
	if !ok {
		return fi, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
	return fi, nil
}
