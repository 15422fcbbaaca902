package phys

import (
	"image"
	"image/color"

	"github.com/mogaika/s2gltf/utils"
)

const TextureSize = 256

const textureCell = 32

// SurfaceTexture draws checker with colors derived from name hash, so equal
// surfaces look equal across exports.
func SurfaceTexture(name string) *image.RGBA {
	h := utils.MurmurHash2([]byte(name))
	light := color.RGBA{128 + byte(h)>>1, 128 + byte(h>>8)>>1, 128 + byte(h>>16)>>1, 255}
	dark := color.RGBA{light.R / 2, light.G / 2, light.B / 2, 255}

	img := image.NewRGBA(image.Rect(0, 0, TextureSize, TextureSize))
	for y := 0; y < TextureSize; y++ {
		for x := 0; x < TextureSize; x++ {
			c := light
			if (x/textureCell+y/textureCell)%2 == 1 {
				c = dark
			}
			if x%textureCell == 0 || y%textureCell == 0 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
