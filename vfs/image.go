package vfs

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/ftrvxmtrx/tga"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/mogaika/s2gltf/resource"
)

// DecodeImage decodes png, jpeg, bmp or webp by signature, anything else is tried as tga.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}
	if err != image.ErrFormat {
		return nil, format, errors.Wrapf(err, "Failed to decode %s image", format)
	}
	img, err = tga.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(err, "Unknown image format")
	}
	return img, "tga", nil
}

// LoadImage loads compiled texture p and decodes it. Missing texture gives nil image.
func LoadImage(l Loader, p string) (image.Image, error) {
	r, err := l.LoadFileCompiled(p)
	if err != nil || r == nil {
		return nil, err
	}
	if r.Kind != resource.KindTexture {
		return nil, errors.Wrapf(resource.ErrWrongKind, "%q is not a texture", p)
	}
	img, _, err := DecodeImage(r.Raw)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %q", p)
	}
	return img, nil
}
