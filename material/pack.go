package material

import (
	"image"
	"image/color"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/mogaika/s2gltf/logger"
)

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func scaleTo(src *image.NRGBA, w, h int) *image.NRGBA {
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Packer collects single channels of several images into one.
type Packer struct {
	Default color.NRGBA

	img    *image.NRGBA
	packed map[byte]bool
}

func NewPacker(def color.NRGBA) *Packer {
	return &Packer{Default: def, packed: make(map[byte]bool)}
}

// Collect copies channel srcCh of src into channel dstCh. Result grows to the
// largest source, smaller images are scaled up.
func (p *Packer) Collect(src image.Image, srcCh, dstCh byte, invert bool, name string) {
	if p.packed[dstCh] {
		logger.Warn("Channel already packed", zap.String("channel", string(channelLetters[dstCh])), zap.String("texture", name))
	}
	p.packed[dstCh] = true

	s := toNRGBA(src)
	w, h := s.Rect.Dx(), s.Rect.Dy()

	if p.img == nil {
		p.img = image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(p.img, p.img.Bounds(), image.NewUniform(p.Default), image.Point{}, draw.Src)
	}
	pw, ph := p.img.Rect.Dx(), p.img.Rect.Dy()
	if pw < w || ph < h {
		p.img = scaleTo(p.img, max(pw, w), max(ph, h))
		pw, ph = p.img.Rect.Dx(), p.img.Rect.Dy()
	}
	s = scaleTo(s, pw, ph)

	for i := 0; i < len(p.img.Pix); i += 4 {
		v := s.Pix[i+int(srcCh)]
		if invert {
			v = 255 - v
		}
		p.img.Pix[i+int(dstCh)] = v
	}
}

// Image returns packed result, 1x1 default color when nothing was collected.
func (p *Packer) Image() *image.NRGBA {
	if p.img == nil {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, p.Default)
		return img
	}
	return p.img
}

// PackChannels builds combined texture of req, images are looked up by source path.
// Sources without image keep default color.
func PackChannels(req *ORMRequest, images func(path string) image.Image) *image.NRGBA {
	p := NewPacker(req.Default)
	for i := range req.Sources {
		s := &req.Sources[i]
		img := images(s.Path)
		if img == nil {
			continue
		}
		p.Collect(img, s.SourceChannel(), s.DestChannel(), s.Invert, s.Path)
	}
	return p.Image()
}

// ExtractChannels returns image containing only ch. One channel becomes grayscale,
// RG and RGB get opaque alpha, swizzled mappings like AG are moved into RGBA order.
func ExtractChannels(src image.Image, ch Channel) image.Image {
	s := toNRGBA(src)
	switch {
	case ch.Count() == 1:
		gray := image.NewGray(s.Rect)
		c := int(ch.First())
		for i := 0; i < len(gray.Pix); i++ {
			gray.Pix[i] = s.Pix[i*4+c]
		}
		return gray
	case ch == ChannelRGBA:
		return s
	}

	dst := image.NewNRGBA(s.Rect)
	if ch == ChannelRG || ch == ChannelRGB {
		copy(dst.Pix, s.Pix)
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 255
		}
		return dst
	}

	chs := ch.Channels()
	for i := 0; i < len(dst.Pix); i += 4 {
		for j, c := range chs {
			dst.Pix[i+j] = s.Pix[i+int(c)]
		}
		if len(chs) < 4 {
			dst.Pix[i+3] = 255
		}
	}
	return dst
}
