package exporter

import (
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/material"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

type exportedMaterial struct {
	Index uint32
}

// material returns glTF material of material file with draw call tint, nil when
// the material can not be loaded.
func (r *run) material(matPath string, tint [4]float32) *exportedMaterial {
	key := fmt.Sprintf("material:%s:%v", strings.ToLower(matPath), tint)
	em, _ := r.cacher.GetCachedOr(key, func() interface{} {
		return r.exportMaterial(matPath, tint)
	}).(*exportedMaterial)
	return em
}

func (r *run) exportMaterial(matPath string, tint [4]float32) *exportedMaterial {
	res, err := r.Loader.LoadFileCompiled(matPath)
	if err != nil || res == nil {
		logger.Warn("Material not found", zap.String("material", matPath), zap.Error(err))
		return nil
	}
	mat, err := res.Material()
	if err != nil {
		logger.Warn("Failed to parse material", zap.String("material", matPath), zap.Error(err))
		return nil
	}

	name := resource.BaseName(matPath)
	if tint != [4]float32{1, 1, 1, 1} {
		name = fmt.Sprintf("%s_tint%d", name, len(r.doc.Materials))
	}
	gm := material.NewGLTFMaterial(r.doc, mat, name, tint)

	plan := r.planner.Plan(mat)
	utils.LogDump("Material plan "+matPath, plan)
	for i := range plan.Textures {
		r.textures.remap(gm, plan.Textures[i])
	}
	if plan.ORM != nil {
		r.textures.orm(gm, plan.ORM)
	}

	r.doc.Materials = append(r.doc.Materials, gm)
	return &exportedMaterial{Index: uint32(len(r.doc.Materials) - 1)}
}

func textureBaseName(texPath string) string {
	base := path.Base(strings.ReplaceAll(texPath, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// remap queues export of one source texture restricted to the channels its instruction uses.
func (q *textureQueue) remap(gm *gltf.Material, tr material.TextureRemap) {
	ch := tr.OutputChannels()
	name := textureBaseName(tr.Path)
	if ch != material.ChannelRGBA && ch != material.ChannelRGB {
		name += "_" + strings.ToLower(ch.String())
	}

	texPath := tr.Path
	job := q.submit(name, func(bc *BitmapCache) (image.Image, error) {
		img, err := bc.Get(texPath)
		if err != nil || img == nil {
			return nil, err
		}
		if ch == material.ChannelRGBA {
			return img, nil
		}
		return material.ExtractChannels(img, ch), nil
	})
	job.bindings = append(job.bindings, textureBinding{material: gm, target: tr.Target})
}

// orm queues packing of combined occlusion/roughness/metalness texture.
func (q *textureQueue) orm(gm *gltf.Material, req *material.ORMRequest) {
	name := strings.TrimSuffix(req.FileName, path.Ext(req.FileName))
	job := q.submit(name, func(bc *BitmapCache) (image.Image, error) {
		return material.PackChannels(req, func(p string) image.Image {
			img, err := bc.Get(p)
			if err != nil {
				logger.Warn("Failed to load packed texture source", zap.String("texture", p), zap.Error(err))
			}
			return img
		}), nil
	})
	job.bindings = append(job.bindings, textureBinding{material: gm, orm: req})
}
