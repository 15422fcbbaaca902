package exporter

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/anim"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils/gltfutils"
)

type exportedSkeleton struct {
	Skeleton   *resource.Skeleton
	JointNodes []uint32
	Skin       uint32
}

// exportSkeleton builds joint node hierarchy under parent and a skin over it.
func (r *run) exportSkeleton(name string, skel *resource.Skeleton, parent uint32) (*exportedSkeleton, error) {
	es := &exportedSkeleton{
		Skeleton:   skel,
		JointNodes: make([]uint32, len(skel.Bones)),
	}
	visited := make([]bool, len(skel.Bones))

	var add func(parent uint32, bone int)
	add = func(parent uint32, bone int) {
		visited[bone] = true
		b := &skel.Bones[bone]
		q := b.Rotation.Normalize()
		index := r.addChild(parent, &gltf.Node{
			Name:        b.Name,
			Translation: b.Position,
			Rotation:    [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		})
		es.JointNodes[bone] = index
		for _, child := range skel.Children(bone) {
			add(index, child)
		}
	}
	roots := skel.Roots()
	for _, root := range roots {
		add(parent, root)
	}
	for i, ok := range visited {
		if !ok {
			return nil, errors.Errorf("bone %d %q is not reachable from skeleton roots", i, skel.Bones[i].Name)
		}
	}

	binds := skel.BindMatrices()
	inverse := make([]mgl32.Mat4, len(binds))
	for i, m := range binds {
		inverse[i] = m.Inv()
	}

	skin := &gltf.Skin{
		Name:                name,
		Joints:              es.JointNodes,
		InverseBindMatrices: gltf.Index(gltfutils.WriteMat4(r.doc, inverse)),
	}
	if len(roots) == 1 {
		skin.Skeleton = gltf.Index(es.JointNodes[roots[0]])
	}
	r.doc.Skins = append(r.doc.Skins, skin)
	es.Skin = uint32(len(r.doc.Skins) - 1)
	return es, nil
}

// exportAnimations writes every clip of model animation files. Missing or
// broken animation files are skipped.
func (r *run) exportAnimations(model *resource.Model, es *exportedSkeleton, morphs []anim.MorphTarget) error {
	cw, err := anim.NewClipWriter(es.Skeleton, es.JointNodes)
	if err != nil {
		return err
	}
	for _, mt := range morphs {
		cw.AddMorphTarget(mt)
	}

	index := 0
	for i, p := range model.Animations {
		if err := cancelled(r.ctx); err != nil {
			return err
		}
		r.progress(float32(i)/float32(len(model.Animations)), "Animation %s", p)

		res, err := r.Loader.LoadFileCompiled(p)
		if err != nil {
			return errors.Wrapf(err, "Failed to load animation %q", p)
		}
		if res == nil {
			logger.Warn("Animation not found", zap.String("model", model.Name), zap.String("animation", p))
			continue
		}
		clips, err := res.Animations()
		if err != nil {
			logger.Warn("Failed to parse animation", zap.String("animation", p), zap.Error(err))
			continue
		}
		for _, clip := range clips {
			if _, err := cw.Write(r.doc, clip, index); err != nil {
				logger.Warn("Failed to write clip", zap.String("animation", p), zap.String("clip", clip.Name), zap.Error(err))
				continue
			}
			index++
		}
	}
	return nil
}
