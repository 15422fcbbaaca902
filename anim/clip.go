package anim

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
	"github.com/mogaika/s2gltf/utils/gltfutils"
)

func vec3Equal(a, b mgl32.Vec3) bool { return a == b }
func quatEqual(a, b mgl32.Quat) bool { return a == b }

// MorphTarget is a mesh node animated by the weights channel.
// Names lists flex names in the order of the mesh morph targets.
type MorphTarget struct {
	Node  uint32
	Names []string
}

type boneChannels struct {
	translation *ChannelWriter[mgl32.Vec3]
	rotation    *ChannelWriter[mgl32.Quat]
	scale       *ChannelWriter[mgl32.Vec3]
}

// ClipWriter converts sampled clips into glTF animations over joint nodes.
type ClipWriter struct {
	skeleton   *resource.Skeleton
	jointNodes []uint32
	morphs     []MorphTarget

	bones   []boneChannels
	current []resource.BoneTransform
	weights []*ChannelWriter[[]float32]
}

// NewClipWriter expects one joint node per skeleton bone.
func NewClipWriter(skeleton *resource.Skeleton, jointNodes []uint32) (*ClipWriter, error) {
	if len(jointNodes) != len(skeleton.Bones) {
		return nil, errors.Errorf("%d joint nodes for %d bones", len(jointNodes), len(skeleton.Bones))
	}
	cw := &ClipWriter{
		skeleton:   skeleton,
		jointNodes: jointNodes,
		bones:      make([]boneChannels, len(skeleton.Bones)),
		current:    make([]resource.BoneTransform, len(skeleton.Bones)),
	}
	for i := range cw.bones {
		cw.bones[i] = boneChannels{
			translation: NewChannelWriter(vec3Equal),
			rotation:    NewChannelWriter(quatEqual),
			scale:       NewChannelWriter(vec3Equal),
		}
	}
	return cw, nil
}

func (cw *ClipWriter) AddMorphTarget(mt MorphTarget) {
	cw.morphs = append(cw.morphs, mt)
	cw.weights = append(cw.weights, NewChannelWriter(slices.Equal[[]float32]))
}

func (cw *ClipWriter) reset() {
	for i := range cw.bones {
		cw.bones[i].translation.Reset()
		cw.bones[i].rotation.Reset()
		cw.bones[i].scale.Reset()

		b := &cw.skeleton.Bones[i]
		cw.current[i] = resource.BoneTransform{Position: b.Position, Rotation: b.Rotation, Scale: 1}
	}
	for _, w := range cw.weights {
		w.Reset()
	}
}

func sanitizeScale(s float32) float32 {
	if !utils.IsFinite(s) {
		logger.Debug("Non finite bone scale replaced", zap.Float32("scale", s))
		return 0
	}
	return s
}

func (cw *ClipWriter) submitBones(clip *resource.AnimationClip, frame int, time, prevTime float32) {
	fr := &clip.Frames[frame]
	movePos, moveAngle := clip.MovementAt(frame)
	moveRot := mgl32.QuatRotate(mgl32.DegToRad(moveAngle), mgl32.Vec3{0, 0, 1})
	hasMovement := len(clip.Movement) != 0

	for i := range cw.skeleton.Bones {
		b := &cw.skeleton.Bones[i]
		if bt, ok := fr.Bones[b.Name]; ok {
			cw.current[i] = bt
		}
		bt := cw.current[i]

		pos, rot := bt.Position, bt.Rotation
		if hasMovement && b.Parent == -1 {
			pos = moveRot.Rotate(pos).Add(movePos)
			rot = moveRot.Mul(rot)
		}
		s := sanitizeScale(bt.Scale)

		ch := &cw.bones[i]
		ch.translation.SubmitKeyframe(time, prevTime, pos)
		ch.rotation.SubmitKeyframe(time, prevTime, rot)
		ch.scale.SubmitKeyframe(time, prevTime, mgl32.Vec3{s, s, s})
	}
}

func (cw *ClipWriter) submitFlex(clip *resource.AnimationClip, frame int, time, prevTime float32) {
	fr := &clip.Frames[frame]
	if len(fr.Flex) == 0 {
		return
	}
	for mi, mt := range cw.morphs {
		values := make([]float32, len(mt.Names))
		for j, name := range mt.Names {
			if k := slices.Index(clip.FlexNames, name); k >= 0 && k < len(fr.Flex) {
				values[j] = fr.Flex[k]
			}
		}
		cw.weights[mi].SubmitKeyframe(time, prevTime, values)
	}
}

// Write appends clip to doc as a new animation and returns its index.
func (cw *ClipWriter) Write(doc *gltf.Document, clip *resource.AnimationClip, index int) (uint32, error) {
	cw.reset()

	fps := clip.FPS
	if fps == 0 {
		fps = 1
	}
	if clip.FrameCount > len(clip.Frames) {
		return 0, errors.Errorf("clip %q has %d of %d frames", clip.Name, len(clip.Frames), clip.FrameCount)
	}

	if clip.FrameCount == 0 {
		for i := range cw.skeleton.Bones {
			b := &cw.skeleton.Bones[i]
			cw.bones[i].translation.Add(0, b.Position)
			cw.bones[i].rotation.Add(0, b.Rotation)
			cw.bones[i].scale.Add(0, mgl32.Vec3{1, 1, 1})
		}
	}

	for f := 0; f < clip.FrameCount; f++ {
		time := float32(f) / fps
		prevTime := float32(f-1) / fps
		cw.submitBones(clip, f, time, prevTime)
		cw.submitFlex(clip, f, time, prevTime)
	}

	name := clip.Name
	if name == "" {
		name = fmt.Sprintf("anim_%d", index)
	}
	a := &gltf.Animation{Name: name}

	for i := range cw.bones {
		ch := &cw.bones[i]
		node := cw.jointNodes[i]
		if ch.translation.Len() != 0 {
			addChannel(doc, a, node, gltf.TRSTranslation, ch.translation.Times(),
				gltfutils.WriteVec3(doc, vec3s(ch.translation.Values())))
		}
		if ch.rotation.Len() != 0 {
			addChannel(doc, a, node, gltf.TRSRotation, ch.rotation.Times(),
				gltfutils.WriteVec4(doc, quats(ch.rotation.Values())))
		}
		if ch.scale.Len() != 0 {
			addChannel(doc, a, node, gltf.TRSScale, ch.scale.Times(),
				gltfutils.WriteVec3(doc, vec3s(ch.scale.Values())))
		}
	}

	for mi, mt := range cw.morphs {
		w := cw.weights[mi]
		if w.Len() == 0 || len(mt.Names) == 0 {
			continue
		}
		flat := make([]float32, 0, w.Len()*len(mt.Names))
		for _, v := range w.Values() {
			flat = append(flat, v...)
		}
		addChannel(doc, a, mt.Node, gltf.TRSWeights, w.Times(), gltfutils.WriteScalars(doc, flat))
	}

	if len(a.Channels) == 0 {
		logger.Warn("Animation has no channels", zap.String("clip", name))
	}
	doc.Animations = append(doc.Animations, a)
	return uint32(len(doc.Animations) - 1), nil
}

func addChannel(doc *gltf.Document, a *gltf.Animation, node uint32, path gltf.TRSProperty, times []float32, output uint32) {
	input := gltfutils.WriteScalars(doc, times)
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Interpolation: gltf.InterpolationLinear,
		Output:        gltf.Index(output),
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

func vec3s(in []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// glTF stores rotations as XYZW.
func quats(in []mgl32.Quat) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, q := range in {
		out[i] = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	}
	return out
}

// WriteClips writes every clip through one ClipWriter.
func (cw *ClipWriter) WriteClips(doc *gltf.Document, clips []*resource.AnimationClip) error {
	for i, clip := range clips {
		if _, err := cw.Write(doc, clip, i); err != nil {
			return errors.Wrapf(err, "Failed to write clip %d", i)
		}
	}
	return nil
}
