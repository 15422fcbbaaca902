package resource

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type BoneTransform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
}

type Frame struct {
	Bones map[string]BoneTransform
	Flex  []float32
}

// MovementSample is root motion reached at EndFrame. Angle is yaw in degrees.
type MovementSample struct {
	EndFrame int
	Position mgl32.Vec3
	Angle    float32
}

type AnimationClip struct {
	Name       string
	FPS        float32
	FrameCount int
	Frames     []Frame
	Movement   []MovementSample
	FlexNames  []string
}

// MovementAt interpolates root motion at frame between neighbouring samples.
func (a *AnimationClip) MovementAt(frame int) (mgl32.Vec3, float32) {
	if len(a.Movement) == 0 {
		return mgl32.Vec3{}, 0
	}

	idx := len(a.Movement) - 1
	for i := range a.Movement {
		if a.Movement[i].EndFrame > frame {
			idx = i
			break
		}
	}

	var prev MovementSample
	if idx > 0 {
		prev = a.Movement[idx-1]
	}
	cur := a.Movement[idx]

	span := float32(cur.EndFrame - prev.EndFrame)
	t := float32(1)
	if span > 0 {
		t = mgl32.Clamp(float32(frame-prev.EndFrame)/span, 0, 1)
	}
	pos := prev.Position.Add(cur.Position.Sub(prev.Position).Mul(t))
	angle := prev.Angle + (cur.Angle-prev.Angle)*t
	return pos, angle
}

func parseBoneTransform(r *kv.Record) (bt BoneTransform, err error) {
	bt.Rotation = mgl32.QuatIdent()
	bt.Scale = 1
	if r.Has("position") {
		if bt.Position, err = r.Vec3("position"); err != nil {
			return
		}
	}
	if r.Has("rotation") {
		if bt.Rotation, err = r.Quat("rotation"); err != nil {
			return
		}
	}
	if r.Has("scale") {
		if bt.Scale, err = r.Float("scale"); err != nil {
			return
		}
	}
	return bt, nil
}

func parseFrame(r *kv.Record) (Frame, error) {
	f := Frame{Bones: make(map[string]BoneTransform)}
	if r.Has("bones") {
		bones, err := r.Record("bones")
		if err != nil {
			return f, err
		}
		for _, name := range bones.Keys() {
			br, err := bones.Record(name)
			if err != nil {
				return f, err
			}
			if f.Bones[name], err = parseBoneTransform(br); err != nil {
				return f, errors.Wrapf(err, "bone %q", name)
			}
		}
	}
	if r.Has("flex") {
		var err error
		if f.Flex, err = r.Floats("flex"); err != nil {
			return f, err
		}
	}
	return f, nil
}

func ParseAnimationClip(r *kv.Record) (*AnimationClip, error) {
	a := &AnimationClip{
		Name:       r.StringOr("m_name", ""),
		FPS:        r.FloatOr("fps", 0),
		FrameCount: int(r.IntOr("m_nFrameCount", 0)),
	}

	var err error
	if a.FlexNames, err = stringsOf(r, "m_flexNames"); err != nil {
		return nil, err
	}

	if r.Has("m_frames") {
		frs, err := r.Records("m_frames")
		if err != nil {
			return nil, err
		}
		a.Frames = make([]Frame, len(frs))
		for i, fr := range frs {
			if a.Frames[i], err = parseFrame(fr); err != nil {
				return nil, errors.Wrapf(err, "Failed to parse frame %d", i)
			}
		}
	}
	if a.FrameCount > len(a.Frames) {
		return nil, errors.Errorf("clip %q declares %d frames, has %d", a.Name, a.FrameCount, len(a.Frames))
	}

	if r.Has("m_movement") {
		mrs, err := r.Records("m_movement")
		if err != nil {
			return nil, err
		}
		a.Movement = make([]MovementSample, len(mrs))
		for i, mr := range mrs {
			ms := &a.Movement[i]
			ms.EndFrame = int(mr.IntOr("m_nEndFrame", 0))
			ms.Angle = mr.FloatOr("m_flAngle", 0)
			if mr.Has("m_vPosition") {
				if ms.Position, err = mr.Vec3("m_vPosition"); err != nil {
					return nil, errors.Wrapf(err, "movement %d", i)
				}
			}
		}
	}

	return a, nil
}

// ParseAnimations reads a clip list, or a file holding exactly one clip.
func ParseAnimations(r *kv.Record) ([]*AnimationClip, error) {
	if !r.Has("m_animArray") {
		clip, err := ParseAnimationClip(r)
		if err != nil {
			return nil, err
		}
		return []*AnimationClip{clip}, nil
	}

	ars, err := r.Records("m_animArray")
	if err != nil {
		return nil, err
	}
	clips := make([]*AnimationClip, len(ars))
	for i, ar := range ars {
		if clips[i], err = ParseAnimationClip(ar); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse clip %d", i)
		}
	}
	return clips, nil
}
