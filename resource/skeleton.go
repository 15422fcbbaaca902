package resource

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type Bone struct {
	Name     string
	Parent   int
	Position mgl32.Vec3
	Rotation mgl32.Quat

	// Joint slots of the vertex streams mapped to this bone.
	SkinIndices []int
}

type Skeleton struct {
	Bones []Bone
}

func (s *Skeleton) Roots() []int {
	roots := make([]int, 0, 1)
	for i := range s.Bones {
		if s.Bones[i].Parent == -1 {
			roots = append(roots, i)
		}
	}
	return roots
}

func (s *Skeleton) Children(bone int) []int {
	var children []int
	for i := range s.Bones {
		if s.Bones[i].Parent == bone {
			children = append(children, i)
		}
	}
	return children
}

func (s *Skeleton) BoneByName(name string) int {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

func (b *Bone) LocalMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(b.Position[0], b.Position[1], b.Position[2]).Mul4(b.Rotation.Normalize().Mat4())
}

// BindMatrices returns model space bind transform of every bone.
func (s *Skeleton) BindMatrices() []mgl32.Mat4 {
	result := make([]mgl32.Mat4, len(s.Bones))
	done := make([]bool, len(s.Bones))
	var resolve func(i int) mgl32.Mat4
	resolve = func(i int) mgl32.Mat4 {
		if done[i] {
			return result[i]
		}
		m := s.Bones[i].LocalMatrix()
		if p := s.Bones[i].Parent; p >= 0 {
			m = resolve(p).Mul4(m)
		}
		result[i] = m
		done[i] = true
		return m
	}
	for i := range s.Bones {
		resolve(i)
	}
	return result
}

// ParseSkeleton reads m_modelSkeleton. remapTable lists bone index of every joint slot.
func ParseSkeleton(r *kv.Record, remapTable []int) (*Skeleton, error) {
	names, err := r.Strings("m_boneName")
	if err != nil {
		return nil, err
	}
	parents, err := r.Ints("m_nParent")
	if err != nil {
		return nil, err
	}
	positions, err := r.Array("m_bonePosParent")
	if err != nil {
		return nil, err
	}
	rotations, err := r.Array("m_boneRotParent")
	if err != nil {
		return nil, err
	}
	if len(parents) != len(names) || len(positions) != len(names) || len(rotations) != len(names) {
		return nil, errors.Errorf("bone arrays differ in size: %d names, %d parents, %d positions, %d rotations",
			len(names), len(parents), len(positions), len(rotations))
	}

	s := &Skeleton{Bones: make([]Bone, len(names))}
	for i, name := range names {
		parent := int(parents[i])
		if parent < -1 || parent >= i {
			return nil, errors.Errorf("bone %q has invalid parent %d", name, parent)
		}

		holder := kv.New().Set("p", positions[i]).Set("r", rotations[i])
		pos, err := holder.Vec3("p")
		if err != nil {
			return nil, errors.Wrapf(err, "bone %q", name)
		}
		rot, err := holder.Quat("r")
		if err != nil {
			return nil, errors.Wrapf(err, "bone %q", name)
		}

		s.Bones[i] = Bone{
			Name:     name,
			Parent:   parent,
			Position: pos,
			Rotation: rot,
		}
	}

	for slot, bone := range remapTable {
		if bone >= 0 && bone < len(s.Bones) {
			s.Bones[bone].SkinIndices = append(s.Bones[bone].SkinIndices, slot)
		}
	}

	return s, nil
}
