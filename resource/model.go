package resource

import (
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type ModelMesh struct {
	Index   int
	File    string
	LODMask uint64
}

// InFirstLOD is true for meshes visible at the highest level of detail.
func (mm *ModelMesh) InFirstLOD() bool {
	return mm.LODMask&1 != 0
}

type Model struct {
	Name       string
	Meshes     []ModelMesh
	Skeleton   *Skeleton
	Animations []string
	Physics    string

	remapTable       []int
	remapTableStarts []int
}

// RemapTable returns joint slot to bone index table of mesh with index meshIndex.
func (m *Model) RemapTable(meshIndex int) []int {
	if meshIndex < 0 || meshIndex >= len(m.remapTableStarts) {
		return nil
	}
	start := m.remapTableStarts[meshIndex]
	end := len(m.remapTable)
	if meshIndex+1 < len(m.remapTableStarts) {
		end = m.remapTableStarts[meshIndex+1]
	}
	if start < 0 || start > end || end > len(m.remapTable) {
		return nil
	}
	return m.remapTable[start:end]
}

func intsOf(r *kv.Record, key string) ([]int, error) {
	if !r.Has(key) {
		return nil, nil
	}
	raw, err := r.Ints(key)
	if err != nil {
		return nil, err
	}
	result := make([]int, len(raw))
	for i, v := range raw {
		result[i] = int(v)
	}
	return result, nil
}

func stringsOf(r *kv.Record, key string) ([]string, error) {
	if !r.Has(key) {
		return nil, nil
	}
	return r.Strings(key)
}

func ParseModel(r *kv.Record) (*Model, error) {
	m := &Model{
		Name:    r.StringOr("m_name", ""),
		Physics: r.StringOr("m_refPhysicsData", ""),
	}

	var err error
	if m.remapTable, err = intsOf(r, "m_remappingTable"); err != nil {
		return nil, err
	}
	if m.remapTableStarts, err = intsOf(r, "m_remappingTableStarts"); err != nil {
		return nil, err
	}
	if m.Animations, err = stringsOf(r, "m_refAnimations"); err != nil {
		return nil, err
	}

	files, err := stringsOf(r, "m_refMeshes")
	if err != nil {
		return nil, err
	}
	masks, err := intsOf(r, "m_refLODGroupMasks")
	if err != nil {
		return nil, err
	}
	m.Meshes = make([]ModelMesh, len(files))
	for i, file := range files {
		m.Meshes[i] = ModelMesh{Index: i, File: file, LODMask: 1}
		if i < len(masks) {
			m.Meshes[i].LODMask = uint64(masks[i])
		}
	}

	if r.Has("m_modelSkeleton") {
		sr, err := r.Record("m_modelSkeleton")
		if err != nil {
			return nil, err
		}
		if m.Skeleton, err = ParseSkeleton(sr, m.remapTable); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse skeleton")
		}
		for _, bone := range m.remapTable {
			if bone < 0 || bone >= len(m.Skeleton.Bones) {
				return nil, errors.Errorf("remap table references bone %d of %d", bone, len(m.Skeleton.Bones))
			}
		}
	} else {
		m.Skeleton = &Skeleton{}
	}

	return m, nil
}
