// Package resource holds the decoded data model of compiled engine resources.
// Every type is built from a kv.Record produced by the container parser.
package resource

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type Kind string

const (
	KindMesh      Kind = "vmesh"
	KindModel     Kind = "vmdl"
	KindAnimation Kind = "vanim"
	KindPhysics   Kind = "vphys"
	KindMaterial  Kind = "vmat"
	KindTexture   Kind = "vtex"
	KindShader    Kind = "vfx"
	KindUnknown   Kind = ""
)

const CompiledSuffix = "_c"

var ErrWrongKind = errors.New("wrong resource kind")

// Resource is a loaded file. Data is nil for texture resources, their payload
// is the raw image kept in Raw.
type Resource struct {
	Path string
	Kind Kind
	Data *kv.Record
	Raw  []byte
}

// KindFromPath strips the compiled suffix and returns the resource kind by extension.
func KindFromPath(p string) Kind {
	ext := strings.ToLower(path.Ext(p))
	ext = strings.TrimSuffix(ext, CompiledSuffix)
	switch Kind(strings.TrimPrefix(ext, ".")) {
	case KindMesh:
		return KindMesh
	case KindModel:
		return KindModel
	case KindAnimation:
		return KindAnimation
	case KindPhysics:
		return KindPhysics
	case KindMaterial:
		return KindMaterial
	case KindTexture:
		return KindTexture
	case KindShader:
		return KindShader
	}
	return KindUnknown
}

// Name returns file name without directories and extensions.
func (r *Resource) Name() string {
	return BaseName(r.Path)
}

func BaseName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func (r *Resource) expect(kind Kind) error {
	if r.Kind != kind {
		return errors.Wrapf(ErrWrongKind, "%q is %q, expected %q", r.Path, r.Kind, kind)
	}
	if r.Data == nil {
		return errors.Errorf("%q has no data block", r.Path)
	}
	return nil
}

func (r *Resource) Mesh() (*Mesh, error) {
	if err := r.expect(KindMesh); err != nil {
		return nil, err
	}
	m, err := ParseMesh(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse mesh %q", r.Path)
	}
	m.Name = r.Name()
	return m, nil
}

func (r *Resource) Model() (*Model, error) {
	if err := r.expect(KindModel); err != nil {
		return nil, err
	}
	m, err := ParseModel(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse model %q", r.Path)
	}
	if m.Name == "" {
		m.Name = r.Name()
	}
	return m, nil
}

func (r *Resource) Animations() ([]*AnimationClip, error) {
	if err := r.expect(KindAnimation); err != nil {
		return nil, err
	}
	clips, err := ParseAnimations(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse animation %q", r.Path)
	}
	return clips, nil
}

func (r *Resource) Physics() (*PhysAggregate, error) {
	if err := r.expect(KindPhysics); err != nil {
		return nil, err
	}
	p, err := ParsePhysAggregate(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse physics %q", r.Path)
	}
	return p, nil
}

func (r *Resource) Material() (*Material, error) {
	if err := r.expect(KindMaterial); err != nil {
		return nil, err
	}
	m, err := ParseMaterial(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse material %q", r.Path)
	}
	if m.Name == "" {
		m.Name = r.Path
	}
	return m, nil
}

func (r *Resource) ShaderCollection() (*ShaderCollection, error) {
	if err := r.expect(KindShader); err != nil {
		return nil, err
	}
	s, err := ParseShaderCollection(r.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse shader %q", r.Path)
	}
	if s.Name == "" {
		s.Name = r.Name()
	}
	return s, nil
}
