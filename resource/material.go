package resource

import (
	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/kv"
)

type Material struct {
	Name          string
	ShaderName    string
	IntParams     map[string]int64
	FloatParams   map[string]float32
	VectorParams  map[string][4]float32
	TextureParams map[string]string

	// Texture slot names in declaration order.
	TextureOrder []string
}

func (m *Material) IntParam(name string) int64 {
	return m.IntParams[name]
}

func (m *Material) FloatParam(name string, def float32) float32 {
	if f, ok := m.FloatParams[name]; ok {
		return f
	}
	return def
}

func (m *Material) VectorParam(name string, def [4]float32) [4]float32 {
	if v, ok := m.VectorParams[name]; ok {
		return v
	}
	return def
}

func ParseMaterial(r *kv.Record) (*Material, error) {
	m := &Material{
		Name:          r.StringOr("m_materialName", ""),
		IntParams:     make(map[string]int64),
		FloatParams:   make(map[string]float32),
		VectorParams:  make(map[string][4]float32),
		TextureParams: make(map[string]string),
	}

	var err error
	if m.ShaderName, err = r.String("m_shaderName"); err != nil {
		return nil, err
	}

	params := func(key string, read func(p *kv.Record, name string) error) error {
		if !r.Has(key) {
			return nil
		}
		prs, err := r.Records(key)
		if err != nil {
			return err
		}
		for i, pr := range prs {
			name, err := pr.String("m_name")
			if err != nil {
				return errors.Wrapf(err, "%s[%d]", key, i)
			}
			if err := read(pr, name); err != nil {
				return errors.Wrapf(err, "%s[%d] %q", key, i, name)
			}
		}
		return nil
	}

	if err := params("m_intParams", func(p *kv.Record, name string) (err error) {
		m.IntParams[name], err = p.Int("m_nValue")
		return
	}); err != nil {
		return nil, err
	}
	if err := params("m_floatParams", func(p *kv.Record, name string) (err error) {
		m.FloatParams[name], err = p.Float("m_flValue")
		return
	}); err != nil {
		return nil, err
	}
	if err := params("m_vectorParams", func(p *kv.Record, name string) error {
		v, err := p.Vec4("m_value")
		m.VectorParams[name] = v
		return err
	}); err != nil {
		return nil, err
	}
	if err := params("m_textureParams", func(p *kv.Record, name string) error {
		v, err := p.String("m_pValue")
		if err != nil {
			return err
		}
		if _, ok := m.TextureParams[name]; !ok {
			m.TextureOrder = append(m.TextureOrder, name)
		}
		m.TextureParams[name] = v
		return nil
	}); err != nil {
		return nil, err
	}

	return m, nil
}

type TextureInput struct {
	Channel string
	Name    string
}

// ShaderCollection describes texture slots of a compiled shader.
type ShaderCollection struct {
	Name          string
	TextureInputs map[string][]TextureInput
	Suffixes      map[string]string
}

func ParseShaderCollection(r *kv.Record) (*ShaderCollection, error) {
	sc := &ShaderCollection{
		Name:          r.StringOr("m_name", ""),
		TextureInputs: make(map[string][]TextureInput),
		Suffixes:      make(map[string]string),
	}

	if r.Has("m_textureInputs") {
		inputs, err := r.Record("m_textureInputs")
		if err != nil {
			return nil, err
		}
		for _, slot := range inputs.Keys() {
			irs, err := inputs.Records(slot)
			if err != nil {
				return nil, err
			}
			list := make([]TextureInput, len(irs))
			for i, ir := range irs {
				if list[i].Channel, err = ir.String("channel"); err != nil {
					return nil, errors.Wrapf(err, "slot %q", slot)
				}
				if list[i].Name, err = ir.String("name"); err != nil {
					return nil, errors.Wrapf(err, "slot %q", slot)
				}
			}
			sc.TextureInputs[slot] = list
		}
	}

	if r.Has("m_suffixes") {
		suffixes, err := r.Record("m_suffixes")
		if err != nil {
			return nil, err
		}
		for _, semantic := range suffixes.Keys() {
			if sc.Suffixes[semantic], err = suffixes.String(semantic); err != nil {
				return nil, err
			}
		}
	}

	return sc, nil
}
