package material

import (
	"fmt"
	"image/color"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

const (
	TargetBaseColor         = "BaseColor"
	TargetNormal            = "Normal"
	TargetMetallicRoughness = "MetallicRoughness"
	TargetOcclusion         = "Occlusion"
	TargetEmissive          = "Emissive"
)

// ORMHashSeed is seed of MurmurHash2 used for combined texture names.
const ORMHashSeed = 0x31415926

type TargetMapping struct {
	Target string
	Inputs []Input
}

// TargetMappings lists channel layout of every glTF texture, checked in this order.
var TargetMappings = []TargetMapping{
	{TargetBaseColor, []Input{in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureTranslucency")}},
	{TargetNormal, []Input{in(ChannelRGB, "TextureNormal")}},
	{TargetMetallicRoughness, []Input{in(ChannelR, ""), in(ChannelG, "TextureRoughness"), in(ChannelB, "TextureMetalness")}},
	{TargetOcclusion, []Input{in(ChannelR, "TextureAmbientOcclusion")}},
	{TargetEmissive, []Input{in(ChannelR, "TextureSelfIllumMask")}},
}

// ORMDefaultColor fills channels no source texture provides.
var ORMDefaultColor = color.NRGBA{255, 255, 0, 255}

// Instruction moves Source channels of a texture into Dest channels of Target.
type Instruction struct {
	Target string
	Source Channel
	Dest   Channel
	Invert bool
}

// TextureRemap is a source texture exported as its own image.
type TextureRemap struct {
	Path string
	Name string
	Instruction
}

// OutputChannels is what gets written into the exported image.
// Alpha is dropped when only color is used since some importers choke on it.
func (tr *TextureRemap) OutputChannels() Channel {
	if tr.Source == ChannelRGBA && tr.Dest == ChannelRGB {
		return ChannelRGB
	}
	return tr.Source
}

type ORMSource struct {
	Path string
	Instruction
}

// SourceChannel and DestChannel are single channels copied by packer.
func (s *ORMSource) SourceChannel() byte {
	if s.Source.Count() == 1 {
		return s.Source.First()
	}
	return chR
}

func (s *ORMSource) DestChannel() byte {
	if s.Dest.Count() == 1 {
		return s.Dest.First()
	}
	return chR
}

// ORMRequest is a combined occlusion/roughness/metalness texture packed from several sources.
type ORMRequest struct {
	FileName string
	Sources  []ORMSource

	// Occlusion or Emissive stored in red channel, empty when red is unused.
	RedTarget string
	Default   color.NRGBA
}

func (r *ORMRequest) Paths() []string {
	var paths []string
	for _, s := range r.Sources {
		if len(paths) == 0 || paths[len(paths)-1] != s.Path {
			paths = append(paths, s.Path)
		}
	}
	return paths
}

type Plan struct {
	Textures []TextureRemap
	ORM      *ORMRequest
}

type Planner struct {
	Provider ShaderDataProvider

	// Split channels and build ORM texture. When false textures are used as is
	// if their first input matches.
	Adapt bool

	comparer *LayeredNameComparer
	fallback ShaderDataProvider
}

func NewPlanner(provider ShaderDataProvider, adapt bool) *Planner {
	var names []string
	for _, tm := range TargetMappings {
		for _, i := range tm.Inputs {
			names = append(names, i.Name)
		}
	}
	return &Planner{
		Provider: provider,
		Adapt:    adapt,
		comparer: NewLayeredNameComparer(names),
		fallback: BasicShaderDataProvider{},
	}
}

func (p *Planner) Comparer() *LayeredNameComparer { return p.comparer }

func appendUnique(list []Instruction, i Instruction) []Instruction {
	for _, e := range list {
		if e == i {
			return list
		}
	}
	return append(list, i)
}

// Instructions maps shader inputs of one texture onto glTF targets.
func (p *Planner) Instructions(inputs []Input) []Instruction {
	var result []Instruction

	for _, tm := range TargetMappings {
		if !p.Adapt {
			if len(inputs) == 0 || !p.comparer.Equal(inputs[0].Name, tm.Inputs[0].Name) {
				continue
			}
			return append(result, Instruction{Target: tm.Target, Source: ChannelRGBA, Dest: ChannelRGBA})
		}

		if p.comparer.InputsEqual(inputs, tm.Inputs) {
			return append(result, Instruction{Target: tm.Target, Source: ChannelRGBA, Dest: ChannelRGBA})
		}

		for _, target := range tm.Inputs {
			for _, input := range inputs {
				switch {
				case p.comparer.Equal(input.Name, target.Name):
					result = appendUnique(result, Instruction{Target: tm.Target, Source: input.Channel, Dest: target.Channel})
				case p.comparer.Equal(input.Name, "TextureMetalnessMask"):
					result = appendUnique(result, Instruction{Target: TargetMetallicRoughness, Source: input.Channel, Dest: ChannelB})
				case p.comparer.Equal(input.Name, "TextureSpecularMask"):
					result = appendUnique(result, Instruction{Target: TargetMetallicRoughness, Source: input.Channel, Dest: ChannelG, Invert: true})
				}
			}
		}
	}
	return result
}

func (p *Planner) inputs(mat *resource.Material, slot string) []Input {
	inputs, err := p.Provider.TextureChannels(mat, slot)
	if err == nil {
		return inputs
	}
	logger.Warn("Failed to get texture inputs",
		zap.String("material", mat.Name), zap.String("slot", slot), zap.Error(err))
	inputs, _ = p.fallback.TextureChannels(mat, slot)
	return inputs
}

// Plan decides which images are exported for mat and how their channels map.
func (p *Planner) Plan(mat *resource.Material) *Plan {
	var paths []string
	remap := make(map[string][]Instruction)

	for _, slot := range mat.TextureOrder {
		texPath := mat.TextureParams[slot]
		if texPath == "" {
			continue
		}
		instructions := p.Instructions(p.inputs(mat, slot))
		if len(instructions) == 0 {
			continue
		}
		if _, ok := remap[texPath]; !ok {
			paths = append(paths, texPath)
		}
		remap[texPath] = instructions
		logger.Debug("Texture remap",
			zap.String("texture", texPath), zap.String("slot", slot), zap.Any("instructions", instructions))
	}

	plan := &Plan{}
	orm := make(map[string][]Instruction)
	redTarget := ""

	if p.Adapt {
		hasMR := false
		for _, tp := range paths {
			for _, i := range remap[tp] {
				if i.Target == TargetMetallicRoughness {
					hasMR = true
				}
			}
		}
		if hasMR {
		find:
			for _, tp := range paths {
				for _, i := range remap[tp] {
					if i.Target == TargetOcclusion || i.Target == TargetEmissive {
						redTarget = i.Target
						break find
					}
				}
			}
		}

		for _, tp := range paths {
			var rest []Instruction
			for _, i := range remap[tp] {
				if i.Target == TargetMetallicRoughness || (redTarget != "" && i.Target == redTarget) {
					orm[tp] = append(orm[tp], i)
				} else {
					rest = append(rest, i)
				}
			}
			remap[tp] = rest
		}
	}

	for _, texPath := range paths {
		instructions := remap[texPath]
		if len(instructions) == 0 {
			continue
		}
		if len(instructions) != 1 {
			logger.Debug("Texture has several instructions, using first",
				zap.String("texture", texPath), zap.Int("count", len(instructions)))
		}
		plan.Textures = append(plan.Textures, TextureRemap{
			Path:        texPath,
			Name:        path.Base(texPath),
			Instruction: instructions[0],
		})
	}

	if len(orm) != 0 {
		plan.ORM = newORMRequest(orm, redTarget)
	}
	return plan
}

func newORMRequest(orm map[string][]Instruction, redTarget string) *ORMRequest {
	paths := make([]string, 0, len(orm))
	for p := range orm {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	hash := utils.MurmurHash2Seed([]byte(strings.Join(paths, "|")), ORMHashSeed)
	first := path.Base(paths[0])
	first = strings.TrimSuffix(first, path.Ext(first))

	req := &ORMRequest{
		FileName:  fmt.Sprintf("%s_orm_%d.png", first, hash),
		RedTarget: redTarget,
		Default:   ORMDefaultColor,
	}
	for _, p := range paths {
		for _, i := range orm[p] {
			req.Sources = append(req.Sources, ORMSource{Path: p, Instruction: i})
		}
	}
	return req
}
