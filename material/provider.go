package material

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/s2gltf/resource"
)

// ShaderDataProvider tells which semantics a material texture slot carries in which channels.
type ShaderDataProvider interface {
	TextureChannels(mat *resource.Material, slot string) ([]Input, error)
	SuffixHint(input string, mat *resource.Material) string
}

type BasicShaderDataProvider struct{}

func in(ch Channel, name string) Input { return Input{Channel: ch, Name: name} }

// Known layouts of common shader families, keyed by shader name without extension.
var TextureMappings = map[string]map[string][]Input{
	"global_lit_simple": {
		"g_tColor":    {in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureTranslucency")},
		"g_tNormal":   {in(ChannelRGB, "TextureNormal")},
		"g_tSpecular": {in(ChannelR, "TextureReflectance"), in(ChannelG, "TextureSelfIllum"), in(ChannelB, "TextureBloom")},
	},
	"multiblend": {
		"g_tColor0":     {in(ChannelRGB, "TextureColor0")},
		"g_tColor1":     {in(ChannelRGB, "TextureColor1"), in(ChannelA, "TextureRevealMask1")},
		"g_tColor2":     {in(ChannelRGB, "TextureColor2"), in(ChannelA, "TextureRevealMask2")},
		"g_tColor3":     {in(ChannelRGB, "TextureColor3"), in(ChannelA, "TextureRevealMask3")},
		"g_tSpecular0":  {in(ChannelR, "TextureReflectance0"), in(ChannelG, "TextureSelfIllum0"), in(ChannelB, "TextureBloom0")},
		"g_tSpecular1":  {in(ChannelR, "TextureReflectance1"), in(ChannelG, "TextureSelfIllum1"), in(ChannelB, "TextureBloom1")},
		"g_tSpecular2":  {in(ChannelR, "TextureReflectance2"), in(ChannelG, "TextureSelfIllum2"), in(ChannelB, "TextureBloom2")},
		"g_tSpecular3":  {in(ChannelR, "TextureReflectance3"), in(ChannelG, "TextureSelfIllum3"), in(ChannelB, "TextureBloom3")},
		"g_tTintMasks":  {in(ChannelR, "TextureTintMask0"), in(ChannelG, "TextureTintMask1"), in(ChannelB, "TextureTintMask2"), in(ChannelA, "TextureTintMask3")},
		"g_tTint2Masks": {in(ChannelR, "TextureTint2Mask0"), in(ChannelG, "TextureTint2Mask1"), in(ChannelB, "TextureTint2Mask2"), in(ChannelA, "TextureTint2Mask3")},
	},
	"hero": {
		"g_tColor":               {in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureTranslucency")},
		"g_tNormal":              {in(ChannelRGB, "TextureNormal")},
		"g_tCubeMap":             {in(ChannelRGBA, "TextureCubeMap")},
		"g_tCubeMapSeparateMask": {in(ChannelG, "TextureCubeMapSeparateMask")},
		"g_tFresnelWarp":         {in(ChannelR, "TextureFresnelWarpRim"), in(ChannelG, "TextureFresnelWarpColor"), in(ChannelB, "TextureFresnelWarpSpec")},
		"g_tMasks1":              {in(ChannelR, "TextureDetailMask"), in(ChannelG, "TextureDiffuseWarpMask"), in(ChannelB, "TextureMetalnessMask"), in(ChannelA, "TextureSelfIllumMask")},
		"g_tMasks2":              {in(ChannelR, "TextureSpecularMask"), in(ChannelG, "TextureRimMask"), in(ChannelB, "TextureTintByBaseMask"), in(ChannelA, "TextureSpecularExponent")},
		"g_tDetail":              {in(ChannelRGBA, "TextureDetail")},
		"g_tDetail2":             {in(ChannelRGBA, "TextureDetail2")},
	},
	"grasstile_preview": {
		"g_tColor":     {in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureTranslucency")},
		"g_tTintMask":  {in(ChannelG, "TextureTintMask")},
		"g_tSpecular":  {in(ChannelG, "TextureReflectance")},
		"g_tSelfIllum": {in(ChannelG, "TextureSelfIllum")},
	},
	"generic": {
		"g_tColor":                       {in(ChannelRGB, "TextureColor")},
		"g_tNormal":                      {in(ChannelRGB, "TextureNormal")},
		"g_tMetalnessReflectanceFresnel": {in(ChannelR, "TextureMetalness"), in(ChannelG, "TextureReflectance"), in(ChannelB, "TextureFresnel")},
		"g_tRoughness":                   {in(ChannelR, "TextureRoughness")},
	},
	"vr_standard": {
		"g_tColor":   {in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureTranslucency")},
		"g_tColor1":  {in(ChannelRGB, "TextureColor")},
		"g_tColor2":  {in(ChannelRGB, "TextureColor")},
		"g_tNormal":  {in(ChannelRGB, "TextureNormal")},
		"g_tNormal1": {in(ChannelRGB, "TextureNormal")},
		"g_tNormal2": {in(ChannelRGB, "TextureNormal")},
	},
	"vr_complex": {
		// alpha is metalness or translucency depending on features
		"g_tColor":                   {in(ChannelRGB, "TextureColor"), in(ChannelA, "")},
		"g_tNormal":                  {in(ChannelRGB, "TextureNormal"), in(ChannelA, "TextureRoughness")},
		"g_tAmbientOcclusion":        {in(ChannelR, "TextureAmbientOcclusion")},
		"g_tTintMask":                {in(ChannelR, "TextureTintMask")},
		"g_tMetalness":               {in(ChannelR, "TextureMetalness")},
		"g_tSelfIllumMask":           {in(ChannelR, "TextureSelfIllumMask")},
		"g_tBentNormal":              {in(ChannelRGB, "TextureBentNormal")},
		"g_tDetail":                  {in(ChannelRGB, "TextureDetail")},
		"g_tDetailMask":              {in(ChannelR, "TextureDetailMask")},
		"g_tNormalDetail":            {in(ChannelRGB, "TextureNormalDetail")},
		"g_tSquishColor":             {in(ChannelRGB, "TextureSquishColor")},
		"g_tStretchColor":            {in(ChannelRGB, "TextureStretchColor")},
		"g_tSquishNormal":            {in(ChannelRGB, "TextureSquishNormal")},
		"g_tStretchNormal":           {in(ChannelRGB, "TextureStretchNormal")},
		"g_tSquishAmbientOcclusion":  {in(ChannelR, "TextureSquishAmbientOcclusion")},
		"g_tStretchAmbientOcclusion": {in(ChannelR, "TextureStretchAmbientOcclusion")},
	},
	"vr_simple": {
		"g_tColor":            {in(ChannelRGB, "TextureColor"), in(ChannelA, "")},
		"g_tNormal":           {in(ChannelRGB, "TextureNormal"), in(ChannelA, "TextureRoughness")},
		"g_tAmbientOcclusion": {in(ChannelR, "TextureAmbientOcclusion")},
		"g_tTintMask":         {in(ChannelR, "TextureTintMask")},
	},
	"vr_simple_2way_blend": {
		"g_tColorA":  {in(ChannelRGB, "TextureColorA"), in(ChannelA, "TextureMetalnessA")},
		"g_tNormalA": {in(ChannelRGB, "TextureNormalA"), in(ChannelA, "TextureRoughnessA")},
		"g_tColorB":  {in(ChannelRGB, "TextureColorB"), in(ChannelA, "TextureMetalnessB")},
		"g_tNormalB": {in(ChannelRGB, "TextureNormalB"), in(ChannelA, "TextureRoughnessB")},
		"g_tMask":    {in(ChannelR, "TextureMask")},
	},
	"vr_eyeball": {
		"g_tColor":         {in(ChannelRGB, "TextureColor"), in(ChannelA, "TextureReflectance")},
		"g_tIris":          {in(ChannelRGB, "IrisNormal"), in(ChannelA, "IrisRoughness")},
		"g_tNormal":        {in(ChannelAG, "TextureNormal")},
		"g_tIrisMask":      {in(ChannelR, "TextureIrisMask")},
		"g_tSelfIllumMask": {in(ChannelR, "TextureSelfIllumMask")},
	},
	"csgo_weapon": {
		"g_tColor":            {in(ChannelRGB, "TextureColor")},
		"g_tMetalness":        {in(ChannelR, "TextureRoughness"), in(ChannelG, "TextureMetalness")},
		"g_tAmbientOcclusion": {in(ChannelR, "TextureAmbientOcclusion")},
	},
	"sky": {
		"g_tSkyTexture": {in(ChannelRGBA, "SkyTexture")},
	},
}

// Prefix matched in order, so layered names like TextureColorB still resolve.
var CommonTextureSuffixes = [][2]string{
	{"TextureDetailMask", "_detailmask"},
	{"TextureDiffuseWarpMask", "_diffusemask"},
	{"TextureMetalnessMask", "_metalnessmask"},
	{"TextureSelfIllumMask", "_selfillummask"},
	{"TextureSpecularMask", "_specmask"},
	{"TextureRimMask", "_rimmask"},
	{"TextureTintByBaseMask", "_basetintmask"},
	{"TextureSpecularExponent", "_specexp"},
	{"TextureRevealMask", "_blend"},
	{"TextureColor", "_color"},
	{"TextureNormal", "_normal"},
	{"TextureRoughness", "_rough"},
	{"TextureMetalness", "_metal"},
	{"TextureAmbientOcclusion", "_ao"},
	{"TextureReflectance", "_refl"},
	{"TextureTranslucency", "_trans"},
}

func shaderBaseName(shader string) string {
	return strings.TrimSuffix(shader, path.Ext(shader))
}

// SlotToInput guesses input name from slot name, g_tColor becomes TextureColor.
func SlotToInput(slot string) string {
	return strings.ReplaceAll(slot, "g_t", "Texture")
}

// TextureChannels returns built in layout, or whole texture as one guessed input.
func (BasicShaderDataProvider) TextureChannels(mat *resource.Material, slot string) ([]Input, error) {
	shader := shaderBaseName(mat.ShaderName)
	mappings, ok := TextureMappings[shader][slot]
	if !ok {
		return []Input{in(ChannelRGBA, SlotToInput(slot))}, nil
	}

	result := make([]Input, 0, len(mappings))
	for _, m := range mappings {
		if m.Name == "" {
			name, ok := dynamicInput(shader, slot, mat)
			if !ok {
				continue
			}
			m.Name = name
		}
		result = append(result, m)
	}
	return result, nil
}

// dynamicInput resolves inputs whose meaning depends on material features.
func dynamicInput(shader, slot string, mat *resource.Material) (string, bool) {
	switch {
	case shader == "vr_simple" && slot == "g_tColor":
		if mat.IntParam("F_METALNESS_TEXTURE") != 0 {
			return "TextureMetalness", true
		}
		if mat.IntParam("F_AMBIENT_OCCLUSION_TEXTURE") != 0 {
			return "TextureAmbientOcclusion", true
		}
	case shader == "vr_complex" && slot == "g_tColor":
		if mat.IntParam("F_TRANSLUCENT") != 0 || mat.IntParam("F_ALPHA_TEST") != 0 {
			return "TextureTranslucency", true
		}
		return "TextureMetalness", true
	}
	return "", false
}

func (BasicShaderDataProvider) SuffixHint(input string, mat *resource.Material) string {
	for _, s := range CommonTextureSuffixes {
		if len(input) >= len(s[0]) && strings.EqualFold(input[:len(s[0])], s[0]) {
			return s[1]
		}
	}
	return ""
}

type ShaderLoader interface {
	LoadShader(name string) (*resource.ShaderCollection, error)
}

// CollectionShaderDataProvider reads slot layouts from compiled shader collections
// and falls back to Fallback when shader is not available.
type CollectionShaderDataProvider struct {
	Loader   ShaderLoader
	Fallback ShaderDataProvider
}

func NewCollectionShaderDataProvider(loader ShaderLoader) *CollectionShaderDataProvider {
	return &CollectionShaderDataProvider{Loader: loader, Fallback: BasicShaderDataProvider{}}
}

func (p *CollectionShaderDataProvider) shader(mat *resource.Material) (*resource.ShaderCollection, error) {
	if p.Loader == nil {
		return nil, nil
	}
	return p.Loader.LoadShader(mat.ShaderName)
}

func (p *CollectionShaderDataProvider) TextureChannels(mat *resource.Material, slot string) ([]Input, error) {
	sc, err := p.shader(mat)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load shader %q", mat.ShaderName)
	}
	if sc == nil {
		return p.Fallback.TextureChannels(mat, slot)
	}

	declared, ok := sc.TextureInputs[slot]
	if !ok {
		// slot dropped by shader update while material was not recompiled
		return []Input{in(ChannelRGBA, SlotToInput(slot))}, nil
	}

	result := make([]Input, 0, len(declared))
	for _, ti := range declared {
		ch, err := ParseChannel(ti.Channel)
		if err != nil {
			return nil, errors.Wrapf(err, "shader %q slot %q", sc.Name, slot)
		}
		result = append(result, Input{Channel: ch, Name: ti.Name})
	}
	if len(result) == 0 {
		return nil, errors.Errorf("shader %q declares no channels for %q", sc.Name, slot)
	}
	return result, nil
}

func (p *CollectionShaderDataProvider) SuffixHint(input string, mat *resource.Material) string {
	if sc, err := p.shader(mat); err == nil && sc != nil {
		if suffix, ok := sc.Suffixes[input]; ok {
			return suffix
		}
	}
	return p.Fallback.SuffixHint(input, mat)
}
