package material

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
)

func testMaterial(shader string, textures ...string) *resource.Material {
	m := &resource.Material{
		Name:          "test",
		ShaderName:    shader,
		IntParams:     map[string]int64{},
		FloatParams:   map[string]float32{},
		VectorParams:  map[string][4]float32{},
		TextureParams: map[string]string{},
	}
	for i := 0; i+1 < len(textures); i += 2 {
		m.TextureParams[textures[i]] = textures[i+1]
		m.TextureOrder = append(m.TextureOrder, textures[i])
	}
	return m
}

func TestChannel(t *testing.T) {
	for _, tc := range []struct {
		in    string
		ch    Channel
		count int
	}{
		{"R", ChannelR, 1},
		{"a", ChannelA, 1},
		{"RGB", ChannelRGB, 3},
		{"AG", ChannelAG, 2},
		{"RGBA", ChannelRGBA, 4},
	} {
		ch, err := ParseChannel(tc.in)
		if err != nil {
			t.Errorf("ParseChannel(%q): %v", tc.in, err)
			continue
		}
		if ch != tc.ch || ch.Count() != tc.count {
			t.Errorf("ParseChannel(%q)=%v (%d); expected %v (%d)", tc.in, ch, ch.Count(), tc.ch, tc.count)
		}
	}
	if uint32(ChannelRGB) != 0xff020100 {
		t.Errorf("ChannelRGB=%#x; expected 0xff020100", uint32(ChannelRGB))
	}
	for _, bad := range []string{"", "X", "RGBAR"} {
		if _, err := ParseChannel(bad); errors.Cause(err) != ErrBadChannel {
			t.Errorf("ParseChannel(%q) err=%v; expected ErrBadChannel", bad, err)
		}
	}
}

func TestLayeredNameComparer(t *testing.T) {
	c := NewLayeredNameComparer([]string{"TextureColor", "TextureNormal"})
	for _, tc := range []struct {
		a, b string
		eq   bool
	}{
		{"TextureColor", "TextureColor", true},
		{"TextureColorA", "TextureColor", true},
		{"TextureColor1", "TextureColor", true},
		{"TextureColor0", "TextureColor", true},
		{"TextureLayer1Color", "TextureColor", true},
		{"TextureColor", "TextureColorA", true},
		{"TextureColorB", "TextureColor", false},
		{"TextureRoughnessA", "TextureRoughness", false},
		{"TextureNormal", "TextureColor", false},
	} {
		if got := c.Equal(tc.a, tc.b); got != tc.eq {
			t.Errorf("Equal(%q, %q)=%v; expected %v", tc.a, tc.b, got, tc.eq)
		}
	}
}

func TestBasicProvider(t *testing.T) {
	p := BasicShaderDataProvider{}

	inputs, _ := p.TextureChannels(testMaterial("unknown.vfx"), "g_tFoo")
	if len(inputs) != 1 || inputs[0] != in(ChannelRGBA, "TextureFoo") {
		t.Errorf("unknown shader inputs=%v", inputs)
	}

	m := testMaterial("vr_complex.vfx")
	inputs, _ = p.TextureChannels(m, "g_tColor")
	if len(inputs) != 2 || inputs[1].Name != "TextureMetalness" {
		t.Errorf("vr_complex color inputs=%v", inputs)
	}
	m.IntParams["F_TRANSLUCENT"] = 1
	inputs, _ = p.TextureChannels(m, "g_tColor")
	if inputs[1].Name != "TextureTranslucency" {
		t.Errorf("translucent vr_complex alpha=%q", inputs[1].Name)
	}

	// vr_simple alpha is dropped when no feature explains it
	inputs, _ = p.TextureChannels(testMaterial("vr_simple.vfx"), "g_tColor")
	if len(inputs) != 1 {
		t.Errorf("vr_simple color inputs=%v; expected 1", inputs)
	}

	for input, suffix := range map[string]string{
		"TextureColor":         "_color",
		"TextureColorB":        "_color",
		"texturenormal":        "_normal",
		"TextureMetalnessMask": "_metalnessmask",
		"TextureUnknown":       "",
	} {
		if got := p.SuffixHint(input, m); got != suffix {
			t.Errorf("SuffixHint(%q)=%q; expected %q", input, got, suffix)
		}
	}
}

type testShaderLoader map[string]*resource.ShaderCollection

func (l testShaderLoader) LoadShader(name string) (*resource.ShaderCollection, error) {
	if name == "broken.vfx" {
		return nil, errors.New("broken")
	}
	return l[name], nil
}

func TestCollectionProvider(t *testing.T) {
	p := NewCollectionShaderDataProvider(testShaderLoader{
		"custom.vfx": {
			Name: "custom",
			TextureInputs: map[string][]resource.TextureInput{
				"g_tPacked": {{Channel: "G", Name: "TextureRoughness"}, {Channel: "B", Name: "TextureMetalness"}},
			},
			Suffixes: map[string]string{"TextureRoughness": "_r"},
		},
	})

	m := testMaterial("custom.vfx")
	inputs, err := p.TextureChannels(m, "g_tPacked")
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 2 || inputs[0] != in(ChannelG, "TextureRoughness") || inputs[1] != in(ChannelB, "TextureMetalness") {
		t.Errorf("inputs=%v", inputs)
	}
	if inputs, _ = p.TextureChannels(m, "g_tMissing"); len(inputs) != 1 || inputs[0].Name != "TextureMissing" {
		t.Errorf("missing slot inputs=%v", inputs)
	}
	if s := p.SuffixHint("TextureRoughness", m); s != "_r" {
		t.Errorf("SuffixHint from shader=%q; expected _r", s)
	}
	if s := p.SuffixHint("TextureColor", m); s != "_color" {
		t.Errorf("SuffixHint fallback=%q; expected _color", s)
	}

	// shader not found uses built in tables
	inputs, err = p.TextureChannels(testMaterial("generic.vfx"), "g_tRoughness")
	if err != nil || len(inputs) != 1 || inputs[0] != in(ChannelR, "TextureRoughness") {
		t.Errorf("fallback inputs=%v, %v", inputs, err)
	}
	if _, err := p.TextureChannels(testMaterial("broken.vfx"), "g_tColor"); err == nil {
		t.Errorf("expected error from broken shader")
	}
}

func TestPlanDirect(t *testing.T) {
	planner := NewPlanner(BasicShaderDataProvider{}, true)
	plan := planner.Plan(testMaterial("global_lit_simple.vfx", "g_tColor", "materials/wall_color.vtex"))
	if len(plan.Textures) != 1 {
		t.Fatalf("textures=%d; expected 1", len(plan.Textures))
	}
	tr := plan.Textures[0]
	if tr.Target != TargetBaseColor || tr.Source != ChannelRGBA || tr.Dest != ChannelRGBA {
		t.Errorf("instruction=%+v; expected direct base color", tr.Instruction)
	}
	if tr.Name != "wall_color.vtex" {
		t.Errorf("name=%q", tr.Name)
	}
	if plan.ORM != nil {
		t.Errorf("unexpected ORM request %+v", plan.ORM)
	}
}

func TestPlanORM(t *testing.T) {
	planner := NewPlanner(BasicShaderDataProvider{}, true)
	plan := planner.Plan(testMaterial("vr_complex.vfx",
		"g_tNormal", "materials/b_normal.vtex",
		"g_tMetalness", "materials/a_metal.vtex",
	))

	if len(plan.Textures) != 1 || plan.Textures[0].Target != TargetNormal {
		t.Errorf("direct textures=%+v; expected only normal", plan.Textures)
	}
	if plan.Textures[0].OutputChannels() != ChannelRGB {
		t.Errorf("normal output channels=%v; expected RGB", plan.Textures[0].OutputChannels())
	}

	orm := plan.ORM
	if orm == nil {
		t.Fatalf("no ORM request")
	}
	paths := orm.Paths()
	if len(paths) != 2 || paths[0] != "materials/a_metal.vtex" || paths[1] != "materials/b_normal.vtex" {
		t.Errorf("ORM paths=%v", paths)
	}
	hash := utils.MurmurHash2Seed([]byte("materials/a_metal.vtex|materials/b_normal.vtex"), ORMHashSeed)
	if expected := fmt.Sprintf("a_metal_orm_%d.png", hash); orm.FileName != expected {
		t.Errorf("ORM file=%q; expected %q", orm.FileName, expected)
	}

	var rough, metal *ORMSource
	for i := range orm.Sources {
		s := &orm.Sources[i]
		switch s.DestChannel() {
		case chG:
			rough = s
		case chB:
			metal = s
		}
	}
	if rough == nil || rough.Path != "materials/b_normal.vtex" || rough.SourceChannel() != chA {
		t.Errorf("roughness source=%+v", rough)
	}
	if metal == nil || metal.Path != "materials/a_metal.vtex" || metal.SourceChannel() != chR {
		t.Errorf("metalness source=%+v", metal)
	}
	if orm.RedTarget != "" {
		t.Errorf("red target=%q; expected none", orm.RedTarget)
	}
}

func TestPlanORMOcclusion(t *testing.T) {
	planner := NewPlanner(BasicShaderDataProvider{}, true)
	plan := planner.Plan(testMaterial("vr_complex.vfx",
		"g_tMetalness", "m.vtex",
		"g_tAmbientOcclusion", "ao.vtex",
	))
	if len(plan.Textures) != 0 {
		t.Errorf("ORM only slots got direct entries: %+v", plan.Textures)
	}
	if plan.ORM == nil || plan.ORM.RedTarget != TargetOcclusion {
		t.Fatalf("ORM=%+v; expected occlusion in red", plan.ORM)
	}
}

func TestPlanSpecularMask(t *testing.T) {
	planner := NewPlanner(BasicShaderDataProvider{}, true)
	plan := planner.Plan(testMaterial("hero.vfx", "g_tMasks2", "masks2.vtex"))
	if plan.ORM == nil || len(plan.ORM.Sources) != 1 {
		t.Fatalf("ORM=%+v; expected one inverted source", plan.ORM)
	}
	s := plan.ORM.Sources[0]
	if !s.Invert || s.DestChannel() != chG || s.SourceChannel() != chR {
		t.Errorf("specular source=%+v", s)
	}
}

func TestPlanNoAdapt(t *testing.T) {
	planner := NewPlanner(BasicShaderDataProvider{}, false)
	plan := planner.Plan(testMaterial("vr_complex.vfx",
		"g_tColor", "c.vtex",
		"g_tMetalness", "m.vtex",
	))
	if len(plan.Textures) != 1 || plan.Textures[0].Target != TargetBaseColor || plan.ORM != nil {
		t.Errorf("plan=%+v", plan)
	}
}

func TestNewGLTFMaterial(t *testing.T) {
	doc := gltf.NewDocument()
	m := testMaterial("vr_glass.vfx")
	m.IntParams["F_UNLIT"] = 1
	m.IntParams["F_RENDER_BACKFACES"] = 1
	m.FloatParams["g_flMetalness"] = 2
	m.VectorParams["g_vColorTint"] = [4]float32{0.5, 2, -1, 0.3}

	gm := NewGLTFMaterial(doc, m, "glass", [4]float32{1, 1, 1, 0.5})
	if gm.AlphaMode != gltf.AlphaBlend || !gm.DoubleSided {
		t.Errorf("alpha=%v doubleSided=%v", gm.AlphaMode, gm.DoubleSided)
	}
	if *gm.PBRMetallicRoughness.BaseColorFactor != [4]float32{0.5, 1, 0, 0.5} {
		t.Errorf("base color=%v", *gm.PBRMetallicRoughness.BaseColorFactor)
	}
	if *gm.PBRMetallicRoughness.MetallicFactor != 1 {
		t.Errorf("metallic=%v; expected clamped 1", *gm.PBRMetallicRoughness.MetallicFactor)
	}
	if _, ok := gm.Extensions[ExtensionUnlit]; !ok || len(doc.ExtensionsUsed) != 1 {
		t.Errorf("unlit extension not set: %v %v", gm.Extensions, doc.ExtensionsUsed)
	}

	m = testMaterial("generic.vfx")
	m.IntParams["F_ALPHA_TEST"] = 1
	m.FloatParams["g_flAlphaTestReference"] = 0.25
	gm = NewGLTFMaterial(doc, m, "cutout", [4]float32{1, 1, 1, 1})
	if gm.AlphaMode != gltf.AlphaMask || gm.AlphaCutoff == nil || *gm.AlphaCutoff != 0.25 {
		t.Errorf("alpha test material=%v %v", gm.AlphaMode, gm.AlphaCutoff)
	}

	TieORM(gm, &ORMRequest{RedTarget: TargetOcclusion}, 3)
	if gm.PBRMetallicRoughness.MetallicRoughnessTexture.Index != 3 || *gm.OcclusionTexture.Index != 3 {
		t.Errorf("ORM not tied to both targets")
	}
}

func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestPackChannels(t *testing.T) {
	req := &ORMRequest{
		Default: ORMDefaultColor,
		Sources: []ORMSource{
			{Path: "rough", Instruction: Instruction{Source: ChannelA, Dest: ChannelG}},
			{Path: "metal", Instruction: Instruction{Source: ChannelR, Dest: ChannelB, Invert: true}},
		},
	}
	images := map[string]image.Image{
		"rough": solid(2, 2, color.NRGBA{0, 0, 0, 100}),
		"metal": solid(4, 4, color.NRGBA{55, 0, 0, 255}),
	}
	out := PackChannels(req, func(path string) image.Image { return images[path] })
	if out.Rect.Dx() != 4 || out.Rect.Dy() != 4 {
		t.Fatalf("size=%v; expected 4x4", out.Rect)
	}
	c := out.NRGBAAt(1, 1)
	// default fill survives scaling, metal is copied without scaling
	if c.R < 250 || c.B != 200 || c.A < 250 {
		t.Errorf("packed pixel=%v; expected R 255 B 200 A 255", c)
	}
	if c.G < 95 || c.G > 105 {
		t.Errorf("scaled roughness=%d; expected about 100", c.G)
	}
}

func TestExtractChannels(t *testing.T) {
	src := solid(2, 1, color.NRGBA{10, 20, 30, 40})
	if g, ok := ExtractChannels(src, ChannelB).(*image.Gray); !ok || g.GrayAt(1, 0).Y != 30 {
		t.Errorf("single channel extract=%v", g)
	}
	rgb := ExtractChannels(src, ChannelRGB).(*image.NRGBA)
	if rgb.NRGBAAt(0, 0) != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("rgb extract=%v", rgb.NRGBAAt(0, 0))
	}
	for _, c := range []struct {
		ch       Channel
		expected color.NRGBA
	}{
		{ChannelRG, color.NRGBA{10, 20, 30, 255}},
		{ChannelAG, color.NRGBA{40, 20, 0, 255}},
		{ChannelRGBA, color.NRGBA{10, 20, 30, 40}},
	} {
		img, ok := ExtractChannels(src, c.ch).(*image.NRGBA)
		if !ok {
			t.Errorf("%v extract is not NRGBA", c.ch)
			continue
		}
		if img.NRGBAAt(1, 0) != c.expected {
			t.Errorf("%v extract=%v; expected %v", c.ch, img.NRGBAAt(1, 0), c.expected)
		}
	}
	if !strings.HasPrefix(ChannelRGBA.String(), "RGBA") {
		t.Errorf("String()=%q", ChannelRGBA.String())
	}
}
