package anim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils/gltfutils"
)

func floatEqual(a, b float32) bool { return a == b }
func floatLerp(a, b, k float32) float32 { return a + (b-a)*k }

func TestChannelWriterRun(t *testing.T) {
	for _, n := range []int{1, 2, 5, 30} {
		w := NewChannelWriter(floatEqual)
		f := 0
		for ; f < n; f++ {
			w.SubmitKeyframe(float32(f), float32(f-1), 7)
		}
		w.SubmitKeyframe(float32(f), float32(f-1), 9)

		expected := 3
		if n == 1 {
			expected = 2
		}
		if w.Len() != expected {
			t.Errorf("%d identical + 1 change: %d samples %v; expected %d", n, w.Len(), w.Times(), expected)
		}
	}
}

func TestChannelWriterSamples(t *testing.T) {
	w := NewChannelWriter(floatEqual)
	for f, v := range []float32{7, 7, 7, 9} {
		w.SubmitKeyframe(float32(f), float32(f-1), v)
	}
	times, values := w.Times(), w.Values()
	expTimes := []float32{0, 2, 3}
	expValues := []float32{7, 7, 9}
	for i := range expTimes {
		if times[i] != expTimes[i] || values[i] != expValues[i] {
			t.Errorf("sample %d=(%v,%v); expected (%v,%v)", i, times[i], values[i], expTimes[i], expValues[i])
		}
	}
}

func TestChannelWriterResample(t *testing.T) {
	input := []float32{0, 0, 1, 1, 1, 1, 2, 3, 3, 3, 0, 0, 0, 5}
	w := NewChannelWriter(floatEqual)
	for f, v := range input {
		w.SubmitKeyframe(float32(f)/30, float32(f-1)/30, v)
	}
	if w.Len() >= len(input) {
		t.Errorf("no compression: %d samples for %d frames", w.Len(), len(input))
	}
	for i := 1; i < len(w.Times()); i++ {
		if w.Times()[i] <= w.Times()[i-1] {
			t.Errorf("times not increasing at %d: %v", i, w.Times())
		}
	}
	for f, v := range input {
		if got := w.Sample(float32(f)/30, floatLerp); got != v {
			t.Errorf("Sample(frame %d)=%v; expected %v", f, got, v)
		}
	}
}

func TestChannelWriterReset(t *testing.T) {
	w := NewChannelWriter(floatEqual)
	w.SubmitKeyframe(0, -1, 1)
	w.SubmitKeyframe(1, 0, 1)
	w.Reset()
	w.SubmitKeyframe(0, -1, 1)
	if w.Len() != 1 {
		t.Errorf("after Reset len=%d; expected 1", w.Len())
	}
}

func testSkeleton() *resource.Skeleton {
	return &resource.Skeleton{Bones: []resource.Bone{
		{Name: "root", Parent: -1, Rotation: mgl32.QuatIdent()},
		{Name: "arm", Parent: 0, Position: mgl32.Vec3{0, 0, 10}, Rotation: mgl32.QuatIdent()},
	}}
}

func channelFor(doc *gltf.Document, a *gltf.Animation, node uint32, path gltf.TRSProperty) *gltf.Accessor {
	for _, ch := range a.Channels {
		if *ch.Target.Node == node && ch.Target.Path == path {
			return doc.Accessors[*a.Samplers[*ch.Sampler].Input]
		}
	}
	return nil
}

func TestClipWriterEmptyClip(t *testing.T) {
	doc := gltfutils.NewDocument()
	cw, err := NewClipWriter(testSkeleton(), []uint32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	idx, err := cw.Write(doc, &resource.AnimationClip{}, 3)
	if err != nil {
		t.Fatal(err)
	}
	a := doc.Animations[idx]
	if a.Name != "anim_3" {
		t.Errorf("name=%q; expected anim_3", a.Name)
	}
	if len(a.Channels) != 6 {
		t.Fatalf("channels=%d; expected 6", len(a.Channels))
	}
	for _, path := range []gltf.TRSProperty{gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale} {
		if acc := channelFor(doc, a, 1, path); acc == nil || acc.Count != 1 {
			t.Errorf("bind pose channel %v missing or not single keyed", path)
		}
	}
	if scales := cw.bones[0].scale.Values(); scales[0] != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("bind scale=%v; expected 1", scales[0])
	}
}

func TestClipWriterFrames(t *testing.T) {
	nan := float32(math.NaN())
	clip := &resource.AnimationClip{
		Name:       "walk",
		FrameCount: 4,
		Frames: []resource.Frame{
			{Bones: map[string]resource.BoneTransform{"arm": {Position: mgl32.Vec3{0, 0, 10}, Rotation: mgl32.QuatIdent(), Scale: 1}}},
			{Bones: map[string]resource.BoneTransform{}},
			{Bones: map[string]resource.BoneTransform{"arm": {Position: mgl32.Vec3{0, 0, 10}, Rotation: mgl32.QuatIdent(), Scale: nan}}},
			{Bones: map[string]resource.BoneTransform{"arm": {Position: mgl32.Vec3{0, 5, 10}, Rotation: mgl32.QuatIdent(), Scale: 1}}},
		},
	}
	doc := gltfutils.NewDocument()
	cw, err := NewClipWriter(testSkeleton(), []uint32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cw.Write(doc, clip, 0); err != nil {
		t.Fatal(err)
	}

	// fps 0 is played as 1 frame per second
	tr := cw.bones[1].translation
	expTimes := []float32{0, 2, 3}
	if len(tr.Times()) != len(expTimes) {
		t.Fatalf("translation times=%v; expected %v", tr.Times(), expTimes)
	}
	for i := range expTimes {
		if tr.Times()[i] != expTimes[i] {
			t.Errorf("translation times=%v; expected %v", tr.Times(), expTimes)
		}
	}

	sc := cw.bones[1].scale.Values()
	found := false
	for _, v := range sc {
		if v == (mgl32.Vec3{}) {
			found = true
		}
		if !(v[0] == v[0]) {
			t.Errorf("NaN scale stored: %v", v)
		}
	}
	if !found {
		t.Errorf("NaN scale not replaced by 0: %v", sc)
	}

	// untouched root keeps a single bind key
	if n := cw.bones[0].rotation.Len(); n != 1 {
		t.Errorf("root rotation samples=%d; expected 1", n)
	}
}

func TestClipWriterRootMotion(t *testing.T) {
	clip := &resource.AnimationClip{
		FPS:        10,
		FrameCount: 3,
		Frames:     make([]resource.Frame, 3),
		Movement:   []resource.MovementSample{{EndFrame: 2, Position: mgl32.Vec3{20, 0, 0}}},
	}
	cw, err := NewClipWriter(testSkeleton(), []uint32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cw.Write(gltfutils.NewDocument(), clip, 0); err != nil {
		t.Fatal(err)
	}
	root := cw.bones[0].translation.Values()
	last := root[len(root)-1]
	if last != (mgl32.Vec3{20, 0, 0}) {
		t.Errorf("root position at end=%v; expected [20 0 0]", last)
	}
	if n := cw.bones[1].translation.Len(); n != 1 {
		t.Errorf("child got root motion: %d samples", n)
	}
}

func TestClipWriterFlex(t *testing.T) {
	clip := &resource.AnimationClip{
		FPS:        30,
		FrameCount: 2,
		FlexNames:  []string{"smile", "blink"},
		Frames: []resource.Frame{
			{Flex: []float32{0, 1}},
			{Flex: []float32{0.5, 1}},
		},
	}
	doc := gltfutils.NewDocument()
	cw, err := NewClipWriter(&resource.Skeleton{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cw.AddMorphTarget(MorphTarget{Node: 4, Names: []string{"blink", "smile", "frown"}})
	idx, err := cw.Write(doc, clip, 0)
	if err != nil {
		t.Fatal(err)
	}
	a := doc.Animations[idx]
	if len(a.Channels) != 1 || a.Channels[0].Target.Path != gltf.TRSWeights || *a.Channels[0].Target.Node != 4 {
		t.Fatalf("weights channel not written: %+v", a.Channels)
	}
	out := doc.Accessors[*a.Samplers[0].Output]
	if out.Count != 6 {
		t.Errorf("weights output count=%d; expected 6", out.Count)
	}
	first := cw.weights[0].Values()[0]
	if first[0] != 1 || first[1] != 0 || first[2] != 0 {
		t.Errorf("weights remap=%v; expected [1 0 0]", first)
	}
}

func TestNewClipWriterMismatch(t *testing.T) {
	if _, err := NewClipWriter(testSkeleton(), []uint32{0}); err == nil {
		t.Errorf("expected error for joint count mismatch")
	}
}
