package remotejob

import "testing"

func TestMinEdgeCapScalesDownLargeMinEdge(t *testing.T) {
	got := MinEdgeCap(1920, 1080)
	// min edge 1080 > 480, scale = 480/1080; max(1920,1080)*scale
	want := int(float64(1920) * (480.0 / 1080.0))
	if abs(got-want) > 1 {
		t.Errorf("MinEdgeCap(1920,1080) = %d, want ~%d", got, want)
	}
}

func TestMinEdgeCapLeavesSmallMinEdgeUnchanged(t *testing.T) {
	got := MinEdgeCap(640, 360)
	if got != 640 {
		t.Errorf("MinEdgeCap(640,360) = %d, want 640", got)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestClassMatchesExactAndWildcard(t *testing.T) {
	if !classMatches("LoadImage", "LoadImage") {
		t.Errorf("expected exact match")
	}
	if classMatches("LoadImage", "LoadAudio") {
		t.Errorf("expected no match")
	}
	if !classMatches("TextEncodeQwenImageEditPlus", "TextEncode*") {
		t.Errorf("expected wildcard prefix match")
	}
	if classMatches("SomethingElse", "TextEncode*") {
		t.Errorf("expected wildcard prefix mismatch to fail")
	}
}

func TestInjectImageCleanupWritesImageAndPrompts(t *testing.T) {
	g := Graph{
		"1": {ClassType: "LoadImage", Inputs: map[string]interface{}{"image": "placeholder.png"}},
		"2": {ClassType: "TextEncodePositive", Inputs: map[string]interface{}{"prompt": "placeholder positive prompt"}, Meta: map[string]interface{}{"title": "positive"}},
		"3": {ClassType: "TextEncodeNegative", Inputs: map[string]interface{}{"prompt": ""}, Meta: map[string]interface{}{"title": "negative prompt"}},
	}

	out := InjectImageCleanup(g, "uploaded.png", "remove watermark", "blurry, text")

	if out["1"].Inputs["image"] != "uploaded.png" {
		t.Errorf("LoadImage.image = %v, want uploaded.png", out["1"].Inputs["image"])
	}
	if out["2"].Inputs["prompt"] != "remove watermark" {
		t.Errorf("positive prompt = %v, want 'remove watermark'", out["2"].Inputs["prompt"])
	}
	if out["3"].Inputs["prompt"] != "blurry, text" {
		t.Errorf("negative prompt = %v, want 'blurry, text'", out["3"].Inputs["prompt"])
	}

	// original template untouched
	if g["1"].Inputs["image"] != "placeholder.png" {
		t.Errorf("InjectImageCleanup mutated the source template")
	}
}

func TestInjectDigitalHumanWritesAllFields(t *testing.T) {
	g := Graph{
		"1": {ClassType: "LoadImage", Inputs: map[string]interface{}{}},
		"2": {ClassType: "LoadAudio", Inputs: map[string]interface{}{}},
		"3": {ClassType: "MultiTalkWav2VecEmbeds", Inputs: map[string]interface{}{}},
		"4": {ClassType: "VHS_VideoCombine", Inputs: map[string]interface{}{}},
		"5": {ClassType: "LayerUtility:ImageScaleByAspectRatio V2", Inputs: map[string]interface{}{}},
		"6": {ClassType: "WanVideoImageToVideoMultiTalk", Inputs: map[string]interface{}{}},
		"7": {ClassType: "WanVideoDecode", Inputs: map[string]interface{}{}},
	}

	out := InjectDigitalHuman(g, DigitalHumanParams{
		UploadedImageName: "face.png",
		UploadedAudioName: "voice.wav",
		FPS:               25,
		TargetWidth:       1920,
		TargetHeight:      1080,
	})

	if out["1"].Inputs["image"] != "face.png" {
		t.Errorf("image = %v", out["1"].Inputs["image"])
	}
	if out["2"].Inputs["audio"] != "voice.wav" {
		t.Errorf("audio = %v", out["2"].Inputs["audio"])
	}
	if out["3"].Inputs["fps"] != 25 {
		t.Errorf("fps = %v", out["3"].Inputs["fps"])
	}
	if out["4"].Inputs["frame_rate"] != 25 {
		t.Errorf("frame_rate = %v", out["4"].Inputs["frame_rate"])
	}
	if out["5"].Inputs["scale_to_length"] != MinEdgeCap(1920, 1080) {
		t.Errorf("scale_to_length = %v", out["5"].Inputs["scale_to_length"])
	}
	if out["6"].Inputs["colormatch"] != "strong" {
		t.Errorf("colormatch = %v", out["6"].Inputs["colormatch"])
	}
	if out["7"].Inputs["normalization"] != "minmax" {
		t.Errorf("normalization = %v", out["7"].Inputs["normalization"])
	}
}
