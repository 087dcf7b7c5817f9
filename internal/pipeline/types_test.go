package pipeline

import "testing"

func TestSpeakerProfileIsMainSpeaker(t *testing.T) {
	profile := SpeakerProfile{AppearanceCount: 6, AvgSize: 0.05}

	if !profile.IsMainSpeaker(10, false, false) {
		t.Errorf("expected profile with ratio 0.6 and size 0.05 to qualify as main speaker")
	}

	if profile.IsMainSpeaker(20, false, false) {
		t.Errorf("expected profile with ratio 0.3 to fail the appearance-ratio test")
	}
}

func TestSpeakerProfileSizeFloor(t *testing.T) {
	profile := SpeakerProfile{AppearanceCount: 8, AvgSize: 0.01}

	if profile.IsMainSpeaker(10, false, false) {
		t.Errorf("expected profile with size 0.01 to fail the min-size test")
	}
}

func TestAdEntryTemplateFallback(t *testing.T) {
	ad := AdEntry{
		Templates: map[string][]string{
			"general": {"fallback copy"},
		},
	}

	got, ok := ad.Template("tech")
	if !ok || got != "fallback copy" {
		t.Errorf("expected fallback to general template, got %q ok=%v", got, ok)
	}
}

func TestAdEntryTemplateNoMatch(t *testing.T) {
	ad := AdEntry{Templates: map[string][]string{}}

	if _, ok := ad.Template("tech"); ok {
		t.Errorf("expected no template match when catalog has no templates")
	}
}
