package adcopy

import (
	"strings"
	"testing"
)

func TestLanguageNameMapsKnownPrefixes(t *testing.T) {
	cases := map[string]string{
		"zh":    "Chinese",
		"zh-CN": "Chinese",
		"en":    "English",
		"en-US": "English",
		"ja":    "Japanese",
		"ko":    "Korean",
		"fr":    "fr",
	}
	for input, want := range cases {
		if got := languageName(input); got != want {
			t.Errorf("languageName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildUserPromptIncludesTransitionHint(t *testing.T) {
	req := Request{
		VideoTheme:     "cooking",
		VideoCategory:  "lifestyle",
		VideoTone:      "casual",
		ContextBefore:  "chopping onions",
		ContextAfter:   "adding them to the pan",
		TransitionHint: "tie it to kitchen gear",
	}
	req.Ad.DisplayName = "ChopMaster"
	req.Ad.SellingPoints = []string{"fast", "safe"}

	prompt := buildUserPrompt(req)

	if !strings.Contains(prompt, "tie it to kitchen gear") {
		t.Errorf("expected prompt to include transition hint, got: %s", prompt)
	}
	if !strings.Contains(prompt, "ChopMaster") {
		t.Errorf("expected prompt to include product name, got: %s", prompt)
	}
}

func TestBuildUserPromptOmitsEmptyTransitionHint(t *testing.T) {
	req := Request{VideoTheme: "cooking", VideoCategory: "lifestyle", VideoTone: "casual"}
	prompt := buildUserPrompt(req)
	if strings.Contains(prompt, "Suggested transition approach") {
		t.Errorf("expected no transition suggestion line when hint is empty, got: %s", prompt)
	}
}
