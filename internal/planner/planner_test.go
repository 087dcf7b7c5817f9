package planner

import "testing"

func TestMissingFieldsDetectsAllRequired(t *testing.T) {
	got := missingFields(videoAnalysisJSON{})
	want := []string{"theme", "category", "tone", "insertion_points"}

	if len(got) != len(want) {
		t.Fatalf("missingFields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("missingFields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMissingFieldsPassesWhenComplete(t *testing.T) {
	complete := videoAnalysisJSON{
		Theme:           "cooking",
		Category:        "lifestyle",
		Tone:            "casual",
		InsertionPoints: []insertionPointJSON{{Time: 10, Priority: 1}},
	}
	if got := missingFields(complete); len(got) != 0 {
		t.Errorf("missingFields() = %v, want empty", got)
	}
}
