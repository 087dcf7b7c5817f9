package scene

import (
	"testing"

	"github.com/bobarin/adinsert/internal/pipeline"
)

func face(cx, cy, size, confidence float64) pipeline.FaceObservation {
	half := size / 2
	return pipeline.FaceObservation{
		X1: cx - half, Y1: cy - half, X2: cx + half, Y2: cy + half,
		Confidence: confidence,
	}
}

func TestClusterMergesStableSpeaker(t *testing.T) {
	samples := []FrameSample{
		{Time: 0, FramePath: "f0.jpg", Faces: []pipeline.FaceObservation{face(0.5, 0.5, 0.3, 0.9)}},
		{Time: 5, FramePath: "f1.jpg", Faces: []pipeline.FaceObservation{face(0.51, 0.49, 0.31, 0.92)}},
		{Time: 10, FramePath: "f2.jpg", Faces: []pipeline.FaceObservation{face(0.49, 0.5, 0.29, 0.88)}},
	}

	clusters := Cluster(samples)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].appearanceCount != 3 {
		t.Errorf("appearanceCount = %d, want 3", clusters[0].appearanceCount)
	}
}

func TestClusterSplitsDistantFaces(t *testing.T) {
	samples := []FrameSample{
		{Time: 0, FramePath: "f0.jpg", Faces: []pipeline.FaceObservation{face(0.2, 0.2, 0.1, 0.9)}},
		{Time: 5, FramePath: "f1.jpg", Faces: []pipeline.FaceObservation{face(0.8, 0.8, 0.1, 0.9)}},
	}

	clusters := Cluster(samples)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
}

func TestAnalyzeIdentifiesMainSpeaker(t *testing.T) {
	var samples []FrameSample
	for i := 0; i < 10; i++ {
		samples = append(samples, FrameSample{
			Time:      float64(i) * 5,
			FramePath: "f.jpg",
			Faces:     []pipeline.FaceObservation{face(0.5, 0.5, 0.3, 0.9)},
		})
	}

	result := Analyze(samples, false, false)
	if !result.IsSingleSpeaker {
		t.Fatalf("expected single-speaker scene")
	}
	if result.Speaker == nil {
		t.Fatalf("expected speaker profile to be set")
	}
	if result.Speaker.AppearanceCount != 10 {
		t.Errorf("AppearanceCount = %d, want 10", result.Speaker.AppearanceCount)
	}
}

func TestAnalyzeRejectsLowAppearanceRatio(t *testing.T) {
	samples := []FrameSample{
		{Time: 0, FramePath: "f0.jpg", Faces: []pipeline.FaceObservation{face(0.5, 0.5, 0.3, 0.9)}},
		{Time: 5, FramePath: "f1.jpg"},
		{Time: 10, FramePath: "f2.jpg"},
		{Time: 15, FramePath: "f3.jpg"},
	}

	result := Analyze(samples, false, false)
	if result.IsSingleSpeaker {
		t.Errorf("expected no single speaker with low appearance ratio")
	}
}

func TestMatchesSpeakerWithinRadius(t *testing.T) {
	profile := pipeline.SpeakerProfile{AvgX: 0.5, AvgY: 0.5, AvgSize: 0.3}
	faces := []pipeline.FaceObservation{face(0.55, 0.52, 0.3, 0.9)}

	matched, _ := MatchesSpeaker(faces, profile)
	if !matched {
		t.Errorf("expected face within match radius to match")
	}
}

func TestMatchesSpeakerOutsideRadius(t *testing.T) {
	profile := pipeline.SpeakerProfile{AvgX: 0.2, AvgY: 0.2, AvgSize: 0.3}
	faces := []pipeline.FaceObservation{face(0.9, 0.9, 0.3, 0.9)}

	matched, _ := MatchesSpeaker(faces, profile)
	if matched {
		t.Errorf("expected distant face not to match")
	}
}
