package insertion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobarin/adinsert/internal/pipeline"
)

type fakeExtractor struct{}

func (fakeExtractor) ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outPath string) error {
	return nil
}

func (fakeExtractor) ExtractBestFrameAround(ctx context.Context, videoPath string, targetTime, windowSize float64, numCandidates int, duration float64, scratchDir string) (string, float64, error) {
	return filepath.Join(scratchDir, "best.jpg"), targetTime, nil
}

type fakeDetector struct {
	byPath map[string][]pipeline.FaceObservation
}

func (f fakeDetector) Detect(ctx context.Context, framePath string) ([]pipeline.FaceObservation, error) {
	return f.byPath[framePath], nil
}

func faceAt(cx, cy, size, confidence float64) pipeline.FaceObservation {
	half := size / 2
	return pipeline.FaceObservation{X1: cx - half, Y1: cy - half, X2: cx + half, Y2: cy + half, Confidence: confidence}
}

func TestSelectTierAPicksHighestScoringAcceptedCandidate(t *testing.T) {
	candidates := []pipeline.InsertionCandidate{
		{Time: 10, Priority: 1},
		{Time: 20, Priority: 2},
	}
	profile := &pipeline.SpeakerProfile{AvgX: 0.5, AvgY: 0.5, AvgSize: 0.3}

	detector := fakeDetector{byPath: map[string][]pipeline.FaceObservation{
		filepath.Join("scratch", "tierA_candidate_00", "best.jpg"): {faceAt(0.5, 0.5, 0.3, 0.95)},
		filepath.Join("scratch", "tierA_candidate_01", "best.jpg"): {faceAt(0.5, 0.5, 0.3, 0.99)},
	}}

	sel := Selector{Detector: detector, Prober: fakeExtractor{}}
	result, err := sel.Select(context.Background(), candidates, profile, "video.mp4", 25, 120, "scratch")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if result.UsedTierB {
		t.Errorf("expected tier A to resolve, got tier B")
	}
	if result.Candidate.Time != 10 {
		t.Errorf("expected priority-1 candidate (higher semantic score) to win, got time=%v", result.Candidate.Time)
	}
}

func TestSelectTierBFallsBackToSpeakerBestFrame(t *testing.T) {
	candidates := []pipeline.InsertionCandidate{
		{Time: 10, Priority: 1},
	}
	profile := &pipeline.SpeakerProfile{
		AvgX: 0.1, AvgY: 0.1, AvgSize: 0.3,
		BestFramePath: "best_frame.jpg", BestFrameTimestamp: 42,
	}

	// no faces match the profile anywhere -> tier A fails
	detector := fakeDetector{byPath: map[string][]pipeline.FaceObservation{}}

	sel := Selector{Detector: detector, Prober: fakeExtractor{}}
	result, err := sel.Select(context.Background(), candidates, profile, "video.mp4", 25, 120, "scratch")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !result.UsedTierB {
		t.Errorf("expected tier B fallback")
	}
	if result.FramePath != "best_frame.jpg" || result.Timestamp != 42 {
		t.Errorf("expected speaker best-frame fallback, got %+v", result)
	}
}

func TestSelectTierCFailsWithoutProfileOrMatch(t *testing.T) {
	candidates := []pipeline.InsertionCandidate{{Time: 10, Priority: 1}}
	detector := fakeDetector{byPath: map[string][]pipeline.FaceObservation{}}

	sel := Selector{Detector: detector, Prober: fakeExtractor{}}
	_, err := sel.Select(context.Background(), candidates, nil, "video.mp4", 25, 120, "scratch")
	if err == nil {
		t.Fatalf("expected NoUsableInsertion error")
	}
}
