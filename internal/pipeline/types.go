// Package pipeline holds the data model shared across every stage of the
// ad-insertion pipeline (spec section 3) and the error-kind taxonomy
// (spec section 7). Values here are plain, immutable once constructed;
// no stage mutates a value produced by another stage.
package pipeline

import "time"

// VideoMetadata describes the host video's container-level properties.
// Created at ingest, immutable thereafter.
type VideoMetadata struct {
	Width     int
	Height    int
	FPS       float64
	Duration  float64
	Codec     string
	HasAudio  bool
	Filesize  int64
}

// TranscriptionSegment is one time-aligned chunk of transcribed speech.
// Invariant: Start < End; segments are sorted by Start and non-overlapping.
type TranscriptionSegment struct {
	Text  string
	Start float64
	End   float64
	Words []WordTimestamp
}

// WordTimestamp is an optional word-level timing within a segment.
type WordTimestamp struct {
	Word  string
	Start float64
	End   float64
}

// TranscriptionResult is the full output of the transcription capability.
// Produced once, read many times.
type TranscriptionResult struct {
	Segments []TranscriptionSegment
	Language string
	FullText string
}

// InsertionCandidate is one planner-proposed insertion time. Priority 1 is
// best; candidates are ranked by Priority ascending.
type InsertionCandidate struct {
	Time           float64
	Priority       int
	Rationale      string
	ContextBefore  string
	ContextAfter   string
	TransitionHint string
}

// FaceObservation is a single detected face, with coordinates normalized
// to [0,1] against the frame it was detected in. Invariant: Confidence >=
// detector threshold and the face's smaller pixel dimension >= minimum
// face size (enforced by the detector adapter, not by this struct).
type FaceObservation struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
}

func (f FaceObservation) Width() float64  { return f.X2 - f.X1 }
func (f FaceObservation) Height() float64 { return f.Y2 - f.Y1 }
func (f FaceObservation) Area() float64   { return f.Width() * f.Height() }
func (f FaceObservation) CenterX() float64 { return (f.X1 + f.X2) / 2 }
func (f FaceObservation) CenterY() float64 { return (f.Y1 + f.Y2) / 2 }

// SpeakerProfile aggregates statistics for one face-identity cluster
// produced by greedy clustering over sampled frames (spec 4.4).
type SpeakerProfile struct {
	AvgX, AvgY         float64 // normalized position in [0,1]
	AvgSize            float64 // normalized size ratio
	PositionVariance   float64
	AvgConfidence      float64
	AppearanceCount    int
	BestFramePath      string
	BestFrameTimestamp float64
	BestFrameConfidence float64
}

// IsMainSpeaker reports whether this profile satisfies the main-speaker
// test (spec 4.4): appearance ratio >= 0.5 and avg size >= 0.03. The
// centered-position and variance checks are advisory unless the caller's
// configuration opts into enforcing them.
func (p SpeakerProfile) IsMainSpeaker(sampledFrames int, enforceCenter, enforceVariance bool) bool {
	if sampledFrames == 0 {
		return false
	}
	appearanceRatio := float64(p.AppearanceCount) / float64(sampledFrames)
	if appearanceRatio < 0.5 {
		return false
	}
	if p.AvgSize < 0.03 {
		return false
	}
	if enforceCenter {
		if p.AvgX < 0.2 || p.AvgX > 0.8 || p.AvgY < 0.1 || p.AvgY > 0.9 {
			return false
		}
	}
	if enforceVariance && p.PositionVariance > 0.15 {
		return false
	}
	return true
}

// SceneAnalysis is the output of main-speaker identification (spec 4.4).
type SceneAnalysis struct {
	IsSingleSpeaker    bool
	Speaker            *SpeakerProfile
	TotalSampledFrames int
	FramesWithFaces    int
	UniqueSpeakerCount int
}

// AdEntry is one catalog entry (spec 4.7, 6).
type AdEntry struct {
	ID              string
	DisplayName     string
	Product         string
	Category        string
	Enabled         bool
	Priority        int // smaller = higher priority
	SellingPoints   []string
	TargetScenarios []string
	Templates       map[string][]string // keyed by category, "general" is the fallback key
}

// Template returns the first template for category, falling back to the
// "general" key when the category has none (spec 4.7, original_source
// ads.py get_template).
func (a AdEntry) Template(category string) (string, bool) {
	if templates, ok := a.Templates[category]; ok && len(templates) > 0 {
		return templates[0], true
	}
	if category != "general" {
		if templates, ok := a.Templates["general"]; ok && len(templates) > 0 {
			return templates[0], true
		}
	}
	return "", false
}

// ChosenPlan is the fully resolved plan after insertion-point selection
// and ad selection/copy generation (spec 3, 4.5, 4.7).
type ChosenPlan struct {
	Candidate        InsertionCandidate
	FramePath        string
	Timestamp        float64
	ReferenceAudio   string
	Ad               AdEntry
	AdCopy           string
	UsedTierB        bool
}

// GeneratedAssets are the outputs of the remote generative stage (spec 4.8).
type GeneratedAssets struct {
	CleanedImagePath      string
	ClonedAudioPath       string
	DigitalHumanVideoPath string
	ImageCleanupDegraded  bool
}

// PipelineResult is returned by processOne/processBatch (spec 3, 4.1). The
// orchestrator never throws across its own boundary; every failure is
// reported through this value.
type PipelineResult struct {
	VideoID          string
	OriginalPath     string
	OutputPath       string // empty on failure
	Success          bool
	ErrorMessage     string
	ProcessingTime   time.Duration

	// Echoed plan fields for reporting, populated on success.
	TranscriptionText string
	VideoTheme        string
	InsertionTime     float64
	AdScript          string
	DigitalHumanVideo string
}
