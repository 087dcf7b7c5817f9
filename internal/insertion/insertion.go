// Package insertion implements the three-tier insertion-point selection
// algorithm (spec 4.5): semantic x speaker-match scoring, speaker
// best-frame fallback, and a terminal failure when neither resolves.
package insertion

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bobarin/adinsert/internal/pipeline"
	"github.com/bobarin/adinsert/internal/scene"
)

// FrameExtractor reads a single frame at timestamp into outPath.
// *media.Prober satisfies this.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outPath string) error
}

// BestFrameExtractor additionally searches a window around a target time
// for the sharpest candidate frame (spec 4.5's "pick the sharpest of
// several candidate frames within one frame period of the target time,
// rather than a single exact-timestamp read"). *media.Prober satisfies this.
type BestFrameExtractor interface {
	FrameExtractor
	ExtractBestFrameAround(ctx context.Context, videoPath string, targetTime, windowSize float64, numCandidates int, duration float64, scratchDir string) (framePath string, timestamp float64, err error)
}

// tierACandidateCount is the number of sharpness candidates searched
// within the one-frame-period window around each planner-proposed time.
const tierACandidateCount = 5

// Selection is the resolved insertion point: the candidate it came from,
// the frame to clean/clone against, and whether tier B's fallback fired.
type Selection struct {
	Candidate pipeline.InsertionCandidate
	FramePath string
	Timestamp float64
	UsedTierB bool
}

// Selector resolves candidates into a Selection using frame extraction
// and face detection.
type Selector struct {
	Detector scene.FaceDetector
	Prober   BestFrameExtractor
}

// Select runs tiers A, B, C in order (spec 4.5). candidates must be
// ranked by Priority ascending (priority 1 best). scratchDir receives the
// per-candidate probe frames.
func (s *Selector) Select(ctx context.Context, candidates []pipeline.InsertionCandidate, profile *pipeline.SpeakerProfile, videoPath string, fps, duration float64, scratchDir string) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, pipeline.NewError(pipeline.KindNoUsableInsertion, "localize", fmt.Errorf("no candidates to select from"))
	}

	maxPriority := candidates[0].Priority
	for _, c := range candidates[1:] {
		if c.Priority > maxPriority {
			maxPriority = c.Priority
		}
	}
	if maxPriority <= 0 {
		maxPriority = 1
	}

	var (
		best      *pipeline.InsertionCandidate
		bestFrame string
		bestScore = -1.0
	)

	framePeriod := 1.0
	if fps > 0 {
		framePeriod = 1 / fps
	}
	windowSize := 2 * framePeriod

	for i := range candidates {
		c := candidates[i]

		candidateDir := filepath.Join(scratchDir, fmt.Sprintf("tierA_candidate_%02d", i))
		framePath, _, err := s.Prober.ExtractBestFrameAround(ctx, videoPath, c.Time, windowSize, tierACandidateCount, duration, candidateDir)
		if err != nil {
			continue // no readable probe frame disqualifies this candidate, not the whole selection
		}

		faces, err := s.Detector.Detect(ctx, framePath)
		if err != nil {
			continue
		}

		var faceConfidence float64
		if profile != nil {
			matched, face := scene.MatchesSpeaker(faces, *profile)
			if !matched {
				continue
			}
			faceConfidence = face.Confidence
		} else {
			face, ok := scene.LargestFace(faces)
			if !ok {
				continue
			}
			faceConfidence = face.Confidence
		}

		semantic := float64(maxPriority+1-c.Priority) / float64(maxPriority)
		score := 0.4*semantic + 0.6*faceConfidence

		if score > bestScore || (score == bestScore && isEarlierTieBreak(c, *best)) {
			bestScore = score
			candidateCopy := c
			best = &candidateCopy
			bestFrame = framePath
		}
	}

	if best != nil {
		return Selection{Candidate: *best, FramePath: bestFrame, Timestamp: best.Time, UsedTierB: false}, nil
	}

	if profile != nil && profile.BestFramePath != "" {
		fallback := firstByPriority(candidates)
		return Selection{
			Candidate: fallback,
			FramePath: profile.BestFramePath,
			Timestamp: profile.BestFrameTimestamp,
			UsedTierB: true,
		}, nil
	}

	return Selection{}, pipeline.NewError(pipeline.KindNoUsableInsertion, "localize", nil)
}

func isEarlierTieBreak(candidate, current pipeline.InsertionCandidate) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority < current.Priority
	}
	return candidate.Time < current.Time
}

func firstByPriority(candidates []pipeline.InsertionCandidate) pipeline.InsertionCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Priority < best.Priority || (c.Priority == best.Priority && c.Time < best.Time) {
			best = c
		}
	}
	return best
}
