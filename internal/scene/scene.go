// Package scene identifies a single main speaker across sampled video
// frames via greedy single-pass face clustering (spec 4.4), grounded in
// original_source/src/core/speaker_detector.py's SpeakerDetector.
package scene

import (
	"context"
	"math"

	"github.com/bobarin/adinsert/internal/pipeline"
)

// FaceDetector is the external face-detection capability. Coordinates on
// returned FaceObservation values are normalized to [0,1] against the
// frame they were detected in.
type FaceDetector interface {
	Detect(ctx context.Context, framePath string) ([]pipeline.FaceObservation, error)
}

// FrameSample is one sampled video frame and its detected faces.
type FrameSample struct {
	Time      float64
	FramePath string
	Faces     []pipeline.FaceObservation
}

const (
	clusterDistanceThreshold = 0.2
	clusterSizeDiffThreshold = 0.5
	matchNeighborhood        = 0.2
)

type cluster struct {
	appearanceCount     int
	avgX, avgY          float64
	avgSize             float64
	confidenceAvg       float64
	bestFramePath       string
	bestFrameTime       float64
	bestFrameConfidence float64
	positions           [][2]float64
}

// Cluster groups the largest face in each sample into identity clusters
// using the greedy single-pass rule (spec 4.4): a face joins the first
// cluster within clusterDistanceThreshold of normalized center and within
// clusterSizeDiffThreshold of relative size, otherwise it starts a new
// cluster. Only the largest face per frame is considered, matching the
// original detector's single-main-speaker assumption.
func Cluster(samples []FrameSample) []*cluster {
	var clusters []*cluster

	for _, s := range samples {
		face, ok := largestFace(s.Faces)
		if !ok {
			continue
		}

		x, y := face.CenterX(), face.CenterY()
		size := face.Area()

		var matched *cluster
		for _, c := range clusters {
			dist := math.Hypot(x-c.avgX, y-c.avgY)
			sizeDiff := math.Abs(size-c.avgSize) / math.Max(c.avgSize, 0.01)
			if dist < clusterDistanceThreshold && sizeDiff < clusterSizeDiffThreshold {
				matched = c
				break
			}
		}

		if matched == nil {
			clusters = append(clusters, &cluster{
				appearanceCount:     1,
				avgX:                x,
				avgY:                y,
				avgSize:             size,
				confidenceAvg:       face.Confidence,
				bestFramePath:       s.FramePath,
				bestFrameTime:       s.Time,
				bestFrameConfidence: face.Confidence,
				positions:           [][2]float64{{x, y}},
			})
			continue
		}

		n := float64(matched.appearanceCount)
		matched.avgX = (matched.avgX*n + x) / (n + 1)
		matched.avgY = (matched.avgY*n + y) / (n + 1)
		matched.avgSize = (matched.avgSize*n + size) / (n + 1)
		matched.confidenceAvg = (matched.confidenceAvg*n + face.Confidence) / (n + 1)
		matched.appearanceCount++
		matched.positions = append(matched.positions, [2]float64{x, y})

		if face.Confidence > matched.confidenceAvg*0.95 {
			matched.bestFramePath = s.FramePath
			matched.bestFrameTime = s.Time
			matched.bestFrameConfidence = face.Confidence
		}
	}

	return clusters
}

func (c *cluster) toProfile() pipeline.SpeakerProfile {
	var near [][2]float64
	for _, p := range c.positions {
		if math.Hypot(p[0]-c.avgX, p[1]-c.avgY) < matchNeighborhood {
			near = append(near, p)
		}
	}

	variance := 0.0
	if len(near) > 1 {
		var meanX, meanY float64
		for _, p := range near {
			meanX += p[0]
			meanY += p[1]
		}
		meanX /= float64(len(near))
		meanY /= float64(len(near))

		var sumSq float64
		for _, p := range near {
			dx, dy := p[0]-meanX, p[1]-meanY
			sumSq += dx*dx + dy*dy
		}
		variance = sumSq / float64(len(near)*2)
	}

	return pipeline.SpeakerProfile{
		AvgX:                c.avgX,
		AvgY:                c.avgY,
		AvgSize:             c.avgSize,
		PositionVariance:    variance,
		AvgConfidence:       c.confidenceAvg,
		AppearanceCount:     c.appearanceCount,
		BestFramePath:       c.bestFramePath,
		BestFrameTimestamp:  c.bestFrameTime,
		BestFrameConfidence: c.bestFrameConfidence,
	}
}

// LargestFace returns the largest-area face in faces, used by callers
// that need the same face a cluster or match would pick.
func LargestFace(faces []pipeline.FaceObservation) (pipeline.FaceObservation, bool) {
	return largestFace(faces)
}

func largestFace(faces []pipeline.FaceObservation) (pipeline.FaceObservation, bool) {
	if len(faces) == 0 {
		return pipeline.FaceObservation{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() {
			best = f
		}
	}
	return best, true
}

// Analyze identifies the main speaker across samples and reports the
// scene classification (spec 4.4). enforceCenter/enforceVariance are the
// EnforceCenterCheck/EnforceVarianceCheck config knobs.
func Analyze(samples []FrameSample, enforceCenter, enforceVariance bool) pipeline.SceneAnalysis {
	framesWithFaces := 0
	for _, s := range samples {
		if len(s.Faces) > 0 {
			framesWithFaces++
		}
	}

	clusters := Cluster(samples)

	result := pipeline.SceneAnalysis{
		TotalSampledFrames: len(samples),
		FramesWithFaces:    framesWithFaces,
	}

	if len(clusters) == 0 {
		return result
	}

	main := clusters[0]
	for _, c := range clusters[1:] {
		if c.appearanceCount > main.appearanceCount {
			main = c
		}
	}

	profile := main.toProfile()

	if !profile.IsMainSpeaker(len(samples), enforceCenter, enforceVariance) {
		result.UniqueSpeakerCount = estimateUniqueSpeakers(samples, framesWithFaces)
		return result
	}

	result.IsSingleSpeaker = true
	result.Speaker = &profile
	result.UniqueSpeakerCount = 1
	return result
}

func estimateUniqueSpeakers(samples []FrameSample, framesWithFaces int) int {
	if framesWithFaces == 0 {
		return 0
	}
	total := 0
	for _, s := range samples {
		total += len(s.Faces)
	}
	avg := total / framesWithFaces
	if avg < 1 {
		avg = 1
	}
	return avg
}

// MatchesSpeaker reports whether the largest face in faces is within the
// main-speaker match radius of profile (spec 4.4/4.5 tier A face-match
// check), mirroring is_main_speaker_in_frame's 0.25 distance threshold.
func MatchesSpeaker(faces []pipeline.FaceObservation, profile pipeline.SpeakerProfile) (bool, pipeline.FaceObservation) {
	face, ok := largestFace(faces)
	if !ok {
		return false, pipeline.FaceObservation{}
	}
	dist := math.Hypot(face.CenterX()-profile.AvgX, face.CenterY()-profile.AvgY)
	return dist < 0.25, face
}
