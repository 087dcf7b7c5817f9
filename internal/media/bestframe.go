package media

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
)

// ExtractBestFrameAround searches a window around targetTime for the
// sharpest frame (Laplacian-variance sharpness), mirroring
// original_source/src/core/video_processor.py's
// extract_best_frame_around_time. Used by tier A of insertion-point
// selection (spec 4.5) so a frame landing near a scene cut still resolves
// to something readable.
func (p *Prober) ExtractBestFrameAround(ctx context.Context, videoPath string, targetTime, windowSize float64, numCandidates int, duration float64, scratchDir string) (framePath string, timestamp float64, err error) {
	start := math.Max(0, targetTime-windowSize/2)
	end := targetTime + windowSize/2
	if duration > 0 && end > duration {
		end = duration
	}
	if end <= start {
		end = start + 0.01
	}

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create scratch dir: %w", err)
	}

	bestScore := -1.0
	bestPath := ""
	bestTime := targetTime

	for i := 0; i < numCandidates; i++ {
		var ts float64
		if numCandidates == 1 {
			ts = start
		} else {
			ts = start + (end-start)*float64(i)/float64(numCandidates-1)
		}

		candidatePath := filepath.Join(scratchDir, fmt.Sprintf("candidate_%03d.jpg", i))
		if err := p.ExtractFrame(ctx, videoPath, ts, candidatePath); err != nil {
			continue // a single unreadable candidate frame doesn't abort the search
		}

		score, err := sharpnessScore(candidatePath)
		if err != nil {
			continue
		}

		if score > bestScore {
			bestScore = score
			bestPath = candidatePath
			bestTime = ts
		}
	}

	if bestPath == "" {
		return "", 0, fmt.Errorf("no readable frame found in window [%.2f, %.2f]", start, end)
	}

	return bestPath, bestTime, nil
}

// sharpnessScore computes the variance of the discrete Laplacian over the
// grayscale image at path — a standard focus-sharpness metric.
func sharpnessScore(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0, fmt.Errorf("image too small for sharpness scoring")
	}

	gray := make([]float64, w*h)
	at := func(x, y int) float64 { return gray[y*w+x] }

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	var sum, sumSq float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*at(x, y) + at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1)
			sum += lap
			sumSq += lap * lap
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	mean := sum / float64(count)
	return sumSq/float64(count) - mean*mean, nil
}
