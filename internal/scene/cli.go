package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"os/exec"

	"github.com/bobarin/adinsert/internal/pipeline"
)

// cliFace is the wire shape one detected face takes on the external
// detector process's stdout.
type cliFace struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// CLIDetector runs a configured external binary against a frame image and
// parses a JSON array of bounding boxes from its stdout. Unlike the
// demux/transcribe capabilities, original_source/src/core/face_detector.py
// embeds its model (MTCNN) in-process with no subprocess precedent to
// port, and no single face-detection CLI is canonical the way `ffmpeg` or
// `whisper` are — so this is a generic opaque-process contract (spec
// section 9's "treat model backends as opaque collaborators" applied to
// face detection) rather than a port of a specific tool.
type CLIDetector struct {
	BinPath             string  // path to an external face-detector executable
	ConfidenceThreshold float64 // spec 4.4: confidence >= 0.9
	MinFaceSizePx       int     // spec 4.4: min dimension >= 20px
}

func NewCLIDetector(binPath string, confidenceThreshold float64, minFaceSizePx int) *CLIDetector {
	return &CLIDetector{BinPath: binPath, ConfidenceThreshold: confidenceThreshold, MinFaceSizePx: minFaceSizePx}
}

// Detect invokes BinPath with framePath as its sole argument and expects a
// JSON array of {x1,y1,x2,y2,confidence} objects, coordinates normalized
// to [0,1], on stdout. It then applies the FaceObservation invariant
// itself (spec 4.4/35: confidence >= detectorThreshold and
// min(width,height) >= minFaceSize in pixels), mirroring
// original_source/src/core/face_detector.py's detect_faces, which filters
// on the same two bounds before returning.
func (d *CLIDetector) Detect(ctx context.Context, framePath string) ([]pipeline.FaceObservation, error) {
	if d.BinPath == "" {
		return nil, fmt.Errorf("no face-detector binary configured")
	}

	cmd := exec.CommandContext(ctx, d.BinPath, framePath)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("face detector: %w", err)
	}

	var faces []cliFace
	if err := json.Unmarshal(out, &faces); err != nil {
		return nil, fmt.Errorf("parse face detector output: %w", err)
	}

	frameWidth, frameHeight, err := imageDimensions(framePath)
	if err != nil {
		return nil, fmt.Errorf("read frame dimensions for size filter: %w", err)
	}

	result := make([]pipeline.FaceObservation, 0, len(faces))
	for _, f := range faces {
		if f.Confidence < d.ConfidenceThreshold {
			continue
		}
		widthPx := (f.X2 - f.X1) * frameWidth
		heightPx := (f.Y2 - f.Y1) * frameHeight
		if math.Min(widthPx, heightPx) < float64(d.MinFaceSizePx) {
			continue
		}
		result = append(result, pipeline.FaceObservation{X1: f.X1, Y1: f.Y1, X2: f.X2, Y2: f.Y2, Confidence: f.Confidence})
	}
	return result, nil
}

// imageDimensions decodes just the header of path to recover its pixel
// dimensions, needed to convert the detector's normalized bbox into the
// pixel-space min-face-size check.
func imageDimensions(path string) (width, height float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}
