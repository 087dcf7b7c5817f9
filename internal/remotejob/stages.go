package remotejob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/pipeline"
)

type fileEntry struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
}

type nodeOutput struct {
	Images []fileEntry `json:"images"`
	Videos []fileEntry `json:"videos"`
	Audio  []fileEntry `json:"audio"`
}

// findOutput scans every node's outputs for the first file of kind
// ("images" | "videos" | "audio"), since the graph is walked by
// class_type, not by a known output node id (spec 9).
func findOutput(outputs map[string]json.RawMessage, kind string) (FileRef, error) {
	for _, raw := range outputs {
		var out nodeOutput
		if err := json.Unmarshal(raw, &out); err != nil {
			continue
		}
		var entries []fileEntry
		switch kind {
		case "images":
			entries = out.Images
		case "videos":
			entries = out.Videos
		case "audio":
			entries = out.Audio
		}
		if len(entries) > 0 {
			return FileRef{Filename: entries[0].Filename, Subfolder: entries[0].Subfolder, Kind: kind}, nil
		}
	}
	return FileRef{}, fmt.Errorf("no %s output in job result", kind)
}

// runGraph submits graph, awaits completion, and downloads the first
// output of kind to outPath.
func (c *Client) runGraph(ctx context.Context, graph Graph, kind, outPath string, timeout, pollInterval time.Duration) error {
	jobID, err := c.SubmitGraph(ctx, graph)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	outputs, err := c.AwaitCompletion(ctx, jobID, timeout, pollInterval)
	if err != nil {
		return fmt.Errorf("await completion: %w", err)
	}

	ref, err := findOutput(outputs, kind)
	if err != nil {
		return err
	}

	return c.Download(ctx, ref, outPath)
}

// ImageCleanupParams bundles the inputs for RunImageCleanup.
type ImageCleanupParams struct {
	Template                 Graph
	UploadedImageName         string
	PositivePrompt            string
	NegativePrompt            string
	OutPath                   string
	PollInterval, JobTimeout  time.Duration
}

// RunImageCleanup runs the image-cleanup graph with the 2s/4s retry
// policy (spec 4.8). On exhausted retries it returns
// ImageCleanupPermanentFail — the caller degrades to the original
// keyframe rather than treating this as pipeline-fatal.
func (c *Client) RunImageCleanup(ctx context.Context, log *logging.Logger, params ImageCleanupParams) error {
	graph := InjectImageCleanup(params.Template, params.UploadedImageName, params.PositivePrompt, params.NegativePrompt)

	backoffs := []time.Duration{2 * time.Second, 4 * time.Second}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.runGraph(ctx, graph, "images", params.OutPath, params.JobTimeout, params.PollInterval); err != nil {
			lastErr = err
			if attempt == 2 {
				break
			}
			log.Warn("image cleanup attempt %d failed, retrying in %s: %v", attempt, backoffs[attempt-1], err)
			if err := sleepOrCancel(ctx, backoffs[attempt-1]); err != nil {
				return err
			}
			continue
		}
		return nil
	}

	return pipeline.NewError(pipeline.KindImageCleanupPermanentFail, "synthesize", lastErr)
}

// VoiceCloneParams bundles the inputs for RunVoiceClone.
type VoiceCloneParams struct {
	Template                Graph
	UploadedAudioName       string
	AdCopy                  string
	OutPath                 string
	PollInterval, JobTimeout time.Duration
}

// RunVoiceClone runs the voice-clone graph with the 2s/4s retry policy.
// Exhausted retries are pipeline-fatal (spec 4.8).
func (c *Client) RunVoiceClone(ctx context.Context, log *logging.Logger, params VoiceCloneParams) error {
	graph := InjectVoiceClone(params.Template, params.UploadedAudioName, params.AdCopy)

	backoffs := []time.Duration{2 * time.Second, 4 * time.Second}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.runGraph(ctx, graph, "audio", params.OutPath, params.JobTimeout, params.PollInterval); err != nil {
			lastErr = err
			if attempt == 2 {
				break
			}
			log.Warn("voice clone attempt %d failed, retrying in %s: %v", attempt, backoffs[attempt-1], err)
			if err := sleepOrCancel(ctx, backoffs[attempt-1]); err != nil {
				return err
			}
			continue
		}
		return nil
	}

	return pipeline.NewError(pipeline.KindVoiceClonePermanentFail, "synthesize", lastErr)
}

// DigitalHumanParamsFull bundles the inputs for RunDigitalHuman.
type DigitalHumanParamsFull struct {
	Template                 Graph
	Params                   DigitalHumanParams
	OutPath                  string
	PollInterval, JobTimeout time.Duration
}

// RunDigitalHuman runs the digital-human graph with the 3s/6s retry
// policy. Exhausted retries are pipeline-fatal (spec 4.8).
func (c *Client) RunDigitalHuman(ctx context.Context, log *logging.Logger, params DigitalHumanParamsFull) error {
	graph := InjectDigitalHuman(params.Template, params.Params)

	backoffs := []time.Duration{3 * time.Second, 6 * time.Second}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := c.runGraph(ctx, graph, "videos", params.OutPath, params.JobTimeout, params.PollInterval); err != nil {
			lastErr = err
			if attempt == 2 {
				break
			}
			log.Warn("digital human attempt %d failed, retrying in %s: %v", attempt, backoffs[attempt-1], err)
			if err := sleepOrCancel(ctx, backoffs[attempt-1]); err != nil {
				return err
			}
			continue
		}
		return nil
	}

	return pipeline.NewError(pipeline.KindDigitalHumanPermanentFail, "synthesize", lastErr)
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
