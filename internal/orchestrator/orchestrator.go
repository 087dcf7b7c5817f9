// Package orchestrator sequences the five pipeline phases (spec 4.1):
// Ingest, Understand, Localize & Stage, Synthesize, Compose. It owns the
// stage DAG, never throws across its own boundary, and reports every
// outcome through pipeline.PipelineResult — grounded in
// original_source/src/core/pipeline.py's VideoPipeline.process_video /
// batch_process, with phase-4's concurrent uploads modeled on
// internal/worker/worker.go's errgroup.WithContext fan-out.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/adinsert/internal/adcopy"
	"github.com/bobarin/adinsert/internal/catalog"
	"github.com/bobarin/adinsert/internal/config"
	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/media"
	"github.com/bobarin/adinsert/internal/pipeline"
	"github.com/bobarin/adinsert/internal/planner"
	"github.com/bobarin/adinsert/internal/remotejob"
	"github.com/bobarin/adinsert/internal/scene"
	"github.com/bobarin/adinsert/internal/transcript"
)

// templateSet holds the three static job-graph templates loaded once at
// construction (spec 4.8).
type templateSet struct {
	imageCleanup remotejob.Graph
	voiceClone   remotejob.Graph
	digitalHuman remotejob.Graph
}

// Orchestrator wires every capability the pipeline needs. It is built
// once per process and reused across processOne/processBatch calls.
type Orchestrator struct {
	cfg *config.Config
	log *logging.Logger

	prober      *media.Prober
	transcriber transcript.Transcriber
	separator   VocalSeparator
	detector    scene.FaceDetector
	planner     *planner.Client
	adcopy      *adcopy.Client
	catalog     *catalog.Catalog
	remote      *remotejob.Client

	templates templateSet
}

// New constructs an Orchestrator, loading the three workflow templates
// named in cfg up front so a missing/malformed template surfaces at
// startup rather than mid-pipeline.
func New(
	cfg *config.Config,
	log *logging.Logger,
	prober *media.Prober,
	transcriber transcript.Transcriber,
	separator VocalSeparator,
	detector scene.FaceDetector,
	plannerClient *planner.Client,
	adcopyClient *adcopy.Client,
	adCatalog *catalog.Catalog,
	remote *remotejob.Client,
) (*Orchestrator, error) {
	imageCleanupTemplate, err := remotejob.LoadTemplate(cfg.WorkflowImageEdit)
	if err != nil {
		return nil, fmt.Errorf("load image-cleanup template: %w", err)
	}
	voiceCloneTemplate, err := remotejob.LoadTemplate(cfg.WorkflowVoiceClone)
	if err != nil {
		return nil, fmt.Errorf("load voice-clone template: %w", err)
	}
	digitalHumanTemplate, err := remotejob.LoadTemplate(cfg.WorkflowDigitalHuman)
	if err != nil {
		return nil, fmt.Errorf("load digital-human template: %w", err)
	}

	return &Orchestrator{
		cfg:         cfg,
		log:         log,
		prober:      prober,
		transcriber: transcriber,
		separator:   separator,
		detector:    detector,
		planner:     plannerClient,
		adcopy:      adcopyClient,
		catalog:     adCatalog,
		remote:      remote,
		templates: templateSet{
			imageCleanup: imageCleanupTemplate,
			voiceClone:   voiceCloneTemplate,
			digitalHuman: digitalHumanTemplate,
		},
	}, nil
}

// ProcessOne runs phases 1-5 against a single video (spec 4.1). It never
// returns a Go error: every failure mode is reported via
// PipelineResult.Success/ErrorMessage so a caller (CLI or batch loop)
// has one uniform outcome shape to branch on.
func (o *Orchestrator) ProcessOne(ctx context.Context, videoPath, outputDir, device string) pipeline.PipelineResult {
	start := time.Now()
	videoID := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	result := pipeline.PipelineResult{
		VideoID:      videoID,
		OriginalPath: videoPath,
	}

	log := o.log.With(videoID)

	outPath, perr := o.runPhases(ctx, log, videoID, videoPath, outputDir, device, &result)
	result.ProcessingTime = time.Since(start)

	if perr != nil {
		result.Success = false
		result.ErrorMessage = perr.Error()
		log.Error("pipeline failed: %v", perr)
		return result
	}

	result.Success = true
	result.OutputPath = outPath
	log.Success("pipeline completed in %s: %s", result.ProcessingTime, outPath)
	return result
}

// ProcessBatch runs ProcessOne over every video in dir, isolating
// per-video failures (spec 4.1's "batch mode isolates per-video
// failures and reports aggregate counts").
func (o *Orchestrator) ProcessBatch(ctx context.Context, dir, outputDir, device string) []pipeline.PipelineResult {
	entries, err := os.ReadDir(dir)
	if err != nil {
		o.log.Error("batch: read video dir %q: %v", dir, err)
		return nil
	}

	var videoPaths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isVideoFile(entry.Name()) {
			videoPaths = append(videoPaths, filepath.Join(dir, entry.Name()))
		}
	}

	o.log.Info("batch: found %d video(s) in %s", len(videoPaths), dir)

	results := make([]pipeline.PipelineResult, 0, len(videoPaths))
	successCount := 0
	var totalTime time.Duration

	for i, videoPath := range videoPaths {
		o.log.Info("batch: processing %d/%d: %s", i+1, len(videoPaths), filepath.Base(videoPath))
		result := o.ProcessOne(ctx, videoPath, outputDir, device)
		results = append(results, result)
		totalTime += result.ProcessingTime
		if result.Success {
			successCount++
		}
	}

	o.log.Info("batch: %d/%d succeeded, total time %s", successCount, len(videoPaths), totalTime)
	return results
}

// isVideoFile reports whether name is a batch-mode video candidate. Spec
// 154 scopes batch mode to "all .mp4 children" — intentionally narrower
// than the single-video CLI path, which accepts whatever extension ffprobe
// can read.
func isVideoFile(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".mp4"
}
