package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobarin/adinsert/internal/adcopy"
	"github.com/bobarin/adinsert/internal/insertion"
	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/pipeline"
	"github.com/bobarin/adinsert/internal/planner"
	"github.com/bobarin/adinsert/internal/remotejob"
	"github.com/bobarin/adinsert/internal/scene"
	"github.com/bobarin/adinsert/internal/transcript"
	"github.com/bobarin/adinsert/internal/workspace"
)

// sceneSampleInterval is the fixed S=5s cadence spec 4.4 samples frames at.
const sceneSampleInterval = 5.0

// imageCleanupPrompt / imageCleanupNegativePrompt mirror
// original_source/src/services/image_cleaner.py's clean_image_simple
// default prompt text.
const (
	imageCleanupPrompt         = "去除图片中的文字、水印和干扰元素，保持人物和背景清晰自然"
	imageCleanupNegativePrompt = "文字、水印、logo、字幕"
)

// runPhases executes Ingest -> Understand -> Localize&Stage -> Synthesize
// -> Compose in order under a scoped workspace, returning the final
// output path on success. Any phase failure aborts the remaining phases;
// the caller (ProcessOne) converts the returned error into a
// PipelineResult.
func (o *Orchestrator) runPhases(ctx context.Context, log *logging.Logger, videoID, videoPath, outputDir, device string, result *pipeline.PipelineResult) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", pipeline.NewError(pipeline.KindInputMissing, "ingest", err)
	}

	ws, err := workspace.New(o.cfg.CacheDir, videoID)
	if err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}

	failed := true
	defer func() {
		if cerr := ws.Cleanup(o.cfg.KeepTempFilesOnError, failed); cerr != nil {
			log.Warn("workspace cleanup failed: %v", cerr)
		}
	}()

	// Phase 1: Ingest
	meta, vocalsPath, err := o.ingest(ctx, log, ws, videoPath, device)
	if err != nil {
		return "", err
	}

	// Phase 2: Transcription & Planning
	transcription, analysis, err := o.understand(ctx, log, ws, vocalsPath, meta, device)
	if err != nil {
		return "", err
	}
	result.TranscriptionText = transcription.FullText
	result.VideoTheme = analysis.Theme

	// Phase 3a: Scene analysis (main-speaker identification; recoverable)
	sceneResult := o.analyzeScene(ctx, log, ws, videoPath, meta)

	// Phase 3b/4.5: Insertion-point selection
	selector := &insertion.Selector{Detector: o.detector, Prober: o.prober}
	selection, err := selector.Select(ctx, analysis.Candidates, sceneResult.Speaker, videoPath, meta.FPS, meta.Duration, ws.KeyframesDir())
	if err != nil {
		return "", err
	}
	result.InsertionTime = selection.Timestamp

	// Phase 3c: Ad selection & copy generation (spec 4.7)
	ad, ok := o.catalog.SelectForTheme(analysis.Theme)
	if !ok {
		return "", pipeline.NewError(pipeline.KindNoAdAvailable, "select", nil)
	}

	adCopyText, err := o.adcopy.Generate(ctx, adcopy.Request{
		VideoTheme:     analysis.Theme,
		VideoCategory:  analysis.Category,
		VideoTone:      analysis.Tone,
		ContextBefore:  selection.Candidate.ContextBefore,
		ContextAfter:   selection.Candidate.ContextAfter,
		TransitionHint: selection.Candidate.TransitionHint,
		Ad:             ad,
		Language:       transcription.Language,
	})
	if err != nil {
		return "", err
	}
	result.AdScript = adCopyText

	chosen := pipeline.ChosenPlan{
		Candidate: selection.Candidate,
		FramePath: selection.FramePath,
		Timestamp: selection.Timestamp,
		Ad:        ad,
		AdCopy:    adCopyText,
		UsedTierB: selection.UsedTierB,
	}

	// Phase 4.6: Reference-audio extraction for voice cloning
	referenceVocalsPath, err := o.extractReferenceAudio(ctx, log, ws, videoPath, chosen.Timestamp, meta.Duration, device)
	if err != nil {
		return "", err
	}
	chosen.ReferenceAudio = referenceVocalsPath

	// Phase 4: Synthesize (remote generative stage, spec 4.8)
	assets, err := o.synthesize(ctx, log, ws, chosen, meta)
	if err != nil {
		return "", err
	}
	result.DigitalHumanVideo = assets.DigitalHumanVideoPath

	// Phase 5: Compose
	outPath, err := o.compose(ctx, log, ws, videoID, videoPath, outputDir, meta, chosen, assets)
	if err != nil {
		return "", err
	}

	failed = false
	return outPath, nil
}

// ingest reads container metadata, demuxes audio, and separates vocals
// (spec 4.2).
func (o *Orchestrator) ingest(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, videoPath, device string) (pipeline.VideoMetadata, string, error) {
	meta, err := o.prober.Metadata(ctx, videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, "", pipeline.NewError(pipeline.KindInputMissing, "ingest", err)
	}

	if meta.Duration < o.cfg.MinVideoDuration || meta.Duration > o.cfg.MaxVideoDuration {
		return pipeline.VideoMetadata{}, "", pipeline.NewError(pipeline.KindDurationOutOfRange, "ingest",
			fmt.Errorf("duration %.1fs outside [%.1fs, %.1fs]", meta.Duration, o.cfg.MinVideoDuration, o.cfg.MaxVideoDuration))
	}

	if !meta.HasAudio {
		return pipeline.VideoMetadata{}, "", pipeline.NewError(pipeline.KindNoAudioTrack, "ingest", nil)
	}

	originalAudioPath := ws.OriginalAudioPath()
	if err := o.prober.Demux(ctx, videoPath, originalAudioPath); err != nil {
		return pipeline.VideoMetadata{}, "", pipeline.NewError(pipeline.KindNoAudioTrack, "ingest", fmt.Errorf("demux: %w", err))
	}

	vocalsPath := ws.VocalsPath()
	if err := o.separator.Separate(ctx, originalAudioPath, vocalsPath, device); err != nil {
		return pipeline.VideoMetadata{}, "", pipeline.NewError(pipeline.KindNoAudioTrack, "ingest", fmt.Errorf("separate vocals: %w", err))
	}
	os.Remove(originalAudioPath) // only vocals are retained (spec 4.2)

	log.Info("ingest: duration=%.1fs resolution=%dx%d fps=%.2f", meta.Duration, meta.Width, meta.Height, meta.FPS)
	return meta, vocalsPath, nil
}

// understand transcribes the separated vocals and runs the chat-
// completion planner over the transcript (spec 4.3).
func (o *Orchestrator) understand(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, vocalsPath string, meta pipeline.VideoMetadata, device string) (pipeline.TranscriptionResult, planner.VideoAnalysis, error) {
	transcription, err := o.transcriber.Transcribe(ctx, vocalsPath, "", device)
	if err != nil {
		return pipeline.TranscriptionResult{}, planner.VideoAnalysis{}, pipeline.NewError(pipeline.KindTranscribeFailed, "understand", err)
	}

	if werr := os.WriteFile(ws.TranscriptionTextPath(), []byte(transcription.FullText), 0o644); werr != nil {
		log.Warn("failed to persist transcription text: %v", werr)
	}
	if werr := transcript.WriteSRT(transcription.Segments, ws.SubtitlesPath()); werr != nil {
		log.Warn("failed to persist subtitles: %v", werr)
	}

	prompt := transcript.FormatForPrompt(transcription.Segments)
	analysis, err := o.planner.Analyze(ctx, prompt, meta.Duration, o.cfg.InsertionAvoidStart, o.cfg.InsertionAvoidEnd, o.cfg.NumPlanCandidates)
	if err != nil {
		return transcription, planner.VideoAnalysis{}, err
	}

	log.Info("understand: theme=%q category=%q candidates=%d", analysis.Theme, analysis.Category, len(analysis.Candidates))
	return transcription, analysis, nil
}

// analyzeScene samples frames every sceneSampleInterval seconds, detects
// faces, and clusters them into a main-speaker profile (spec 4.4). A
// failed main-speaker test is recoverable: it only disables tier A's
// speaker-match requirement downstream, so this never returns an error.
func (o *Orchestrator) analyzeScene(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, videoPath string, meta pipeline.VideoMetadata) pipeline.SceneAnalysis {
	var samples []scene.FrameSample

	for t := 0.0; t <= meta.Duration; t += sceneSampleInterval {
		framePath := filepath.Join(ws.KeyframesDir(), fmt.Sprintf("scene_%05.1f.jpg", t))
		if err := o.prober.ExtractFrame(ctx, videoPath, t, framePath); err != nil {
			log.Warn("scene sample at %.1fs: extract frame failed: %v", t, err)
			continue
		}
		faces, err := o.detector.Detect(ctx, framePath)
		if err != nil {
			log.Warn("scene sample at %.1fs: face detection failed: %v", t, err)
			continue
		}
		samples = append(samples, scene.FrameSample{Time: t, FramePath: framePath, Faces: faces})
	}

	result := scene.Analyze(samples, o.cfg.EnforceCenterCheck, o.cfg.EnforceVarianceCheck)
	if !result.IsSingleSpeaker {
		log.Warn("%s: no main speaker identified across %d sampled frames (%d with faces); tier A speaker-match disabled",
			pipeline.ErrNoMainSpeaker, result.TotalSampledFrames, result.FramesWithFaces)
		return result
	}
	log.Info("main speaker: center=(%.2f, %.2f) size=%.3f position variance=%.4f (center check enforced=%v, variance check enforced=%v)",
		result.Speaker.AvgX, result.Speaker.AvgY, result.Speaker.AvgSize, result.Speaker.PositionVariance,
		o.cfg.EnforceCenterCheck, o.cfg.EnforceVarianceCheck)

	// Persist the main speaker's best sampled frame at its fixed, documented
	// path (spec 6's keyframes/best_face_frame.jpg) so tier B's fallback
	// resolves to the persisted artifact rather than a scratch sample.
	persisted := ws.BestFaceFramePath()
	if err := copyFile(result.Speaker.BestFramePath, persisted); err != nil {
		log.Warn("failed to persist best-face frame: %v", err)
	} else {
		result.Speaker.BestFramePath = persisted
	}
	return result
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// referenceWindow computes the 10-second window centered on t, clamped to
// [0, duration] and, if the clamped window is shorter than the 5-second
// floor, shifted to satisfy it (spec 4.6).
func referenceWindow(t, duration float64) (start, end float64) {
	start = math.Max(0, t-5)
	end = math.Min(duration, t+5)
	if end-start < 5 {
		if start == 0 {
			end = math.Min(duration, start+5)
		} else {
			start = math.Max(0, end-5)
		}
	}
	return start, end
}

// extractReferenceAudio demuxes the reference-audio window around the
// chosen insertion time and separates clean vocals from it (spec 4.6).
func (o *Orchestrator) extractReferenceAudio(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, videoPath string, insertionTime, duration float64, device string) (string, error) {
	start, end := referenceWindow(insertionTime, duration)

	windowPath := ws.ReferenceClipPath()
	if err := o.prober.DemuxWindow(ctx, videoPath, start, end, windowPath); err != nil {
		return "", fmt.Errorf("demux reference-audio window: %w", err)
	}

	vocalsPath := ws.ReferenceVocalsClipPath()
	if err := o.separator.Separate(ctx, windowPath, vocalsPath, device); err != nil {
		return "", fmt.Errorf("separate reference-audio vocals: %w", err)
	}

	log.Info("reference audio: window=[%.1fs, %.1fs]", start, end)
	return vocalsPath, nil
}

// synthesize drives the remote generative stage in its strict sub-order
// image -> voice -> digital-human (spec 4.8, 5). Within the digital-human
// step, uploading the cleaned image and the cloned voice clip overlap
// since neither depends on the other's upload having completed.
func (o *Orchestrator) synthesize(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, chosen pipeline.ChosenPlan, meta pipeline.VideoMetadata) (pipeline.GeneratedAssets, error) {
	assets := pipeline.GeneratedAssets{}

	pollInterval := time.Duration(o.cfg.StagePollIntervalSeconds) * time.Second

	// --- image cleanup (degrade-on-fail) ---
	pngKeyframePath := ws.InsertionKeyframePath()
	degraded := false
	if err := o.prober.TranscodeToPNG(ctx, chosen.FramePath, pngKeyframePath); err != nil {
		log.Warn("PNG pre-transcode failed, uploading original keyframe: %v", err)
		pngKeyframePath = chosen.FramePath
	}

	uploadedKeyframe, err := o.remote.Upload(ctx, pngKeyframePath)
	if err != nil {
		return assets, pipeline.NewError(pipeline.KindUploadFailed, "synthesize", err)
	}

	cleanedImagePath := ws.CleanedKeyframePath()
	cleanupErr := o.remote.RunImageCleanup(ctx, log, remotejob.ImageCleanupParams{
		Template:          o.templates.imageCleanup,
		UploadedImageName: uploadedKeyframe.Name,
		PositivePrompt:    imageCleanupPrompt,
		NegativePrompt:    imageCleanupNegativePrompt,
		OutPath:           cleanedImagePath,
		PollInterval:      pollInterval,
		JobTimeout:        time.Duration(o.cfg.ImageCleanupTimeoutSeconds) * time.Second,
	})
	if cleanupErr != nil {
		var perr *pipeline.Error
		if errors.As(cleanupErr, &perr) && perr.Kind == pipeline.KindImageCleanupPermanentFail {
			log.Warn("image cleanup degraded to original keyframe: %v", cleanupErr)
			cleanedImagePath = pngKeyframePath
			degraded = true
		} else {
			return assets, cleanupErr
		}
	}
	assets.CleanedImagePath = cleanedImagePath
	assets.ImageCleanupDegraded = degraded

	// --- voice clone (fatal on exhausted retries) ---
	uploadedReference, err := o.remote.Upload(ctx, chosen.ReferenceAudio)
	if err != nil {
		return assets, pipeline.NewError(pipeline.KindUploadFailed, "synthesize", err)
	}

	clonedAudioPath := ws.AdVoicePath()
	if err := o.remote.RunVoiceClone(ctx, log, remotejob.VoiceCloneParams{
		Template:          o.templates.voiceClone,
		UploadedAudioName: uploadedReference.Name,
		AdCopy:            chosen.AdCopy,
		OutPath:           clonedAudioPath,
		PollInterval:      pollInterval,
		JobTimeout:        time.Duration(o.cfg.VoiceCloneTimeoutSeconds) * time.Second,
	}); err != nil {
		return assets, err
	}
	assets.ClonedAudioPath = clonedAudioPath

	// --- digital human: concurrent upload of image + audio, then submit ---
	var uploadedImage, uploadedAudio remotejob.UploadResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.remote.Upload(gctx, assets.CleanedImagePath)
		if err != nil {
			return err
		}
		uploadedImage = r
		return nil
	})
	g.Go(func() error {
		r, err := o.remote.Upload(gctx, assets.ClonedAudioPath)
		if err != nil {
			return err
		}
		uploadedAudio = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return assets, pipeline.NewError(pipeline.KindUploadFailed, "synthesize", err)
	}

	digitalHumanPath := ws.AdVideoPath()
	if err := o.remote.RunDigitalHuman(ctx, log, remotejob.DigitalHumanParamsFull{
		Template: o.templates.digitalHuman,
		Params: remotejob.DigitalHumanParams{
			UploadedImageName: uploadedImage.Name,
			UploadedAudioName: uploadedAudio.Name,
			FPS:               o.cfg.DigitalHumanFPS,
			TargetWidth:       meta.Width,
			TargetHeight:      meta.Height,
		},
		OutPath:      digitalHumanPath,
		PollInterval: pollInterval,
		JobTimeout:   time.Duration(o.cfg.DigitalHumanTimeoutSeconds) * time.Second,
	}); err != nil {
		return assets, err
	}
	assets.DigitalHumanVideoPath = digitalHumanPath

	return assets, nil
}

// compose splits the host video at the chosen time and concatenates
// prefix + ad clip + suffix (spec 4.9), verifying the output duration
// invariant (I6) before returning.
func (o *Orchestrator) compose(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, videoID, videoPath, outputDir string, meta pipeline.VideoMetadata, chosen pipeline.ChosenPlan, assets pipeline.GeneratedAssets) (string, error) {
	prefixPath, suffixPath, err := o.prober.Split(ctx, videoPath, chosen.Timestamp, ws.VideosDir())
	if err != nil {
		return "", pipeline.NewError(pipeline.KindComposeFailed, "compose", err)
	}

	if outputDir == "" {
		outputDir = o.cfg.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", pipeline.NewError(pipeline.KindComposeFailed, "compose", fmt.Errorf("create output dir: %w", err))
	}

	ext := filepath.Ext(videoPath)
	if ext == "" {
		ext = ".mp4"
	}
	outPath := filepath.Join(outputDir, videoID+"_with_ad"+ext)

	if err := o.prober.Concat(ctx, []string{prefixPath, assets.DigitalHumanVideoPath, suffixPath}, outPath, ws.VideosDir()); err != nil {
		return "", pipeline.NewError(pipeline.KindComposeFailed, "compose", err)
	}

	outMeta, err := o.prober.Metadata(ctx, outPath)
	if err == nil {
		adMeta, aerr := o.prober.Metadata(ctx, assets.DigitalHumanVideoPath)
		if aerr == nil && meta.FPS > 0 {
			expected := meta.Duration + adMeta.Duration
			framePeriod := 1 / meta.FPS
			if math.Abs(outMeta.Duration-expected) > framePeriod {
				return "", pipeline.NewError(pipeline.KindComposeFailed, "compose",
					fmt.Errorf("output duration %.3fs does not match expected %.3fs within one frame period", outMeta.Duration, expected))
			}
		}
	} else {
		log.Warn("could not verify output duration: %v", err)
	}

	return outPath, nil
}
