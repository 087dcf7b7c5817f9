// Package media wraps the ffmpeg/ffprobe binaries for ingest, frame
// reads, and splice/concat, in the exec.CommandContext idiom of
// internal/services/ffmpeg.go (the teacher's Ken-Burns renderer), adapted
// to the ad-insertion domain's needs: metadata/demux (spec 4.2), best-frame
// search (spec 4.5, grounded in original_source's video_processor.py), and
// split/concat composition (spec 4.9, grounded in video_composer.py).
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bobarin/adinsert/internal/pipeline"
)

// Prober extracts container metadata and demuxes/slices media via ffprobe
// and ffmpeg subprocess invocations.
type Prober struct{}

func NewProber() *Prober { return &Prober{} }

func runFFprobeValue(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func runFFmpeg(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// Metadata reads container-level properties for videoPath (spec 4.2).
func (p *Prober) Metadata(ctx context.Context, videoPath string) (pipeline.VideoMetadata, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, fmt.Errorf("stat video: %w", err)
	}

	widthStr, err := runFFprobeValue(ctx, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, err
	}
	heightStr, err := runFFprobeValue(ctx, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=height", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, err
	}
	fpsStr, err := runFFprobeValue(ctx, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, err
	}
	codecStr, err := runFFprobeValue(ctx, "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=codec_name", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, err
	}
	durationStr, err := runFFprobeValue(ctx, "-v", "error",
		"-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)
	if err != nil {
		return pipeline.VideoMetadata{}, err
	}
	audioStreamStr, _ := runFFprobeValue(ctx, "-v", "error", "-select_streams", "a:0",
		"-show_entries", "stream=codec_name", "-of", "default=noprint_wrappers=1:nokey=1", videoPath)

	width, _ := strconv.Atoi(widthStr)
	height, _ := strconv.Atoi(heightStr)
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return pipeline.VideoMetadata{}, fmt.Errorf("parse duration: %w", err)
	}
	fps := parseFrameRate(fpsStr)

	return pipeline.VideoMetadata{
		Width:    width,
		Height:   height,
		FPS:      fps,
		Duration: duration,
		Codec:    codecStr,
		HasAudio: audioStreamStr != "",
		Filesize: info.Size(),
	}, nil
}

func parseFrameRate(raw string) float64 {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	num, errNum := strconv.ParseFloat(parts[0], 64)
	den, errDen := strconv.ParseFloat(parts[1], 64)
	if errNum != nil || errDen != nil || den == 0 {
		return 0
	}
	return num / den
}

// Demux extracts the audio track of videoPath into outPath as PCM-16 WAV at
// 44.1 kHz (spec 4.2). Caller must first confirm HasAudio via Metadata.
func (p *Prober) Demux(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	return runFFmpeg(ctx,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-y", outPath,
	)
}

// DemuxWindow extracts the audio window [start, end) of videoPath into
// outPath as PCM-16 WAV at 44.1 kHz (spec 4.6's reference-audio window).
func (p *Prober) DemuxWindow(ctx context.Context, videoPath string, start, end float64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	return runFFmpeg(ctx,
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "44100",
		"-y", outPath,
	)
}

// ExtractFrame reads the frame at timestamp seconds into outPath (PNG/JPEG
// by extension).
func (p *Prober) ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}
	return runFFmpeg(ctx,
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-frames:v", "1",
		"-y", outPath,
	)
}

// TranscodeToPNG re-encodes an arbitrary image file to PNG at outPath
// (spec 4.8's PNG pre-transcode step, ahead of uploading a keyframe to the
// remote generative stage).
func (p *Prober) TranscodeToPNG(ctx context.Context, imagePath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create transcode dir: %w", err)
	}
	return runFFmpeg(ctx, "-i", imagePath, "-y", outPath)
}

// Split cuts videoPath at splitTime into prefix [0,splitTime) and suffix
// [splitTime,duration), using a frame-accurate re-encode (spec 4.9).
func (p *Prober) Split(ctx context.Context, videoPath string, splitTime float64, outDir string) (prefixPath, suffixPath string, err error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create split dir: %w", err)
	}
	prefixPath = filepath.Join(outDir, "part1.mp4")
	suffixPath = filepath.Join(outDir, "part2.mp4")

	if err := runFFmpeg(ctx,
		"-i", videoPath,
		"-t", fmt.Sprintf("%.3f", splitTime),
		"-c:v", "libx264", "-c:a", "aac",
		"-y", prefixPath,
	); err != nil {
		return "", "", fmt.Errorf("split prefix: %w", err)
	}

	if err := runFFmpeg(ctx,
		"-ss", fmt.Sprintf("%.3f", splitTime),
		"-i", videoPath,
		"-c:v", "libx264", "-c:a", "aac",
		"-y", suffixPath,
	); err != nil {
		return "", "", fmt.Errorf("split suffix: %w", err)
	}

	return prefixPath, suffixPath, nil
}

// Concat concatenates clipPaths in order into outPath via a concat-list
// file, mirroring internal/services/ffmpeg.go's ConcatenateClips.
func (p *Prober) Concat(ctx context.Context, clipPaths []string, outPath, scratchDir string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	listPath := filepath.Join(scratchDir, "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	for _, clip := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", clip)
	}
	f.Close()
	defer os.Remove(listPath)

	return runFFmpeg(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264", "-c:a", "aac",
		"-y", outPath,
	)
}
