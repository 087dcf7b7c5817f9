// Package separation provides a concrete, subprocess-backed vocal
// separator satisfying internal/orchestrator.VocalSeparator, grounded
// directly in original_source/src/core/audio_separator.py's AudioSeparator
// — the Python original already shells out to the `demucs` CLI rather than
// embedding the model in-process, so this is a straight port of that
// subprocess contract into Go's exec.CommandContext idiom (the same
// pattern internal/media uses for ffmpeg/ffprobe).
package separation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Demucs runs the two-stem (vocals vs. accompaniment) `demucs` CLI.
type Demucs struct {
	BinPath string // defaults to "demucs" on PATH
	Model   string // e.g. "htdemucs", "mdx_extra"
}

func NewDemucs(binPath, model string) *Demucs {
	if binPath == "" {
		binPath = "demucs"
	}
	if model == "" {
		model = "htdemucs"
	}
	return &Demucs{BinPath: binPath, Model: model}
}

// Separate runs demucs against inputPath and moves the resulting vocals
// stem to vocalsOutPath, mirroring AudioSeparator.separate's
// extract_vocals_only=True behavior (output_dir/model/stem/vocals.wav,
// renamed and the model scratch dir removed).
func (d *Demucs) Separate(ctx context.Context, inputPath, vocalsOutPath, device string) error {
	scratchDir, err := os.MkdirTemp("", "demucs_out_*")
	if err != nil {
		return fmt.Errorf("create demucs scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	if device == "" {
		device = "cpu"
	}

	cmd := exec.CommandContext(ctx, d.BinPath,
		"--two-stems", "vocals",
		"-n", d.Model,
		"-o", scratchDir,
		"--device", device,
		inputPath,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("demucs: %w", err)
	}

	stem := trimExt(filepath.Base(inputPath))
	producedPath := filepath.Join(scratchDir, d.Model, stem, "vocals.wav")
	if _, err := os.Stat(producedPath); err != nil {
		return fmt.Errorf("demucs did not produce %s: %w", producedPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(vocalsOutPath), 0o755); err != nil {
		return fmt.Errorf("create vocals output dir: %w", err)
	}
	return os.Rename(producedPath, vocalsOutPath)
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
