package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bobarin/adinsert/internal/pipeline"
)

// whisperWord is one word-level timing in whisper's --output_format json.
type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperSegment is one segment in whisper's --output_format json.
type whisperSegment struct {
	Text  string        `json:"text"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Words []whisperWord `json:"words,omitempty"`
}

// whisperOutput is the shape of the JSON file the whisper CLI writes.
type whisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

// WhisperCLI shells out to the `whisper` binary (the openai-whisper
// package's console entrypoint) the way internal/media's Prober shells out
// to ffmpeg/ffprobe — no Go ASR library exists anywhere in the retrieval
// pack, so an external-binary adapter is the idiomatic choice here, as it
// is for video muxing. Model and binary name are configurable;
// original_source/src/core/asr.py embeds the same whisper model
// in-process, run here instead as a subprocess to keep model inference
// outside this module (spec 1's "it does not itself perform ML inference").
type WhisperCLI struct {
	BinPath string // defaults to "whisper" on PATH
	Model   string // e.g. "base", "small", "medium"
}

func NewWhisperCLI(binPath, model string) *WhisperCLI {
	if binPath == "" {
		binPath = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &WhisperCLI{BinPath: binPath, Model: model}
}

// Transcribe runs the whisper CLI against audioPath and parses its
// --output_format json result (spec 4.3).
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath, languageHint, device string) (pipeline.TranscriptionResult, error) {
	outDir, err := os.MkdirTemp("", "whisper_out_*")
	if err != nil {
		return pipeline.TranscriptionResult{}, fmt.Errorf("create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{
		audioPath,
		"--model", w.Model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--word_timestamps", "True",
	}
	if device != "" {
		args = append(args, "--device", device)
	}
	if languageHint != "" {
		args = append(args, "--language", languageHint)
	}

	cmd := exec.CommandContext(ctx, w.BinPath, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return pipeline.TranscriptionResult{}, fmt.Errorf("whisper: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, stem+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return pipeline.TranscriptionResult{}, fmt.Errorf("read whisper output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return pipeline.TranscriptionResult{}, fmt.Errorf("parse whisper output: %w", err)
	}

	segments := make([]pipeline.TranscriptionSegment, 0, len(out.Segments))
	for _, s := range out.Segments {
		words := make([]pipeline.WordTimestamp, 0, len(s.Words))
		for _, wd := range s.Words {
			words = append(words, pipeline.WordTimestamp{Word: wd.Word, Start: wd.Start, End: wd.End})
		}
		segments = append(segments, pipeline.TranscriptionSegment{
			Text: strings.TrimSpace(s.Text), Start: s.Start, End: s.End, Words: words,
		})
	}

	return pipeline.TranscriptionResult{
		Segments: segments,
		Language: out.Language,
		FullText: strings.TrimSpace(out.Text),
	}, nil
}
