// Package transcript defines the transcription capability's contract and
// the formatting helpers that turn a TranscriptionResult into the planner
// prompt line format and an SRT subtitle file (spec 4.3, 6).
package transcript

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bobarin/adinsert/internal/pipeline"
)

// Transcriber is the local transcription capability. Spec section 1 lists
// ASR as an external collaborator — this interface is the boundary; no
// concrete inference backend lives in this module.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, languageHint string, device string) (pipeline.TranscriptionResult, error)
}

// FormatForPrompt renders segments as the line-prefixed string the planner
// expects: "[<start>s - <end>s] text" with one decimal place (e.g.
// "[0.0s - 1.5s] hello"), one per line — grounded in
// original_source/src/services/llm_service.py's _format_transcription.
func FormatForPrompt(segments []pipeline.TranscriptionSegment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%.1fs - %.1fs] %s", seg.Start, seg.End, strings.TrimSpace(seg.Text)))
	}
	return strings.Join(lines, "\n")
}

// WriteSRT writes segments to path in the standard HH:MM:SS,mmm SubRip
// format (supplemented feature, SPEC_FULL.md section C).
func WriteSRT(segments []pipeline.TranscriptionSegment, path string) error {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTime(seg.Start), formatSRTTime(seg.End))
		fmt.Fprintf(&sb, "%s\n\n", strings.TrimSpace(seg.Text))
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// formatSRTTime converts seconds to SRT's HH:MM:SS,mmm timecode form.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds * 1000)
	hours := totalMs / 3_600_000
	totalMs %= 3_600_000
	minutes := totalMs / 60_000
	totalMs %= 60_000
	secs := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}
