package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/adinsert/internal/pipeline"
)

func TestFormatForPrompt(t *testing.T) {
	segments := []pipeline.TranscriptionSegment{
		{Text: "hello there", Start: 0, End: 1.5},
		{Text: "welcome back", Start: 1.5, End: 3},
	}

	got := FormatForPrompt(segments)
	want := "[0.0s - 1.5s] hello there\n[1.5s - 3.0s] welcome back"

	if got != want {
		t.Errorf("FormatForPrompt() = %q, want %q", got, want)
	}
}

func TestFormatSRTTime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{65.25, "00:01:05,250"},
		{3661.001, "01:01:01,001"},
	}

	for _, c := range cases {
		if got := formatSRTTime(c.seconds); got != c.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestWriteSRT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subtitles.srt")

	segments := []pipeline.TranscriptionSegment{
		{Text: "first line", Start: 0, End: 2},
	}

	if err := WriteSRT(segments, path); err != nil {
		t.Fatalf("WriteSRT() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}

	if !strings.Contains(string(data), "00:00:00,000 --> 00:00:02,000") {
		t.Errorf("srt missing expected timecode, got: %s", data)
	}
}
