package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobarin/adinsert/internal/logging"
)

func TestReferenceWindowCentersOnInsertionTime(t *testing.T) {
	start, end := referenceWindow(50, 120)
	if start != 45 || end != 55 {
		t.Errorf("referenceWindow(50, 120) = [%v, %v], want [45, 55]", start, end)
	}
}

func TestReferenceWindowClampsNearStart(t *testing.T) {
	start, end := referenceWindow(2, 120)
	if start != 0 {
		t.Errorf("referenceWindow(2, 120) start = %v, want 0", start)
	}
	if end-start < 5 {
		t.Errorf("referenceWindow(2, 120) window = [%v, %v], shorter than the 5s floor", start, end)
	}
	if end != 7 {
		t.Errorf("referenceWindow(2, 120) end = %v, want 7", end)
	}
}

func TestReferenceWindowClampsNearEnd(t *testing.T) {
	start, end := referenceWindow(119, 120)
	if end != 120 {
		t.Errorf("referenceWindow(119, 120) end = %v, want 120", end)
	}
	if end-start < 5 {
		t.Errorf("referenceWindow(119, 120) window = [%v, %v], shorter than the 5s floor", start, end)
	}
	if start != 114 {
		t.Errorf("referenceWindow(119, 120) start = %v, want 114", start)
	}
}

func TestReferenceWindowHandlesVideoShorterThanTenSeconds(t *testing.T) {
	start, end := referenceWindow(3, 6)
	if start != 0 || end != 6 {
		t.Errorf("referenceWindow(3, 6) = [%v, %v], want [0, 6] (clamped to full duration)", start, end)
	}
}

func TestIsVideoFileAcceptsMP4Variants(t *testing.T) {
	for _, name := range []string{"clip.mp4", "clip.MP4", "clip.Mp4"} {
		if !isVideoFile(name) {
			t.Errorf("isVideoFile(%q) = false, want true", name)
		}
	}
}

func TestIsVideoFileRejectsOtherExtensions(t *testing.T) {
	for _, name := range []string{"notes.txt", "image.png", "archive.zip", "noext", "clip.mov", "clip.mkv", "clip.avi", "clip.webm"} {
		if isVideoFile(name) {
			t.Errorf("isVideoFile(%q) = true, want false", name)
		}
	}
}

func TestProcessBatchSkipsNonVideoFilesWithoutProcessing(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"readme.txt", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture %q: %v", name, err)
		}
	}

	o := &Orchestrator{log: logging.New("test")}
	results := o.ProcessBatch(nil, dir, t.TempDir(), "cpu")

	if len(results) != 0 {
		t.Errorf("ProcessBatch() with no video files returned %d results, want 0", len(results))
	}
}

func TestProcessBatchReturnsNilOnUnreadableDir(t *testing.T) {
	o := &Orchestrator{log: logging.New("test")}
	results := o.ProcessBatch(nil, filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir(), "cpu")

	if results != nil {
		t.Errorf("ProcessBatch() on unreadable dir = %v, want nil", results)
	}
}
