// Package workspace manages the per-videoId scoped temp-artifact tree
// (spec section 3's "Temp workspace") with error-preserving cleanup,
// adapted from original_source/src/utils/file_manager.py's TempFileManager
// into the teacher's path-builder-struct idiom (see internal/media for the
// sibling ffmpeg-invoking adapters this workspace feeds paths into).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// categories is the fixed subfolder list from spec section 3/6.
var categories = []string{"audio", "keyframes", "transcriptions", "ad_materials", "videos"}

// Workspace is a per-videoId directory tree. The orchestrator exclusively
// owns it and all produced artifacts; external capabilities only ever see
// paths passed in (spec section 5).
type Workspace struct {
	VideoID string
	baseDir string
}

// New creates (or reuses) the workspace rooted at cacheDir/videoID and
// ensures its fixed subfolders exist.
func New(cacheDir, videoID string) (*Workspace, error) {
	base := filepath.Join(cacheDir, videoID)
	w := &Workspace{VideoID: videoID, baseDir: base}
	for _, category := range categories {
		if err := os.MkdirAll(filepath.Join(base, category), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace category %q: %w", category, err)
		}
	}
	return w, nil
}

func (w *Workspace) isValidCategory(category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// Path returns the path for filename within category, validating category
// against the fixed whitelist.
func (w *Workspace) Path(category, filename string) (string, error) {
	if !w.isValidCategory(category) {
		return "", fmt.Errorf("invalid workspace category %q", category)
	}
	return filepath.Join(w.baseDir, category, filename), nil
}

func (w *Workspace) mustPath(category, filename string) string {
	p, err := w.Path(category, filename)
	if err != nil {
		panic(err) // programmer error: category constants below are always valid
	}
	return p
}

// Convenience accessors mirroring the fixed persisted-workspace layout
// from spec section 6.
func (w *Workspace) OriginalAudioPath() string      { return w.mustPath("audio", "original.wav") }
func (w *Workspace) VocalsPath() string              { return w.mustPath("audio", "vocals.wav") }
func (w *Workspace) ReferenceClipPath() string       { return w.mustPath("audio", "reference_clip.wav") }
func (w *Workspace) ReferenceVocalsClipPath() string { return w.mustPath("audio", "reference_vocals_clip.wav") }
func (w *Workspace) InsertionKeyframePath() string   { return w.mustPath("keyframes", "insertion_keyframe.png") }
func (w *Workspace) BestFaceFramePath() string       { return w.mustPath("keyframes", "best_face_frame.jpg") }
func (w *Workspace) TranscriptionTextPath() string   { return w.mustPath("transcriptions", "transcription.txt") }
func (w *Workspace) SubtitlesPath() string           { return w.mustPath("transcriptions", "subtitles.srt") }
func (w *Workspace) CleanedKeyframePath() string     { return w.mustPath("ad_materials", "cleaned_keyframe.png") }
func (w *Workspace) AdVoicePath() string             { return w.mustPath("ad_materials", "ad_voice.wav") }
func (w *Workspace) AdVideoPath() string             { return w.mustPath("ad_materials", "ad_video.mp4") }

// VideosDir returns the scratch directory used for split/concat intermediates.
func (w *Workspace) VideosDir() string { return filepath.Join(w.baseDir, "videos") }

// KeyframesDir returns the scratch directory used for scene-sampling and
// tier-A probe frames.
func (w *Workspace) KeyframesDir() string { return filepath.Join(w.baseDir, "keyframes") }

// Cleanup removes the workspace tree unless keepOnError is set and an error
// occurred, matching original_source's TempFileManager.cleanup / __exit__
// semantics: success always cleans; only the error path respects the
// keep-on-error policy.
func (w *Workspace) Cleanup(keepOnError bool, failed bool) error {
	if failed && keepOnError {
		return nil
	}
	return os.RemoveAll(w.baseDir)
}

// CleanupExpired reaps workspace directories under cacheDir older than ttl
// (supplemented feature, SPEC_FULL.md section C, grounded in
// original_source/src/utils/file_manager.py's cleanup_expired).
func CleanupExpired(cacheDir string, ttl time.Duration) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > ttl {
			_ = os.RemoveAll(filepath.Join(cacheDir, entry.Name()))
		}
	}
	return nil
}
