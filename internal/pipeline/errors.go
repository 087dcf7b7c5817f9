package pipeline

import (
	"errors"
	"fmt"
)

// Kind tags each error with the row it corresponds to in spec section 7's
// error-kind table, grounded in the sentinel-error-per-kind pattern of
// alnah-go-transcript/internal/apierr/errors.go.
type Kind string

const (
	KindInputMissing             Kind = "input_missing"
	KindNoAudioTrack              Kind = "no_audio_track"
	KindDurationOutOfRange        Kind = "duration_out_of_range"
	KindTranscribeFailed          Kind = "transcribe_failed"
	KindPlanMalformed             Kind = "plan_malformed"
	KindNoViableCandidates        Kind = "no_viable_candidates"
	KindNoMainSpeaker             Kind = "no_main_speaker"
	KindNoUsableInsertion         Kind = "no_usable_insertion"
	KindNoAdAvailable             Kind = "no_ad_available"
	KindAdCopyLengthOutOfRange    Kind = "ad_copy_length_out_of_range"
	KindUploadFailed              Kind = "upload_failed"
	KindSubmitRejected            Kind = "submit_rejected"
	KindJobErrored                Kind = "job_errored"
	KindTimedOut                  Kind = "timed_out"
	KindImageCleanupPermanentFail Kind = "image_cleanup_permanent_fail"
	KindVoiceClonePermanentFail   Kind = "voice_clone_permanent_fail"
	KindDigitalHumanPermanentFail Kind = "digital_human_permanent_fail"
	KindComposeFailed             Kind = "compose_failed"
	KindCancelled                 Kind = "cancelled"
)

// Recoverable reports whether an error of this kind lets the pipeline
// continue (possibly in a degraded mode) rather than aborting.
func (k Kind) Recoverable() bool {
	switch k {
	case KindNoMainSpeaker, KindAdCopyLengthOutOfRange, KindImageCleanupPermanentFail:
		return true
	default:
		return false
	}
}

// sentinels, one per Kind, for errors.Is matching against wrapped errors.
var (
	ErrInputMissing             = errors.New("input file does not exist")
	ErrNoAudioTrack              = errors.New("video container has no audio track")
	ErrDurationOutOfRange        = errors.New("video duration outside configured bounds")
	ErrTranscribeFailed          = errors.New("transcription capability failed")
	ErrPlanMalformed             = errors.New("planner response is malformed or missing required fields")
	ErrNoViableCandidates        = errors.New("no insertion candidate survives edge filtering")
	ErrNoMainSpeaker              = errors.New("scene analysis found no main speaker")
	ErrNoUsableInsertion         = errors.New("neither tier A nor tier B yielded a usable insertion point")
	ErrNoAdAvailable             = errors.New("ad catalog has no enabled entries")
	ErrAdCopyLengthOutOfRange    = errors.New("generated ad copy is outside configured length bounds")
	ErrUploadFailed              = errors.New("upload to remote job service failed")
	ErrSubmitRejected            = errors.New("remote job service rejected the submitted graph")
	ErrJobErrored                = errors.New("remote job reported an error status")
	ErrTimedOut                  = errors.New("remote job did not complete before its timeout")
	ErrImageCleanupPermanentFail = errors.New("image cleanup failed after exhausting retries")
	ErrVoiceClonePermanentFail   = errors.New("voice clone failed after exhausting retries")
	ErrDigitalHumanPermanentFail = errors.New("digital human rendering failed after exhausting retries")
	ErrComposeFailed             = errors.New("composition (split/concat) failed")
	ErrCancelled                 = errors.New("operation cancelled")
)

var sentinelByKind = map[Kind]error{
	KindInputMissing:             ErrInputMissing,
	KindNoAudioTrack:              ErrNoAudioTrack,
	KindDurationOutOfRange:        ErrDurationOutOfRange,
	KindTranscribeFailed:          ErrTranscribeFailed,
	KindPlanMalformed:             ErrPlanMalformed,
	KindNoViableCandidates:        ErrNoViableCandidates,
	KindNoMainSpeaker:             ErrNoMainSpeaker,
	KindNoUsableInsertion:         ErrNoUsableInsertion,
	KindNoAdAvailable:             ErrNoAdAvailable,
	KindAdCopyLengthOutOfRange:    ErrAdCopyLengthOutOfRange,
	KindUploadFailed:              ErrUploadFailed,
	KindSubmitRejected:            ErrSubmitRejected,
	KindJobErrored:                ErrJobErrored,
	KindTimedOut:                  ErrTimedOut,
	KindImageCleanupPermanentFail: ErrImageCleanupPermanentFail,
	KindVoiceClonePermanentFail:   ErrVoiceClonePermanentFail,
	KindDigitalHumanPermanentFail: ErrDigitalHumanPermanentFail,
	KindComposeFailed:             ErrComposeFailed,
	KindCancelled:                 ErrCancelled,
}

// Error is the typed error every stage returns. Stage names the component
// that raised it; Err is the sentinel for Kind, optionally wrapping a more
// specific underlying cause via fmt.Errorf("%w: ...", Err).
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func NewError(kind Kind, stage string, cause error) *Error {
	sentinel := sentinelByKind[kind]
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, pipeline.ErrXxx) match regardless of wrapping.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}
