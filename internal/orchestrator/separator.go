package orchestrator

import "context"

// VocalSeparator is the source-separation external capability (spec 4.2,
// 4.6): two-stem vocals-vs-accompaniment separation, used both on the
// full-length demuxed audio and on the short reference-audio window.
// Spec section 1 lists source separation as an out-of-scope external
// collaborator — no concrete model backend lives in this module.
type VocalSeparator interface {
	Separate(ctx context.Context, inputPath, vocalsOutPath, device string) error
}
