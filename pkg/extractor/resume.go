package extractor

import (
	"fmt"
	"time"

	"dbextract/pkg/checkpoint"
	"dbextract/pkg/errors"
)

// Policy decides what happens when a previous run left a checkpoint behind
type Policy string

const (
	// PolicyContinue resumes from the checkpoint
	PolicyContinue Policy = "continue"
	// PolicyOverwrite discards previous output and state and starts over
	PolicyOverwrite Policy = "overwrite"
	// PolicyAbort refuses to run while a checkpoint exists
	PolicyAbort Policy = "abort"
)

// ParsePolicy validates a resume policy string from configuration
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyContinue, PolicyOverwrite, PolicyAbort:
		return Policy(s), nil
	default:
		return "", errors.NewConfig(fmt.Sprintf("invalid resume policy: %q", s))
	}
}

// Resolution is the outcome of applying a resume policy to the stored
// checkpoint. Exactly one of Abort or a usable EffectiveStart applies.
type Resolution struct {
	// EffectiveStart is where window generation begins
	EffectiveStart time.Time
	// Purge requests deletion of existing output files and the checkpoint
	// before extraction starts
	Purge bool
	// Abort stops the run without touching any state
	Abort bool
	// Reason describes the decision for logging
	Reason string
}

// Resolve applies the resume policy. It is pure: callers perform the purge
// and checkpoint mutations the resolution asks for.
//
// Under the continue policy an incomplete checkpoint redoes its window (the
// output for it may be partial), while a complete one resumes one second
// after the recorded instant. A requested start past the checkpoint wins, so
// explicitly moving the range forward is always honored.
func Resolve(policy Policy, cp *checkpoint.Checkpoint, requestedStart time.Time) Resolution {
	if cp == nil {
		return Resolution{
			EffectiveStart: requestedStart,
			Reason:         "no checkpoint, starting from requested start",
		}
	}

	switch policy {
	case PolicyOverwrite:
		return Resolution{
			EffectiveStart: requestedStart,
			Purge:          true,
			Reason:         "overwrite policy, purging previous output",
		}

	case PolicyAbort:
		return Resolution{
			Abort:  true,
			Reason: "abort policy, checkpoint present",
		}

	default: // PolicyContinue
		if !cp.Complete {
			return Resolution{
				EffectiveStart: cp.LastProcessed,
				Reason:         "incomplete checkpoint, redoing last attempted window",
			}
		}

		next := cp.LastProcessed.Add(time.Second)
		if requestedStart.After(next) {
			return Resolution{
				EffectiveStart: requestedStart,
				Reason:         "requested start is past checkpoint, honoring it",
			}
		}
		return Resolution{
			EffectiveStart: next,
			Reason:         "complete checkpoint, resuming after last processed instant",
		}
	}
}
