package lifecycle

import "errors"

// Transition errors. All are expected business-rule violations surfaced to
// the caller as 4xx outcomes; none are retried here.
var (
	ErrInvalidAction          = errors.New("action must be \"advance\" or \"lock\"")
	ErrInvalidStage           = errors.New("unknown stage")
	ErrTerminalStage          = errors.New("project is already at the final stage")
	ErrFirstStage             = errors.New("project is already at the first stage")
	ErrInvalidTransition      = errors.New("target stage must be strictly before the current stage")
	ErrConcurrentModification = errors.New("project stage changed concurrently, re-read and retry")
)

// Action is a requested stage mutation.
type Action string

const (
	// ActionAdvance moves the project exactly one stage forward. Single-step
	// only, so every intermediate stage gets its entry side effects (checklist
	// seeding, notifications) before the next advance.
	ActionAdvance Action = "advance"

	// ActionLock rewinds the project to an earlier stage, either one step
	// (no target) or directly to any strictly earlier target.
	ActionLock Action = "lock"
)

// TransitionRequest is the ephemeral input to one transition attempt.
// Target is only meaningful for ActionLock; empty means implicit one-step.
type TransitionRequest struct {
	Action Action
	Target Stage
}

// Transition computes the stage a project should move to from current under
// req. It is pure: validation and ordering rules only, no persistence. The
// caller is responsible for the compare-and-swap write of the result and is
// assumed to have already authorized the request.
func Transition(current Stage, req TransitionRequest) (Stage, error) {
	if !IsValid(current) {
		return "", ErrInvalidStage
	}

	switch req.Action {
	case ActionAdvance:
		next, ok := Next(current)
		if !ok {
			return "", ErrTerminalStage
		}
		return next, nil

	case ActionLock:
		if req.Target == "" {
			prev, ok := Prev(current)
			if !ok {
				return "", ErrFirstStage
			}
			return prev, nil
		}
		ti := Index(req.Target)
		if ti < 0 {
			return "", ErrInvalidStage
		}
		if ti >= Index(current) {
			return "", ErrInvalidTransition
		}
		return req.Target, nil

	default:
		return "", ErrInvalidAction
	}
}
