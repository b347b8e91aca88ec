package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceSingleStep(t *testing.T) {
	got, err := Transition(StageProvisioning, TransitionRequest{Action: ActionAdvance})
	require.NoError(t, err)
	assert.Equal(t, StageBobConfig, got)

	got, err = Transition(got, TransitionRequest{Action: ActionAdvance})
	require.NoError(t, err)
	assert.Equal(t, StageMapping, got)
}

func TestAdvanceStopsAtSupport(t *testing.T) {
	current := StageDiscovery
	advanced := 0

	// Ten consecutive advances must fail on the call that would move past
	// support, not wrap or skip.
	for i := 0; i < 10; i++ {
		next, err := Transition(current, TransitionRequest{Action: ActionAdvance})
		if err != nil {
			assert.ErrorIs(t, err, ErrTerminalStage)
			break
		}
		current = next
		advanced++
	}

	assert.Equal(t, StageSupport, current)
	assert.Equal(t, 7, advanced) // discovery -> support is seven steps
}

func TestAdvanceFromSupportFails(t *testing.T) {
	_, err := Transition(StageSupport, TransitionRequest{Action: ActionAdvance})
	assert.ErrorIs(t, err, ErrTerminalStage)
}

func TestImplicitLockStepsBack(t *testing.T) {
	got, err := Transition(StageMapping, TransitionRequest{Action: ActionLock})
	require.NoError(t, err)
	assert.Equal(t, StageBobConfig, got)
}

func TestImplicitLockFromPreSalesFails(t *testing.T) {
	_, err := Transition(StagePreSales, TransitionRequest{Action: ActionLock})
	assert.ErrorIs(t, err, ErrFirstStage)
}

func TestExplicitLockJumpsBackward(t *testing.T) {
	// Lock is a pure rewind, not restricted to single-step.
	got, err := Transition(StageBuild, TransitionRequest{Action: ActionLock, Target: StageDiscovery})
	require.NoError(t, err)
	assert.Equal(t, StageDiscovery, got)
}

func TestExplicitLockRejectsForwardOrSameTarget(t *testing.T) {
	_, err := Transition(StageUAT, TransitionRequest{Action: ActionLock, Target: StageGoLive})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(StageUAT, TransitionRequest{Action: ActionLock, Target: StageUAT})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExplicitLockRejectsUnknownTarget(t *testing.T) {
	_, err := Transition(StageUAT, TransitionRequest{Action: ActionLock, Target: Stage("qa")})
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestUnknownActionAndCurrentStage(t *testing.T) {
	_, err := Transition(StageBuild, TransitionRequest{Action: Action("skip")})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = Transition(Stage("archived"), TransitionRequest{Action: ActionAdvance})
	assert.ErrorIs(t, err, ErrInvalidStage)
}
