package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankFollowsCanonicalOrder(t *testing.T) {
	prev := -1
	for _, s := range CanonicalOrder() {
		r, err := Rank(s)
		require.NoError(t, err)
		assert.Greater(t, r, prev, "status %s", s)
		prev = r
	}
}

func TestRankUnknownStatus(t *testing.T) {
	_, err := Rank("resubmit_required")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	s, err := ParseStatus("document_review")
	require.NoError(t, err)
	assert.Equal(t, StatusDocumentReview, s)
}

func TestTransitionsOnlyMoveForward(t *testing.T) {
	assert.NoError(t, NewStateMachine().Validate())
}

func TestResolveHappyPath(t *testing.T) {
	sm := NewStateMachine()
	path := []struct {
		from   Status
		action Action
		to     Status
	}{
		{StatusPending, ActionTriggerAnalysis, StatusAIAnalyzing},
		{StatusAIAnalyzing, ActionCompleteAnalysis, StatusAIComplete},
		{StatusAIComplete, ActionConfirm, StatusAwaitingPayment},
		{StatusAwaitingPayment, ActionPay, StatusDocumentReview},
		{StatusDocumentReview, ActionUploadDocument, StatusPendingAdminApproval},
		{StatusPendingAdminApproval, ActionApprove, StatusVerified},
	}
	for _, p := range path {
		step, err := sm.Resolve(p.from, p.action)
		require.NoError(t, err, "%s --%s-->", p.from, p.action)
		assert.Equal(t, p.to, step.To)
		assert.True(t, step.Changed())
	}
}

func TestResolveRejectFromAnyNonTerminal(t *testing.T) {
	sm := NewStateMachine()
	for _, s := range CanonicalOrder() {
		step, err := sm.Resolve(s, ActionReject)
		if s.IsTerminal() {
			assert.ErrorIs(t, err, ErrTerminalState, "status %s", s)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, step.To)
	}
}

func TestResolveTerminalStates(t *testing.T) {
	sm := NewStateMachine()
	for _, s := range []Status{StatusVerified, StatusRejected} {
		for _, a := range []Action{ActionApprove, ActionReject, ActionPay} {
			_, err := sm.Resolve(s, a)
			assert.ErrorIs(t, err, ErrTerminalState)
		}
	}
}

func TestResolveIllegalTransition(t *testing.T) {
	sm := NewStateMachine()

	_, err := sm.Resolve(StatusPending, ActionApprove)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = sm.Resolve(StatusAIComplete, ActionPay)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// already past the confirm target
	_, err = sm.Resolve(StatusDocumentReview, ActionConfirm)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusDocumentReview, te.Status)
	assert.Equal(t, ActionConfirm, te.Action)
}

func TestResolveRepeatAtTargetIsNoOp(t *testing.T) {
	sm := NewStateMachine()

	step, err := sm.Resolve(StatusDocumentReview, ActionPay)
	require.NoError(t, err)
	assert.True(t, step.NoOp)
	assert.False(t, step.Changed())

	step, err = sm.Resolve(StatusAwaitingPayment, ActionConfirm)
	require.NoError(t, err)
	assert.True(t, step.NoOp)
}

func TestResolveUnknownStatus(t *testing.T) {
	_, err := NewStateMachine().Resolve("archived", ActionApprove)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition(t *testing.T) {
	sm := NewStateMachine()
	assert.True(t, sm.CanTransition(StatusPending, StatusAIAnalyzing))
	assert.True(t, sm.CanTransition(StatusDocumentReview, StatusRejected))
	assert.False(t, sm.CanTransition(StatusAIAnalyzing, StatusPending))
	assert.False(t, sm.CanTransition(StatusVerified, StatusRejected))
	assert.False(t, sm.CanTransition(StatusPending, StatusPending))
}

func TestGetAllowedActions(t *testing.T) {
	sm := NewStateMachine()
	assert.Equal(t, []Action{ActionConfirm, ActionReject}, sm.GetAllowedActions(StatusAIComplete))
	assert.Empty(t, sm.GetAllowedActions(StatusVerified))
}
