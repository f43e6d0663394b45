package workflows

import (
	"fmt"
	"sort"
)

// Action is a seller, admin or system request against a verification record
type Action string

const (
	ActionUploadPhotos       Action = "upload-photos"
	ActionTriggerAnalysis    Action = "trigger-analysis"
	ActionCompleteAnalysis   Action = "complete-analysis"
	ActionFailAnalysis       Action = "fail-analysis"
	ActionConfirm            Action = "confirm"
	ActionPay                Action = "pay"
	ActionConfirmPayment     Action = "confirm-payment"
	ActionUploadDocument     Action = "upload-document"
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionAssignInspector    Action = "assign-inspector"
	ActionScheduleInspection Action = "schedule-inspection"
	ActionCompleteInspection Action = "complete-inspection"
)

// Step is the resolved effect of an action on a status
type Step struct {
	From Status
	To   Status
	// NoOp is set when the record already sits at the action's target,
	// e.g. the losing side of two concurrent identical requests.
	NoOp bool
}

// Changed reports whether the step moves the record to a new status
func (s Step) Changed() bool {
	return !s.NoOp && s.From != s.To
}

// StateMachine enforces verification status transitions
type StateMachine struct {
	allowedTransitions map[Status]map[Action]Status
}

// NewStateMachine creates a new state machine with allowed transitions.
// Self-loops are actions that are legal but leave the status unchanged.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[Status]map[Action]Status{
			StatusPending: {
				ActionUploadPhotos:    StatusPending,
				ActionTriggerAnalysis: StatusAIAnalyzing,
			},
			StatusAIAnalyzing: {
				ActionCompleteAnalysis: StatusAIComplete,
				ActionFailAnalysis:     StatusAIAnalyzing,
				ActionTriggerAnalysis:  StatusAIAnalyzing,
			},
			StatusAIComplete: {
				ActionConfirm: StatusAwaitingPayment,
			},
			StatusAwaitingPayment: {
				ActionPay:            StatusDocumentReview,
				ActionConfirmPayment: StatusDocumentReview,
			},
			StatusDocumentReview: {
				ActionUploadDocument: StatusPendingAdminApproval,
			},
			StatusPendingAdminApproval: {
				ActionApprove:         StatusVerified,
				ActionAssignInspector: StatusInspectorAssigned,
				ActionUploadDocument:  StatusPendingAdminApproval,
			},
			StatusInspectorAssigned: {
				ActionScheduleInspection: StatusInspectionScheduled,
				ActionUploadDocument:     StatusInspectorAssigned,
			},
			StatusInspectionScheduled: {
				ActionCompleteInspection: StatusInspectionComplete,
				ActionUploadDocument:     StatusInspectionScheduled,
			},
			StatusInspectionComplete: {
				ActionApprove:        StatusVerified,
				ActionUploadDocument: StatusInspectionComplete,
			},
			StatusVerified: {},
			StatusRejected: {},
		},
	}
}

// Resolve determines the effect of action a on status from.
// Checks run in order: unknown status, terminal status, reject, table lookup,
// idempotent repeat of an already-applied action.
func (sm *StateMachine) Resolve(from Status, a Action) (Step, error) {
	if _, err := Rank(from); err != nil {
		return Step{}, err
	}
	if from.IsTerminal() {
		return Step{}, Terminal(from, a)
	}
	if a == ActionReject {
		return Step{From: from, To: StatusRejected}, nil
	}
	if to, ok := sm.allowedTransitions[from][a]; ok {
		return Step{From: from, To: to}, nil
	}
	if sm.advancesTo(a, from) {
		return Step{From: from, To: from, NoOp: true}, nil
	}
	return Step{}, Illegal(from, a, "")
}

// advancesTo reports whether a moves some other status forward into target
func (sm *StateMachine) advancesTo(a Action, target Status) bool {
	for from, actions := range sm.allowedTransitions {
		if to, ok := actions[a]; ok && to == target && from != target {
			return true
		}
	}
	return false
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to Status) bool {
	if from.IsTerminal() || !from.IsValid() {
		return false
	}
	if to == StatusRejected {
		return true
	}
	for _, allowedTo := range sm.allowedTransitions[from] {
		if allowedTo == to && from != to {
			return true
		}
	}
	return false
}

// GetAllowedActions returns the actions accepted in a given status
func (sm *StateMachine) GetAllowedActions(from Status) []Action {
	if from.IsTerminal() {
		return []Action{}
	}
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []Action{}
	}
	out := make([]Action, 0, len(allowed)+1)
	for a := range allowed {
		out = append(out, a)
	}
	out = append(out, ActionReject)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks that every configured transition moves forward in the
// canonical order and never leaves a terminal status.
func (sm *StateMachine) Validate() error {
	for from, actions := range sm.allowedTransitions {
		fromRank, err := Rank(from)
		if err != nil {
			return err
		}
		if from.IsTerminal() && len(actions) > 0 {
			return fmt.Errorf("terminal status %s has outgoing transitions", from)
		}
		for a, to := range actions {
			toRank, err := Rank(to)
			if err != nil {
				return err
			}
			if toRank < fromRank || to == StatusRejected {
				return fmt.Errorf("transition %s --%s--> %s is not forward", from, a, to)
			}
		}
	}
	return nil
}
