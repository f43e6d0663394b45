package workflows

import "fmt"

// Milestone is one of the fixed display stages shown to the seller
type Milestone string

const (
	MilestoneSubmit      Milestone = "submit"
	MilestonePhotos      Milestone = "photos"
	MilestoneAIAnalysis  Milestone = "ai_analysis"
	MilestoneConfirm     Milestone = "confirm"
	MilestonePayment     Milestone = "payment"
	MilestoneDocuments   Milestone = "documents"
	MilestoneAdminReview Milestone = "admin_review"
	MilestoneVerified    Milestone = "verified"
)

// StepState is the derived state of a single milestone
type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepPending   StepState = "pending"
	StepError     StepState = "error"
)

var milestones = []Milestone{
	MilestoneSubmit,
	MilestonePhotos,
	MilestoneAIAnalysis,
	MilestoneConfirm,
	MilestonePayment,
	MilestoneDocuments,
	MilestoneAdminReview,
	MilestoneVerified,
}

var milestoneLabels = map[Milestone]string{
	MilestoneSubmit:      "Property submitted",
	MilestonePhotos:      "Photos uploaded",
	MilestoneAIAnalysis:  "AI analysis",
	MilestoneConfirm:     "Analysis confirmed",
	MilestonePayment:     "Verification fee paid",
	MilestoneDocuments:   "Legal documents submitted",
	MilestoneAdminReview: "Admin review",
	MilestoneVerified:    "Verified listing",
}

// Milestones returns the ordered milestone sequence
func Milestones() []Milestone {
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	return out
}

// TimelineStep is one projected milestone
type TimelineStep struct {
	Index     int       `json:"index"`
	Milestone Milestone `json:"milestone"`
	Label     string    `json:"label"`
	State     StepState `json:"state"`
}

// Timeline is the projection of a status onto the milestone sequence
type Timeline struct {
	Status   Status         `json:"status"`
	Steps    []TimelineStep `json:"steps"`
	Current  int            `json:"current"` // -1 when the workflow is finished
	NextStep string         `json:"next_step"`
}

// completedCount is the length of the completed milestone prefix implied by s.
// The switch is exhaustive over progressing statuses; rejected is handled by
// the caller through the status it was rejected from.
func completedCount(s Status) (int, error) {
	switch s {
	case StatusPending:
		return 1, nil
	case StatusAIAnalyzing:
		return 2, nil
	case StatusAIComplete:
		return 3, nil
	case StatusAwaitingPayment:
		return 4, nil
	case StatusDocumentReview:
		return 5, nil
	case StatusPendingAdminApproval,
		StatusInspectorAssigned,
		StatusInspectionScheduled,
		StatusInspectionComplete:
		return 6, nil
	case StatusVerified:
		return len(milestones), nil
	case StatusRejected:
		return 0, fmt.Errorf("%w: rejected record has no recognised origin status", ErrUnknownStatus)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
}

// ProjectTimeline maps a status onto the milestone sequence. rejectedFrom is
// only consulted when status is rejected. The projection is pure: repeated
// calls with the same arguments return equal timelines.
func ProjectTimeline(status, rejectedFrom Status) (Timeline, error) {
	basis := status
	if status == StatusRejected {
		basis = rejectedFrom
	}

	done, err := completedCount(basis)
	if err != nil {
		return Timeline{}, err
	}

	t := Timeline{
		Status:   status,
		Steps:    make([]TimelineStep, len(milestones)),
		Current:  -1,
		NextStep: status.NextStepHint(),
	}
	for i, m := range milestones {
		state := StepPending
		switch {
		case i < done:
			state = StepCompleted
		case i == done:
			state = StepCurrent
			if status == StatusRejected {
				state = StepError
			}
			t.Current = i
		}
		t.Steps[i] = TimelineStep{Index: i, Milestone: m, Label: milestoneLabels[m], State: state}
	}
	return t, nil
}
