package workflows

import "fmt"

// Status is the lifecycle value of a verification record
type Status string

const (
	StatusPending              Status = "pending"
	StatusAIAnalyzing          Status = "ai_analyzing"
	StatusAIComplete           Status = "ai_complete"
	StatusAwaitingPayment      Status = "awaiting_payment"
	StatusDocumentReview       Status = "document_review"
	StatusPendingAdminApproval Status = "pending_admin_approval"
	StatusInspectorAssigned    Status = "inspector_assigned"
	StatusInspectionScheduled  Status = "inspection_scheduled"
	StatusInspectionComplete   Status = "inspection_complete"
	StatusVerified             Status = "verified"
	StatusRejected             Status = "rejected"
)

// canonicalOrder is the order in which statuses normally occur.
// rejected is registered last but is never a successor of verified.
var canonicalOrder = []Status{
	StatusPending,
	StatusAIAnalyzing,
	StatusAIComplete,
	StatusAwaitingPayment,
	StatusDocumentReview,
	StatusPendingAdminApproval,
	StatusInspectorAssigned,
	StatusInspectionScheduled,
	StatusInspectionComplete,
	StatusVerified,
	StatusRejected,
}

var ranks = func() map[Status]int {
	m := make(map[Status]int, len(canonicalOrder))
	for i, s := range canonicalOrder {
		m[s] = i
	}
	return m
}()

// CanonicalOrder returns a copy of the registered statuses in canonical order
func CanonicalOrder() []Status {
	out := make([]Status, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Rank returns the position of s in the canonical order
func Rank(s Status) (int, error) {
	r, ok := ranks[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
	return r, nil
}

// ParseStatus normalizes a raw status string read from storage or the wire
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, err := Rank(s); err != nil {
		return "", err
	}
	return s, nil
}

// IsValid reports whether s is a registered status
func (s Status) IsValid() bool {
	_, ok := ranks[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// NextStepHint is the seller-facing description of what happens next
func (s Status) NextStepHint() string {
	switch s {
	case StatusPending:
		return "Upload property photos"
	case StatusAIAnalyzing:
		return "Waiting for AI analysis..."
	case StatusAIComplete:
		return "Review and confirm AI analysis"
	case StatusAwaitingPayment:
		return "Complete payment"
	case StatusDocumentReview:
		return "Upload legal documents"
	case StatusPendingAdminApproval:
		return "Awaiting admin review"
	case StatusInspectorAssigned:
		return "Schedule inspection"
	case StatusInspectionScheduled:
		return "Await inspector visit"
	case StatusInspectionComplete:
		return "Awaiting final verdict"
	case StatusVerified:
		return "Listed on marketplace!"
	case StatusRejected:
		return "Review rejection reason"
	}
	return ""
}
