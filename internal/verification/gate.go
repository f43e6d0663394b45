package verification

import (
	"fmt"
	"strings"
	"time"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// Request is an action against a record together with its inputs
type Request struct {
	Action workflows.Action
	Actor  auth.Actor

	Photos   []Photo
	Document *DocumentUpload
	Analysis *AIMetrics
	Failure  string
	// AnalysisAttempt ties an analysis outcome to a run; 0 means the current run
	AnalysisAttempt int

	UserAgrees    bool
	CorrectedArea *float64
	Notes         string

	PaymentConsent bool
	PaymentMethod  string
	PaymentID      string

	InspectorName     string
	InspectionConsent bool
	InspectionDate    *time.Time
	InspectionReport  string
	InspectionPassed  bool

	Reason string
}

// Gate decides whether a request is legal for a record and where it leads
type Gate struct {
	machine *workflows.StateMachine
}

func NewGate() *Gate {
	return &Gate{machine: workflows.NewStateMachine()}
}

// Evaluate resolves req against rec without mutating it. The returned step
// says where the record goes; NoOp steps must not be persisted.
func (g *Gate) Evaluate(rec *Record, req Request) (workflows.Step, error) {
	step, err := g.machine.Resolve(rec.Status, req.Action)
	if err != nil || step.NoOp {
		return step, err
	}
	unmet := func(detail string) (workflows.Step, error) {
		return workflows.Step{}, workflows.Unmet(rec.Status, req.Action, detail)
	}
	if req.Actor.Is(auth.RoleSeller) && rec.SellerID != "" && req.Actor.ID != rec.SellerID {
		return unmet("only the listing owner may act on this record")
	}

	switch req.Action {
	case workflows.ActionReject:
		if !req.Actor.Is(auth.RoleAdmin, auth.RoleSystem) {
			return unmet("admin authority required")
		}
		if strings.TrimSpace(req.Reason) == "" {
			return unmet("rejection reason required")
		}

	case workflows.ActionUploadPhotos:
		if len(req.Photos) == 0 {
			return unmet("at least one photo required")
		}

	case workflows.ActionTriggerAnalysis:
		if len(rec.Photos) == 0 {
			return unmet("photos must be uploaded before analysis")
		}
		// a retry is only meaningful once the running attempt has failed
		if rec.Status == workflows.StatusAIAnalyzing && rec.AnalysisFailedAt == nil {
			return workflows.Step{From: rec.Status, To: rec.Status, NoOp: true}, nil
		}

	case workflows.ActionCompleteAnalysis:
		if !req.Actor.Is(auth.RoleSystem) {
			return unmet("system authority required")
		}
		if superseded(rec, req) {
			return workflows.Step{}, workflows.Illegal(rec.Status, req.Action,
				fmt.Sprintf("result of attempt %d superseded by attempt %d", req.AnalysisAttempt, rec.AnalysisAttempts))
		}
		if req.Analysis == nil {
			return unmet("analysis result required")
		}
		if req.Analysis.EstimatedArea < 0 || req.Analysis.Confidence < 0 || req.Analysis.Confidence > 100 {
			return unmet("analysis result out of range")
		}

	case workflows.ActionFailAnalysis:
		if !req.Actor.Is(auth.RoleSystem) {
			return unmet("system authority required")
		}
		if superseded(rec, req) {
			return workflows.Step{}, workflows.Illegal(rec.Status, req.Action,
				fmt.Sprintf("failure of attempt %d superseded by attempt %d", req.AnalysisAttempt, rec.AnalysisAttempts))
		}

	case workflows.ActionConfirm:
		if !req.UserAgrees {
			return unmet("user must agree to the analysis result")
		}
		if req.CorrectedArea != nil && *req.CorrectedArea <= 0 {
			return unmet("corrected area must be positive")
		}

	case workflows.ActionPay:
		if !req.PaymentConsent {
			return unmet("payment consent required")
		}
		if rec.PaymentStatus == PaymentRequested {
			return unmet("payment already requested and awaiting confirmation")
		}

	case workflows.ActionConfirmPayment:
		if !req.Actor.Is(auth.RoleSystem) {
			return unmet("system authority required")
		}
		if rec.PaymentStatus != PaymentRequested {
			return unmet("no payment awaiting confirmation")
		}
		if req.PaymentID != "" && rec.PaymentID != "" && req.PaymentID != rec.PaymentID {
			return unmet("payment id does not match the requested payment")
		}

	case workflows.ActionUploadDocument:
		if req.Document == nil {
			return unmet("document required")
		}
		if _, err := ParseDocumentType(string(req.Document.Type)); err != nil {
			return unmet(err.Error())
		}
		if rec.Status == workflows.StatusDocumentReview && !satisfiedAfter(rec, req.Document.Type) {
			step.To = rec.Status
		}

	case workflows.ActionApprove, workflows.ActionAssignInspector:
		if !req.Actor.Is(auth.RoleAdmin) {
			return unmet("admin authority required")
		}
		if req.Action == workflows.ActionAssignInspector && strings.TrimSpace(req.InspectorName) == "" {
			return unmet("inspector name required")
		}

	case workflows.ActionScheduleInspection:
		if !req.InspectionConsent && !rec.HasConsent(ConsentInspection) {
			return unmet("inspection consent required")
		}
		if req.InspectionDate == nil {
			return unmet("inspection date required")
		}

	case workflows.ActionCompleteInspection:
		if !req.Actor.Is(auth.RoleAdmin, auth.RoleInspector) {
			return unmet("admin or inspector authority required")
		}
		if strings.TrimSpace(req.InspectionReport) == "" {
			return unmet("inspection report required")
		}
	}
	return step, nil
}

// superseded reports whether req carries an outcome for an analysis run
// other than the one in progress
func superseded(rec *Record, req Request) bool {
	return req.AnalysisAttempt > 0 && req.AnalysisAttempt != rec.AnalysisAttempts
}

// satisfiedAfter reports whether adding a document of type dt completes the required set
func satisfiedAfter(rec *Record, dt DocumentType) bool {
	for _, req := range RequiredDocumentTypes {
		if req != dt && len(rec.Documents[req]) == 0 {
			return false
		}
	}
	return true
}

// AllowedActions lists the actions the state machine accepts for rec's status
func (g *Gate) AllowedActions(rec *Record) []workflows.Action {
	return g.machine.GetAllowedActions(rec.Status)
}
