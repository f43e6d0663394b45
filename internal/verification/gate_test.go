package verification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

var (
	seller    = auth.Actor{ID: "seller-1", Role: auth.RoleSeller}
	admin     = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}
	inspector = auth.Actor{ID: "insp-1", Role: auth.RoleInspector}
	system    = auth.System("analysis")
)

func recordAt(status workflows.Status) *Record {
	return &Record{
		PropertyID:    uuid.New(),
		SellerID:      seller.ID,
		Status:        status,
		PaymentStatus: PaymentUnpaid,
		Documents:     map[DocumentType][]DocumentUpload{},
	}
}

func withDocs(rec *Record, types ...DocumentType) *Record {
	for _, dt := range types {
		rec.Documents[dt] = append(rec.Documents[dt], DocumentUpload{Type: dt})
	}
	return rec
}

func TestGateTriggerAnalysisNeedsPhotos(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusPending)

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionTriggerAnalysis, Actor: seller})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	rec.Photos = []Photo{{Key: "p1"}}
	step, err := g.Evaluate(rec, Request{Action: workflows.ActionTriggerAnalysis, Actor: seller})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusAIAnalyzing, step.To)
}

func TestGateAnalysisRetryOnlyAfterFailure(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAIAnalyzing)
	rec.Photos = []Photo{{Key: "p1"}}

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionTriggerAnalysis, Actor: seller})
	require.NoError(t, err)
	assert.True(t, step.NoOp)

	failed := time.Now()
	rec.AnalysisFailedAt = &failed
	step, err = g.Evaluate(rec, Request{Action: workflows.ActionTriggerAnalysis, Actor: seller})
	require.NoError(t, err)
	assert.False(t, step.NoOp)
	assert.Equal(t, workflows.StatusAIAnalyzing, step.To)
}

func TestGateCompleteAnalysisRequiresSystem(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAIAnalyzing)
	result := &AIMetrics{EstimatedArea: 90, Confidence: 80}

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionCompleteAnalysis, Actor: seller, Analysis: result})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	_, err = g.Evaluate(rec, Request{Action: workflows.ActionCompleteAnalysis, Actor: system})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionCompleteAnalysis, Actor: system, Analysis: result})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusAIComplete, step.To)
}

func TestGateAnalysisOutcomeMatchesAttempt(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAIAnalyzing)
	rec.AnalysisAttempts = 2
	result := &AIMetrics{EstimatedArea: 90, Confidence: 80}

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionCompleteAnalysis, Actor: system, Analysis: result, AnalysisAttempt: 1})
	assert.ErrorIs(t, err, workflows.ErrIllegalTransition)
	_, err = g.Evaluate(rec, Request{Action: workflows.ActionFailAnalysis, Actor: system, Failure: "timeout", AnalysisAttempt: 1})
	assert.ErrorIs(t, err, workflows.ErrIllegalTransition)

	for _, attempt := range []int{0, 2} {
		step, err := g.Evaluate(rec, Request{Action: workflows.ActionCompleteAnalysis, Actor: system, Analysis: result, AnalysisAttempt: attempt})
		require.NoError(t, err)
		assert.Equal(t, workflows.StatusAIComplete, step.To)

		_, err = g.Evaluate(rec, Request{Action: workflows.ActionFailAnalysis, Actor: system, Failure: "timeout", AnalysisAttempt: attempt})
		require.NoError(t, err)
	}
}

func TestGateConfirmNeedsAgreement(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAIComplete)

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionConfirm, Actor: seller})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	bad := -5.0
	_, err = g.Evaluate(rec, Request{Action: workflows.ActionConfirm, Actor: seller, UserAgrees: true, CorrectedArea: &bad})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionConfirm, Actor: seller, UserAgrees: true})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusAwaitingPayment, step.To)
}

func TestGatePayNeedsConsent(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAwaitingPayment)

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionPay, Actor: seller})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionPay, Actor: seller, PaymentConsent: true})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusDocumentReview, step.To)
}

func TestGateConfirmPayment(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAwaitingPayment)

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionConfirmPayment, Actor: system})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	rec.PaymentStatus = PaymentRequested
	rec.PaymentID = "PAY_ABC"
	_, err = g.Evaluate(rec, Request{Action: workflows.ActionConfirmPayment, Actor: system, PaymentID: "PAY_OTHER"})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionConfirmPayment, Actor: system, PaymentID: "PAY_ABC"})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusDocumentReview, step.To)
}

func TestGateDocumentUploadAdvancesWhenComplete(t *testing.T) {
	g := NewGate()
	upload := func(dt DocumentType) Request {
		return Request{Action: workflows.ActionUploadDocument, Actor: seller, Document: &DocumentUpload{Type: dt}}
	}

	rec := recordAt(workflows.StatusDocumentReview)
	step, err := g.Evaluate(rec, upload(DocumentPatta))
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusDocumentReview, step.To)
	assert.False(t, step.Changed())

	rec = withDocs(recordAt(workflows.StatusDocumentReview), DocumentPatta, DocumentSaleDeed, DocumentEC)
	step, err = g.Evaluate(rec, upload(DocumentKhata))
	require.NoError(t, err)
	assert.False(t, step.Changed(), "optional types do not complete the set")

	step, err = g.Evaluate(rec, upload(DocumentTaxReceipt))
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusPendingAdminApproval, step.To)

	_, err = g.Evaluate(rec, upload("passport"))
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	later := recordAt(workflows.StatusPendingAdminApproval)
	step, err = g.Evaluate(later, upload(DocumentOther))
	require.NoError(t, err)
	assert.False(t, step.Changed())
}

func TestGateAdminAuthority(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusPendingAdminApproval)

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionApprove, Actor: seller})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	_, err = g.Evaluate(rec, Request{Action: workflows.ActionReject, Actor: seller, Reason: "nope"})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)

	_, err = g.Evaluate(rec, Request{Action: workflows.ActionReject, Actor: admin})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet, "reason is required")

	step, err := g.Evaluate(rec, Request{Action: workflows.ActionApprove, Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusVerified, step.To)
}

func TestGateRejectsForeignSeller(t *testing.T) {
	g := NewGate()
	rec := recordAt(workflows.StatusAIComplete)
	other := auth.Actor{ID: "seller-2", Role: auth.RoleSeller}

	_, err := g.Evaluate(rec, Request{Action: workflows.ActionConfirm, Actor: other, UserAgrees: true})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)
}

func TestGateInspectionPath(t *testing.T) {
	g := NewGate()

	rec := recordAt(workflows.StatusPendingAdminApproval)
	_, err := g.Evaluate(rec, Request{Action: workflows.ActionAssignInspector, Actor: admin})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)
	step, err := g.Evaluate(rec, Request{Action: workflows.ActionAssignInspector, Actor: admin, InspectorName: "R. Kumar"})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusInspectorAssigned, step.To)

	rec = recordAt(workflows.StatusInspectorAssigned)
	date := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	_, err = g.Evaluate(rec, Request{Action: workflows.ActionScheduleInspection, Actor: seller, InspectionDate: &date})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)
	step, err = g.Evaluate(rec, Request{Action: workflows.ActionScheduleInspection, Actor: seller, InspectionConsent: true, InspectionDate: &date})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusInspectionScheduled, step.To)

	rec = recordAt(workflows.StatusInspectionScheduled)
	_, err = g.Evaluate(rec, Request{Action: workflows.ActionCompleteInspection, Actor: seller, InspectionReport: "ok"})
	assert.ErrorIs(t, err, workflows.ErrPreconditionUnmet)
	step, err = g.Evaluate(rec, Request{Action: workflows.ActionCompleteInspection, Actor: inspector, InspectionReport: "ok"})
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusInspectionComplete, step.To)
}

func TestGateStructuralErrorsComeFirst(t *testing.T) {
	g := NewGate()

	// illegal beats a missing precondition
	_, err := g.Evaluate(recordAt(workflows.StatusPending), Request{Action: workflows.ActionPay, Actor: seller})
	assert.ErrorIs(t, err, workflows.ErrIllegalTransition)

	_, err = g.Evaluate(recordAt(workflows.StatusVerified), Request{Action: workflows.ActionReject, Actor: admin, Reason: "x"})
	assert.ErrorIs(t, err, workflows.ErrTerminalState)

	_, err = g.Evaluate(recordAt("resubmit_required"), Request{Action: workflows.ActionApprove, Actor: admin})
	assert.ErrorIs(t, err, workflows.ErrUnknownStatus)
}
