package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/metrics"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// maxStaleRetries bounds re-evaluation after an optimistic version conflict
const maxStaleRetries = 3

// PaymentIntent asks the gateway to collect the verification fee
type PaymentIntent struct {
	PropertyID     uuid.UUID
	Amount         float64
	Currency       string
	Method         string
	IdempotencyKey string
}

// PaymentReceipt is the gateway's answer. Status is paid or requested.
type PaymentReceipt struct {
	PaymentID string
	Status    PaymentStatus
	Amount    float64
}

// PaymentGateway collects verification fees
type PaymentGateway interface {
	Charge(ctx context.Context, intent PaymentIntent) (*PaymentReceipt, error)
}

// AnalysisDispatcher hands a record's photos to the external analysis service.
// It must return promptly; the result arrives later through CompleteAnalysis
// or FailAnalysis.
type AnalysisDispatcher interface {
	Dispatch(ctx context.Context, rec *Record) error
}

// Config holds the verification policy
type Config struct {
	FeeAmount           float64
	Currency            string
	AnalysisTimeout     time.Duration
	MaxAnalysisAttempts int
	Discrepancy         DiscrepancyPolicy
}

func DefaultConfig() Config {
	return Config{
		FeeAmount:           1000,
		Currency:            "INR",
		AnalysisTimeout:     15 * time.Minute,
		MaxAnalysisAttempts: 3,
		Discrepancy:         DefaultDiscrepancyPolicy(),
	}
}

// View is a record together with everything derived from it
type View struct {
	Record           *Record            `json:"record"`
	Timeline         workflows.Timeline `json:"timeline"`
	Discrepancies    []Discrepancy      `json:"discrepancies"`
	Verdict          Verdict            `json:"verdict"`
	MissingDocuments []DocumentType     `json:"missing_documents"`
	AllowedActions   []workflows.Action `json:"allowed_actions"`
}

// Outcome reports what an applied request did
type Outcome struct {
	Record *Record
	Step   workflows.Step
	Entry  *ActivityEntry
}

// change is the effect a mutation wants recorded
type change struct {
	to          workflows.Status
	action      string
	description string
	metadata    map[string]interface{}
	// log forces an entry even when the status does not move
	log bool
}

type mutation func(ctx context.Context, next *Record, step workflows.Step, ch *change) error

type Service struct {
	repo       Repository
	gate       *Gate
	locks      *keyedMutex
	publisher  Publisher
	payments   PaymentGateway
	dispatcher AnalysisDispatcher
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new verification service
func NewService(repo Repository, publisher Publisher, payments PaymentGateway, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		gate:      NewGate(),
		locks:     newKeyedMutex(),
		publisher: publisher,
		payments:  payments,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetDispatcher wires the analysis dispatcher. The dispatcher usually calls
// back into the service, so it is attached after construction.
func (s *Service) SetDispatcher(d AnalysisDispatcher) {
	s.dispatcher = d
}

// Config returns the active policy
func (s *Service) Config() Config {
	return s.cfg
}

// Submit creates a pending record from a seller submission
func (s *Service) Submit(ctx context.Context, actor auth.Actor, req SubmitRequest) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	rec := &Record{
		PropertyID:    uuid.New(),
		SellerID:      actor.ID,
		SellerName:    req.SellerName,
		SellerEmail:   req.SellerEmail,
		SellerPhone:   req.SellerPhone,
		Title:         req.Title,
		PropertyType:  req.PropertyType,
		ListingType:   req.ListingType,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Pincode:       req.Pincode,
		Price:         req.Price,
		Status:        workflows.StatusPending,
		Claimed:       cloneClaimed(req.Claimed),
		Consents:      map[Consent]time.Time{},
		Documents:     map[DocumentType][]DocumentUpload{},
		PaymentStatus: PaymentUnpaid,
		FeeAmount:     s.cfg.FeeAmount,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	rec.grantConsent(ConsentTerms, now)

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to submit property: %w", err)
	}
	s.logger.Info("property submitted",
		zap.String("property_id", rec.PropertyID.String()),
		zap.String("seller", actor.Label()))
	return rec, nil
}

// Get returns the stored record
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflows.Rank(rec.Status); err != nil {
		s.logger.Error("stored record has unknown status",
			zap.String("property_id", id.String()), zap.String("status", string(rec.Status)))
		return nil, err
	}
	return rec, nil
}

// View returns the record and its derived projections
func (s *Service) View(ctx context.Context, id uuid.UUID) (*View, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.project(rec)
}

func (s *Service) project(rec *Record) (*View, error) {
	tl, err := workflows.ProjectTimeline(rec.Status, rec.RejectedFrom)
	if err != nil {
		return nil, err
	}
	return &View{
		Record:           rec,
		Timeline:         tl,
		Discrepancies:    s.cfg.Discrepancy.Evaluate(rec.Claimed, rec.AIMetrics),
		Verdict:          s.cfg.Discrepancy.Summarize(rec.Claimed, rec.AIMetrics),
		MissingDocuments: rec.MissingDocuments(),
		AllowedActions:   s.gate.AllowedActions(rec),
	}, nil
}

// Timeline projects the record's status onto the milestone sequence
func (s *Service) Timeline(ctx context.Context, id uuid.UUID) (workflows.Timeline, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return workflows.Timeline{}, err
	}
	return workflows.ProjectTimeline(rec.Status, rec.RejectedFrom)
}

// Activity returns the latest limit history entries, or all when limit <= 0
func (s *Service) Activity(ctx context.Context, id uuid.UUID, limit int) ([]ActivityEntry, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return LatestActivity(rec.Activity(), limit), nil
}

// ListBySeller returns the seller's records, newest first
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]*Record, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

// UploadPhotos attaches photos to a pending record
func (s *Service) UploadPhotos(ctx context.Context, id uuid.UUID, actor auth.Actor, photos []Photo) (*Outcome, error) {
	req := Request{Action: workflows.ActionUploadPhotos, Actor: actor, Photos: photos}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, _ *change) error {
		at := s.now()
		for _, p := range photos {
			if p.UploadedAt.IsZero() {
				p.UploadedAt = at
			}
			if p.UploadedBy == "" {
				p.UploadedBy = actor.Label()
			}
			next.Photos = append(next.Photos, p)
		}
		return nil
	})
}

// TriggerAnalysis starts, or retries after a failure, the AI analysis
func (s *Service) TriggerAnalysis(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Outcome, error) {
	req := Request{Action: workflows.ActionTriggerAnalysis, Actor: actor}
	out, err := s.apply(ctx, id, req, func(_ context.Context, next *Record, step workflows.Step, ch *change) error {
		at := s.now()
		next.AnalysisAttempts++
		next.AnalysisStartedAt = &at
		next.AnalysisFailedAt = nil
		next.AnalysisError = ""
		ch.description = "AI analysis started"
		ch.metadata = map[string]interface{}{"attempt": next.AnalysisAttempts, "photos": len(next.Photos)}
		if step.From == workflows.StatusAIAnalyzing {
			ch.action = "analysis_retried"
			ch.description = fmt.Sprintf("Analysis retried (attempt %d)", next.AnalysisAttempts)
			ch.log = true
		}
		return nil
	})
	if err != nil || out.Step.NoOp {
		return out, err
	}
	if s.dispatcher != nil {
		if derr := s.dispatcher.Dispatch(ctx, out.Record); derr != nil {
			s.logger.Warn("analysis dispatch failed",
				zap.String("property_id", id.String()), zap.Error(derr))
		}
	}
	return out, nil
}

// CompleteAnalysis records the analysis result. attempt identifies the
// analysis run the result belongs to; 0 accepts the result for whichever
// run is current.
func (s *Service) CompleteAnalysis(ctx context.Context, id uuid.UUID, actor auth.Actor, attempt int, metrics AIMetrics) (*Outcome, error) {
	req := Request{Action: workflows.ActionCompleteAnalysis, Actor: actor, Analysis: &metrics, AnalysisAttempt: attempt}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		m := metrics
		m.Detections = append([]Detection(nil), metrics.Detections...)
		next.AIMetrics = &m
		next.AnalysisFailedAt = nil
		next.AnalysisError = ""
		found := s.cfg.Discrepancy.Evaluate(next.Claimed, next.AIMetrics)
		ch.description = fmt.Sprintf("AI analysis complete: estimated %.1f sq.m, %d discrepancy(ies)", m.EstimatedArea, len(found))
		ch.metadata = map[string]interface{}{
			"estimated_area": m.EstimatedArea,
			"confidence":     m.Confidence,
			"crack_detected": m.CrackDetected,
			"discrepancies":  len(found),
		}
		return nil
	})
}

// FailAnalysis records a failed analysis attempt. Once the attempt budget
// is spent the record is rejected instead. The budget is checked against
// the record as loaded under the lock, so a result that lands first wins.
func (s *Service) FailAnalysis(ctx context.Context, id uuid.UUID, actor auth.Actor, attempt int, reason string) (*Outcome, error) {
	req := Request{Action: workflows.ActionFailAnalysis, Actor: actor, Failure: reason, AnalysisAttempt: attempt}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, step workflows.Step, ch *change) error {
		if s.cfg.MaxAnalysisAttempts > 0 && next.AnalysisAttempts >= s.cfg.MaxAnalysisAttempts {
			rejection := fmt.Sprintf("automated analysis failed: %s", reason)
			next.RejectedFrom = step.From
			next.RejectionReason = rejection
			ch.to = workflows.StatusRejected
			ch.action = string(workflows.ActionReject)
			ch.description = "Listing rejected: " + rejection
			ch.metadata = map[string]interface{}{"reason": rejection, "attempt": next.AnalysisAttempts}
			return nil
		}
		at := s.now()
		next.AnalysisFailedAt = &at
		next.AnalysisError = reason
		ch.action = "analysis_failed"
		ch.description = "AI analysis failed: " + reason
		ch.metadata = map[string]interface{}{"attempt": next.AnalysisAttempts}
		ch.log = true
		return nil
	})
}

// ConfirmRequest is the seller's acceptance of the analysis
type ConfirmRequest struct {
	UserAgrees    bool     `json:"user_agrees"`
	CorrectedArea *float64 `json:"corrected_area"`
	Notes         string   `json:"notes"`
}

// Confirm accepts the analysis, optionally correcting the claimed area
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor auth.Actor, in ConfirmRequest) (*Outcome, error) {
	req := Request{
		Action:        workflows.ActionConfirm,
		Actor:         actor,
		UserAgrees:    in.UserAgrees,
		CorrectedArea: in.CorrectedArea,
		Notes:         in.Notes,
	}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		at := s.now()
		next.grantConsent(ConsentDataAccuracy, at)
		next.grantConsent(ConsentAIAnalysis, at)
		ch.description = "Seller confirmed the analysis result"
		ch.metadata = map[string]interface{}{}
		if in.CorrectedArea != nil {
			v := *in.CorrectedArea
			if next.Claimed.Area != nil {
				ch.metadata["previous_area"] = *next.Claimed.Area
			}
			next.Claimed.Area = &v
			ch.metadata["corrected_area"] = v
			ch.description = fmt.Sprintf("Seller confirmed the analysis with corrected area %.1f sq.m", v)
		}
		if in.Notes != "" {
			ch.metadata["notes"] = in.Notes
		}
		return nil
	})
}

// PayRequest carries the payment consent and method
type PayRequest struct {
	PaymentConsent bool   `json:"payment_consent"`
	PaymentMethod  string `json:"payment_method"`
}

// Pay collects the verification fee through the gateway. A deferred
// gateway answer leaves the record awaiting payment confirmation.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, actor auth.Actor, in PayRequest) (*Outcome, error) {
	req := Request{
		Action:         workflows.ActionPay,
		Actor:          actor,
		PaymentConsent: in.PaymentConsent,
		PaymentMethod:  in.PaymentMethod,
	}
	return s.apply(ctx, id, req, func(ctx context.Context, next *Record, step workflows.Step, ch *change) error {
		if s.payments == nil {
			return errors.New("no payment gateway configured")
		}
		receipt, err := s.payments.Charge(ctx, PaymentIntent{
			PropertyID:     next.PropertyID,
			Amount:         next.FeeAmount,
			Currency:       s.cfg.Currency,
			Method:         in.PaymentMethod,
			IdempotencyKey: "verification-fee-" + next.PropertyID.String(),
		})
		if err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}
		at := s.now()
		next.grantConsent(ConsentPayment, at)
		next.PaymentID = receipt.PaymentID
		next.PaymentMethod = in.PaymentMethod
		ch.metadata = map[string]interface{}{
			"payment_id": receipt.PaymentID,
			"amount":     receipt.Amount,
			"method":     in.PaymentMethod,
		}
		switch receipt.Status {
		case PaymentPaid:
			next.PaymentStatus = PaymentPaid
			ch.description = fmt.Sprintf("Verification fee paid (%s)", receipt.PaymentID)
		case PaymentRequested:
			next.PaymentStatus = PaymentRequested
			ch.to = step.From
			ch.action = "payment_requested"
			ch.description = fmt.Sprintf("Verification fee requested (%s)", receipt.PaymentID)
			ch.log = true
		default:
			return fmt.Errorf("payment gateway returned unexpected status %q", receipt.Status)
		}
		return nil
	})
}

// ConfirmPayment completes a deferred payment
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID, actor auth.Actor, paymentID string) (*Outcome, error) {
	req := Request{Action: workflows.ActionConfirmPayment, Actor: actor, PaymentID: paymentID}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		next.PaymentStatus = PaymentPaid
		ch.description = fmt.Sprintf("Verification fee payment %s confirmed", next.PaymentID)
		ch.metadata = map[string]interface{}{"payment_id": next.PaymentID}
		return nil
	})
}

// UploadDocument records a stored legal document. The record moves to
// admin review once every required type is present.
func (s *Service) UploadDocument(ctx context.Context, id uuid.UUID, actor auth.Actor, doc DocumentUpload) (*Outcome, error) {
	req := Request{Action: workflows.ActionUploadDocument, Actor: actor, Document: &doc}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = s.now()
		}
		if doc.UploadedBy == "" {
			doc.UploadedBy = actor.Label()
		}
		if next.Documents == nil {
			next.Documents = map[DocumentType][]DocumentUpload{}
		}
		next.Documents[doc.Type] = append(next.Documents[doc.Type], doc)
		ch.action = "documents_complete"
		ch.description = "All required legal documents submitted"
		ch.metadata = map[string]interface{}{"last_document": string(doc.Type)}
		return nil
	})
}

// Approve verifies the listing
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor auth.Actor, notes string) (*Outcome, error) {
	req := Request{Action: workflows.ActionApprove, Actor: actor, Notes: notes}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		next.AdminNotes = notes
		ch.description = "Listing approved and verified"
		if notes != "" {
			ch.metadata = map[string]interface{}{"notes": notes}
		}
		return nil
	})
}

// Reject ends the workflow with a reason
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor auth.Actor, reason string) (*Outcome, error) {
	req := Request{Action: workflows.ActionReject, Actor: actor, Reason: reason}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, step workflows.Step, ch *change) error {
		next.RejectedFrom = step.From
		next.RejectionReason = reason
		ch.description = "Listing rejected: " + reason
		ch.metadata = map[string]interface{}{"reason": reason}
		return nil
	})
}

// AssignInspector moves the record onto the inspection path
func (s *Service) AssignInspector(ctx context.Context, id uuid.UUID, actor auth.Actor, inspector string) (*Outcome, error) {
	req := Request{Action: workflows.ActionAssignInspector, Actor: actor, InspectorName: inspector}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		next.Inspection = &Inspection{InspectorName: inspector, AssignedAt: s.now()}
		ch.description = "Inspector assigned: " + inspector
		ch.metadata = map[string]interface{}{"inspector": inspector}
		return nil
	})
}

// ScheduleRequest is the seller's inspection booking
type ScheduleRequest struct {
	InspectionConsent bool      `json:"inspection_consent"`
	Date              time.Time `json:"date"`
}

// ScheduleInspection books the inspection date
func (s *Service) ScheduleInspection(ctx context.Context, id uuid.UUID, actor auth.Actor, in ScheduleRequest) (*Outcome, error) {
	req := Request{
		Action:            workflows.ActionScheduleInspection,
		Actor:             actor,
		InspectionConsent: in.InspectionConsent,
	}
	if !in.Date.IsZero() {
		d := in.Date
		req.InspectionDate = &d
	}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		next.grantConsent(ConsentInspection, s.now())
		if next.Inspection == nil {
			next.Inspection = &Inspection{}
		}
		d := in.Date
		next.Inspection.ScheduledFor = &d
		ch.description = "Inspection scheduled for " + d.Format("2006-01-02")
		ch.metadata = map[string]interface{}{"scheduled_for": d.Format(time.RFC3339)}
		return nil
	})
}

// InspectionResult is the inspector's report
type InspectionResult struct {
	Report string `json:"report"`
	Passed bool   `json:"passed"`
}

// CompleteInspection records the inspection report
func (s *Service) CompleteInspection(ctx context.Context, id uuid.UUID, actor auth.Actor, in InspectionResult) (*Outcome, error) {
	req := Request{
		Action:           workflows.ActionCompleteInspection,
		Actor:            actor,
		InspectionReport: in.Report,
		InspectionPassed: in.Passed,
	}
	return s.apply(ctx, id, req, func(_ context.Context, next *Record, _ workflows.Step, ch *change) error {
		if next.Inspection == nil {
			next.Inspection = &Inspection{}
		}
		at := s.now()
		passed := in.Passed
		next.Inspection.Report = in.Report
		next.Inspection.Passed = &passed
		next.Inspection.CompletedAt = &at
		ch.description = "Inspection completed"
		ch.metadata = map[string]interface{}{"passed": passed}
		return nil
	})
}

// apply evaluates req under the record lock, runs mutate on a copy, and
// persists the copy together with its log entry. A version conflict
// re-evaluates against the fresh record.
func (s *Service) apply(ctx context.Context, id uuid.UUID, req Request, mutate mutation) (*Outcome, error) {
	for attempt := 0; ; attempt++ {
		out, err := s.applyOnce(ctx, id, req, mutate)
		if errors.Is(err, ErrStaleRecord) && attempt < maxStaleRetries {
			metrics.StaleSaves.Inc()
			s.logger.Debug("stale record, re-evaluating",
				zap.String("property_id", id.String()), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			metrics.Refusals.WithLabelValues(string(req.Action), refusalReason(err)).Inc()
			return nil, err
		}
		if out.Step.Changed() {
			s.publish(ctx, req, out)
		}
		return out, nil
	}
}

func (s *Service) applyOnce(ctx context.Context, id uuid.UUID, req Request, mutate mutation) (*Outcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	step, err := s.gate.Evaluate(rec, req)
	if err != nil {
		s.logger.Info("action refused",
			zap.String("property_id", id.String()),
			zap.String("action", string(req.Action)),
			zap.String("status", string(rec.Status)),
			zap.Error(err))
		return nil, err
	}
	if step.NoOp {
		return &Outcome{Record: rec, Step: step}, nil
	}

	next := rec.Clone()
	ch := &change{to: step.To, action: string(req.Action)}
	if err := mutate(ctx, next, step, ch); err != nil {
		return nil, err
	}
	step.To = ch.to
	next.Status = step.To

	var entry *ActivityEntry
	if step.Changed() || ch.log {
		e := newEntry(next, s.now(), ch.action, req.Actor.Label(), ch.description, step.From, step.To, ch.metadata)
		next.ActivityLog = append(next.ActivityLog, e)
		entry = &e
	}
	next.Version = rec.Version + 1
	next.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, next, rec.Version, entry); err != nil {
		return nil, err
	}
	if step.Changed() {
		metrics.Transitions.WithLabelValues(string(step.From), string(step.To), string(req.Action)).Inc()
		s.logger.Info("status transition",
			zap.String("property_id", id.String()),
			zap.String("action", string(req.Action)),
			zap.String("from", string(step.From)),
			zap.String("to", string(step.To)),
			zap.String("actor", req.Actor.Label()))
	}
	return &Outcome{Record: next, Step: step, Entry: entry}, nil
}

func (s *Service) publish(ctx context.Context, req Request, out *Outcome) {
	if s.publisher == nil {
		return
	}
	rec := out.Record
	tl, err := workflows.ProjectTimeline(rec.Status, rec.RejectedFrom)
	if err != nil {
		s.logger.Error("failed to project timeline for event", zap.Error(err))
		return
	}
	evt := Event{
		PropertyID:  rec.PropertyID,
		Action:      req.Action,
		From:        out.Step.From,
		To:          out.Step.To,
		PerformedBy: req.Actor.Label(),
		Timestamp:   rec.UpdatedAt,
		Timeline:    tl,
		SellerName:  rec.SellerName,
		SellerEmail: rec.SellerEmail,
		Title:       rec.Title,
		FeeAmount:   rec.FeeAmount,
		Reason:      rec.RejectionReason,
	}
	if out.Entry != nil {
		evt.Entry = *out.Entry
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish transition event",
			zap.String("property_id", rec.PropertyID.String()), zap.Error(err))
	}
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, workflows.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, workflows.ErrPreconditionUnmet):
		return "precondition_unmet"
	case errors.Is(err, workflows.ErrTerminalState):
		return "terminal_state"
	case errors.Is(err, workflows.ErrUnknownStatus):
		return "unknown_status"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStaleRecord):
		return "stale"
	}
	return "error"
}
