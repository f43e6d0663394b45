package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

var (
	ErrNotFound     = errors.New("verification record not found")
	ErrStaleRecord  = errors.New("verification record was modified concurrently")
	ErrInvalidInput = errors.New("invalid input")
)

// Consent is a seller agreement recorded on the record
type Consent string

const (
	ConsentTerms        Consent = "terms"
	ConsentDataAccuracy Consent = "data_accuracy"
	ConsentAIAnalysis   Consent = "ai_analysis"
	ConsentInspection   Consent = "inspection"
	ConsentPayment      Consent = "payment"
)

// PaymentStatus tracks the verification fee
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentRequested PaymentStatus = "requested"
	PaymentPaid      PaymentStatus = "paid"
)

// DocumentType is a legal document category
type DocumentType string

const (
	DocumentPatta      DocumentType = "patta"
	DocumentSaleDeed   DocumentType = "sale_deed"
	DocumentEC         DocumentType = "ec"
	DocumentKhata      DocumentType = "khata"
	DocumentTaxReceipt DocumentType = "tax_receipt"
	DocumentOther      DocumentType = "other"
)

// RequiredDocumentTypes must all be uploaded before admin review
var RequiredDocumentTypes = []DocumentType{DocumentPatta, DocumentSaleDeed, DocumentEC, DocumentTaxReceipt}

var documentTypes = map[DocumentType]bool{
	DocumentPatta:      true,
	DocumentSaleDeed:   true,
	DocumentEC:         true,
	DocumentKhata:      true,
	DocumentTaxReceipt: true,
	DocumentOther:      true,
}

// ParseDocumentType validates a document type supplied by a client
func ParseDocumentType(raw string) (DocumentType, error) {
	dt := DocumentType(raw)
	if !documentTypes[dt] {
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, raw)
	}
	return dt, nil
}

// ClaimedMetrics are the seller-declared property attributes
type ClaimedMetrics struct {
	Area      *float64 `json:"area,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Length    *float64 `json:"length,omitempty"`
	Bedrooms  *int     `json:"bedrooms,omitempty"`
	Bathrooms *int     `json:"bathrooms,omitempty"`
}

// Detection is a single object reported by the analysis service
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	IsCrack    bool       `json:"is_crack"`
	Box        [4]float64 `json:"box"`
}

// AIMetrics is the analysis result for a record's photos
type AIMetrics struct {
	EstimatedArea    float64     `json:"estimated_area"`
	RoomType         string      `json:"room_type"`
	Confidence       float64     `json:"confidence"`
	CrackDetected    bool        `json:"crack_detected"`
	Detections       []Detection `json:"detections"`
	EstimationMethod string      `json:"estimation_method"`
	ReferenceObject  string      `json:"reference_object,omitempty"`
}

// CrackCount returns the number of crack detections
func (m *AIMetrics) CrackCount() int {
	n := 0
	for _, d := range m.Detections {
		if d.IsCrack {
			n++
		}
	}
	return n
}

// Photo is an uploaded property photo
type Photo struct {
	Key        string    `json:"key"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	UploadedBy string    `json:"uploaded_by"`
}

// DocumentUpload is the metadata of a stored legal document
type DocumentUpload struct {
	ID               uuid.UUID    `json:"id"`
	Type             DocumentType `json:"type"`
	OriginalFilename string       `json:"original_filename"`
	StorageKey       string       `json:"storage_key"`
	Size             int64        `json:"size"`
	UploadedAt       time.Time    `json:"uploaded_at"`
	UploadedBy       string       `json:"uploaded_by"`
}

// Inspection tracks the optional physical inspection
type Inspection struct {
	InspectorName string     `json:"inspector_name"`
	AssignedAt    time.Time  `json:"assigned_at"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	Report        string     `json:"report,omitempty"`
	Passed        *bool      `json:"passed,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Record is the verification state of one listed property
type Record struct {
	PropertyID uuid.UUID `gorm:"type:uuid;primaryKey" json:"property_id"`

	SellerID     string  `gorm:"type:varchar(128);index" json:"seller_id"`
	SellerName   string  `gorm:"type:varchar(255);not null" json:"seller_name"`
	SellerEmail  string  `gorm:"type:varchar(255);not null" json:"seller_email"`
	SellerPhone  string  `gorm:"type:varchar(32)" json:"seller_phone"`
	Title        string  `gorm:"type:varchar(255)" json:"title"`
	PropertyType string  `gorm:"type:varchar(64)" json:"property_type"`
	ListingType  string  `gorm:"type:varchar(32)" json:"listing_type"`
	Address      string  `gorm:"type:text" json:"address"`
	City         string  `gorm:"type:varchar(128)" json:"city"`
	State        string  `gorm:"type:varchar(128)" json:"state"`
	Pincode      string  `gorm:"type:varchar(16)" json:"pincode"`
	Price        float64 `json:"price"`

	Status          workflows.Status `gorm:"type:varchar(32);not null;index" json:"status"`
	RejectedFrom    workflows.Status `gorm:"type:varchar(32)" json:"rejected_from,omitempty"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	AdminNotes      string           `gorm:"type:text" json:"admin_notes,omitempty"`

	Claimed   ClaimedMetrics                    `gorm:"embedded;embeddedPrefix:claimed_" json:"claimed_metrics"`
	AIMetrics *AIMetrics                        `gorm:"serializer:json" json:"ai_metrics,omitempty"`
	Consents  map[Consent]time.Time             `gorm:"serializer:json" json:"consents"`
	Photos    []Photo                           `gorm:"serializer:json" json:"photos"`
	Documents map[DocumentType][]DocumentUpload `gorm:"serializer:json" json:"documents"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null;default:'unpaid'" json:"payment_status"`
	PaymentID     string        `gorm:"type:varchar(64)" json:"payment_id,omitempty"`
	PaymentMethod string        `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	FeeAmount     float64       `json:"fee_amount"`

	AnalysisAttempts  int        `json:"analysis_attempts"`
	AnalysisStartedAt *time.Time `gorm:"index" json:"analysis_started_at,omitempty"`
	AnalysisFailedAt  *time.Time `json:"analysis_failed_at,omitempty"`
	AnalysisError     string     `gorm:"type:text" json:"analysis_error,omitempty"`

	Inspection *Inspection `gorm:"serializer:json" json:"inspection,omitempty"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ActivityLog []ActivityEntry `gorm:"foreignKey:PropertyID;references:PropertyID" json:"-"`
}

func (Record) TableName() string { return "verification_records" }

// ActivityEntry is one append-only history item
type ActivityEntry struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID  uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_activity_sequence" json:"property_id"`
	Sequence    int              `gorm:"not null;uniqueIndex:idx_activity_sequence" json:"sequence"`
	Timestamp   time.Time        `gorm:"not null" json:"timestamp"`
	Action      string           `gorm:"type:varchar(64);not null" json:"action"`
	PerformedBy string           `gorm:"type:varchar(160)" json:"performed_by"`
	Description string           `gorm:"type:text" json:"description"`
	FromStatus  workflows.Status `gorm:"type:varchar(32)" json:"from_status,omitempty"`
	ToStatus    workflows.Status `gorm:"type:varchar(32)" json:"to_status,omitempty"`
	Metadata    datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (ActivityEntry) TableName() string { return "verification_activity" }

// HasConsent reports whether c was granted
func (r *Record) HasConsent(c Consent) bool {
	_, ok := r.Consents[c]
	return ok
}

// grantConsent records c once; later grants keep the original timestamp
func (r *Record) grantConsent(c Consent, at time.Time) {
	if r.Consents == nil {
		r.Consents = map[Consent]time.Time{}
	}
	if _, ok := r.Consents[c]; !ok {
		r.Consents[c] = at
	}
}

// MissingDocuments lists required document types not yet uploaded
func (r *Record) MissingDocuments() []DocumentType {
	var missing []DocumentType
	for _, dt := range RequiredDocumentTypes {
		if len(r.Documents[dt]) == 0 {
			missing = append(missing, dt)
		}
	}
	return missing
}

// DocumentsSatisfied reports whether every required type has an upload
func (r *Record) DocumentsSatisfied() bool {
	return len(r.MissingDocuments()) == 0
}

// Clone returns a deep copy so a transition can be prepared without touching r
func (r *Record) Clone() *Record {
	c := *r
	c.Claimed = cloneClaimed(r.Claimed)
	if r.AIMetrics != nil {
		m := *r.AIMetrics
		m.Detections = append([]Detection(nil), r.AIMetrics.Detections...)
		c.AIMetrics = &m
	}
	if r.Consents != nil {
		c.Consents = make(map[Consent]time.Time, len(r.Consents))
		for k, v := range r.Consents {
			c.Consents[k] = v
		}
	}
	c.Photos = append([]Photo(nil), r.Photos...)
	if r.Documents != nil {
		c.Documents = make(map[DocumentType][]DocumentUpload, len(r.Documents))
		for k, v := range r.Documents {
			c.Documents[k] = append([]DocumentUpload(nil), v...)
		}
	}
	c.AnalysisStartedAt = cloneTime(r.AnalysisStartedAt)
	c.AnalysisFailedAt = cloneTime(r.AnalysisFailedAt)
	if r.Inspection != nil {
		in := *r.Inspection
		in.ScheduledFor = cloneTime(r.Inspection.ScheduledFor)
		in.CompletedAt = cloneTime(r.Inspection.CompletedAt)
		if r.Inspection.Passed != nil {
			p := *r.Inspection.Passed
			in.Passed = &p
		}
		c.Inspection = &in
	}
	c.ActivityLog = make([]ActivityEntry, len(r.ActivityLog))
	for i, e := range r.ActivityLog {
		e.Metadata = append(datatypes.JSON(nil), e.Metadata...)
		c.ActivityLog[i] = e
	}
	return &c
}

func cloneClaimed(m ClaimedMetrics) ClaimedMetrics {
	out := ClaimedMetrics{}
	if m.Area != nil {
		v := *m.Area
		out.Area = &v
	}
	if m.Width != nil {
		v := *m.Width
		out.Width = &v
	}
	if m.Length != nil {
		v := *m.Length
		out.Length = &v
	}
	if m.Bedrooms != nil {
		v := *m.Bedrooms
		out.Bedrooms = &v
	}
	if m.Bathrooms != nil {
		v := *m.Bathrooms
		out.Bathrooms = &v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SubmitRequest is the seller submission form
type SubmitRequest struct {
	SellerName   string         `json:"seller_name" binding:"required"`
	SellerEmail  string         `json:"seller_email" binding:"required,email"`
	SellerPhone  string         `json:"seller_phone"`
	Title        string         `json:"title" binding:"required"`
	PropertyType string         `json:"property_type"`
	ListingType  string         `json:"listing_type"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	State        string         `json:"state"`
	Pincode      string         `json:"pincode"`
	Price        float64        `json:"price"`
	Claimed      ClaimedMetrics `json:"claimed_metrics"`
	AcceptTerms  bool           `json:"accept_terms"`
}

// Validate checks the submission before a record is created
func (r SubmitRequest) Validate() error {
	switch {
	case r.SellerName == "":
		return fmt.Errorf("%w: seller name is required", ErrInvalidInput)
	case r.SellerEmail == "":
		return fmt.Errorf("%w: seller email is required", ErrInvalidInput)
	case r.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case r.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case r.Claimed.Area != nil && *r.Claimed.Area <= 0:
		return fmt.Errorf("%w: claimed area must be positive", ErrInvalidInput)
	case !r.AcceptTerms:
		return fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}
	return nil
}
