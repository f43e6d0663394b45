package verification

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

const (
	activitySubmitted      = "submitted"
	activityPhotosUploaded = "photos_uploaded"
	activityDocumentAdded  = "document_uploaded"
)

// newEntry builds the next log entry for rec
func newEntry(rec *Record, at time.Time, action, performedBy, description string, from, to workflows.Status, metadata map[string]interface{}) ActivityEntry {
	e := ActivityEntry{
		ID:          uuid.New(),
		PropertyID:  rec.PropertyID,
		Sequence:    len(rec.ActivityLog) + 1,
		Timestamp:   at,
		Action:      action,
		PerformedBy: performedBy,
		Description: description,
		FromStatus:  from,
		ToStatus:    to,
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			e.Metadata = datatypes.JSON(raw)
		}
	}
	return e
}

// derivedActivity renders submission and upload facts as log entries.
// They are not stored; the stored log only carries transitions and
// analysis bookkeeping.
func derivedActivity(rec *Record) []ActivityEntry {
	out := []ActivityEntry{{
		PropertyID:  rec.PropertyID,
		Timestamp:   rec.CreatedAt,
		Action:      activitySubmitted,
		PerformedBy: "seller:" + rec.SellerID,
		Description: fmt.Sprintf("Property %q submitted for verification", rec.Title),
	}}

	// photos from one request share a timestamp; render them as one entry
	var batchAt time.Time
	var batch []Photo
	flush := func() {
		if len(batch) == 0 {
			return
		}
		out = append(out, ActivityEntry{
			PropertyID:  rec.PropertyID,
			Timestamp:   batchAt,
			Action:      activityPhotosUploaded,
			PerformedBy: batch[0].UploadedBy,
			Description: fmt.Sprintf("%d photo(s) uploaded", len(batch)),
		})
		batch = nil
	}
	for _, p := range rec.Photos {
		if len(batch) > 0 && !p.UploadedAt.Equal(batchAt) {
			flush()
		}
		batchAt = p.UploadedAt
		batch = append(batch, p)
	}
	flush()

	types := make([]string, 0, len(rec.Documents))
	for dt := range rec.Documents {
		types = append(types, string(dt))
	}
	sort.Strings(types)
	for _, dt := range types {
		for _, d := range rec.Documents[DocumentType(dt)] {
			out = append(out, ActivityEntry{
				PropertyID:  rec.PropertyID,
				Timestamp:   d.UploadedAt,
				Action:      activityDocumentAdded,
				PerformedBy: d.UploadedBy,
				Description: fmt.Sprintf("Uploaded %s document %s", d.Type, d.OriginalFilename),
			})
		}
	}
	return out
}

// MergeActivity combines entry sources into one chronological sequence.
// Entries with equal timestamps keep the order in which they were passed.
func MergeActivity(sources ...[]ActivityEntry) []ActivityEntry {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	merged := make([]ActivityEntry, 0, n)
	for _, s := range sources {
		merged = append(merged, s...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// LatestActivity returns the last n entries, still in ascending order.
// The input is not modified.
func LatestActivity(entries []ActivityEntry, n int) []ActivityEntry {
	if n <= 0 || n >= len(entries) {
		return append([]ActivityEntry(nil), entries...)
	}
	return append([]ActivityEntry(nil), entries[len(entries)-n:]...)
}

// Activity returns the full read-only history of rec
func (r *Record) Activity() []ActivityEntry {
	return MergeActivity(derivedActivity(r), r.ActivityLog)
}
