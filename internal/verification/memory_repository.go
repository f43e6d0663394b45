package verification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// MemoryRepository keeps records in process. Values are copied on the way
// in and out so callers never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]*Record)}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.PropertyID] = rec.Clone()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Save(ctx context.Context, rec *Record, expectedVersion int, entry *ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[rec.PropertyID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrStaleRecord
	}
	stored := rec.Clone()
	stored.ActivityLog = current.Clone().ActivityLog
	if entry != nil {
		stored.ActivityLog = append(stored.ActivityLog, *entry)
	}
	r.records[rec.PropertyID] = stored
	return nil
}

func (r *MemoryRepository) list(keep func(*Record) bool, less func(a, b *Record) bool, limit int) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Record
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MemoryRepository) ListByStatus(ctx context.Context, statuses []workflows.Status, limit int) ([]*Record, error) {
	want := make(map[workflows.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return r.list(
		func(rec *Record) bool { return want[rec.Status] },
		func(a, b *Record) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
		limit,
	), nil
}

func (r *MemoryRepository) ListBySeller(ctx context.Context, sellerID string) ([]*Record, error) {
	return r.list(
		func(rec *Record) bool { return rec.SellerID == sellerID },
		func(a, b *Record) bool { return a.CreatedAt.After(b.CreatedAt) },
		0,
	), nil
}

func (r *MemoryRepository) ListStalledAnalyses(ctx context.Context, startedBefore time.Time, limit int) ([]*Record, error) {
	return r.list(
		func(rec *Record) bool {
			return rec.Status == workflows.StatusAIAnalyzing &&
				rec.AnalysisFailedAt == nil &&
				rec.AnalysisStartedAt != nil &&
				rec.AnalysisStartedAt.Before(startedBefore)
		},
		func(a, b *Record) bool { return a.AnalysisStartedAt.Before(*b.AnalysisStartedAt) },
		limit,
	), nil
}
