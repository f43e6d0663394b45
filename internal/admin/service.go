package admin

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Service builds the admin desk views
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Queue returns a page of records awaiting an admin, oldest update first
func (s *Service) Queue(ctx context.Context, filter QueueFilter) ([]QueueItem, int, error) {
	return s.store.PendingQueue(ctx, filter)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return statsFromCounts(counts), nil
}

// maxExportRows bounds the queue sheet
const maxExportRows = 10000

// ExportFormat selects the export encoding
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

// pending loads the whole pending queue, up to maxExportRows
func (s *Service) pending(ctx context.Context) ([]QueueItem, error) {
	items, total, err := s.store.PendingQueue(ctx, QueueFilter{Page: 1, PageSize: 200})
	if err != nil {
		return nil, err
	}
	for page := 2; len(items) < total && len(items) < maxExportRows; page++ {
		more, _, err := s.store.PendingQueue(ctx, QueueFilter{Page: page, PageSize: 200})
		if err != nil {
			return nil, err
		}
		if len(more) == 0 {
			break
		}
		items = append(items, more...)
	}
	if len(items) > maxExportRows {
		items = items[:maxExportRows]
	}
	return items, nil
}

// Export writes the full pending queue. The workbook also carries the
// statistics sheet; CSV holds the queue only.
func (s *Service) Export(ctx context.Context, format ExportFormat, out io.Writer) error {
	items, err := s.pending(ctx)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		s.logger.Info("admin export generated", zap.String("format", string(format)), zap.Int("rows", len(items)))
		return WriteQueueCSV(out, items)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()
	if err := wb.WriteQueue(items); err != nil {
		return err
	}
	if err := wb.WriteSummary(stats, s.now()); err != nil {
		return err
	}
	s.logger.Info("admin export generated", zap.String("format", string(FormatXLSX)), zap.Int("rows", len(items)))
	return wb.Write(out)
}
