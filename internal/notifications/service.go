package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// Service fans transition events out to the configured channels. Delivery
// runs in the background so request handlers are not held up by email or
// topic latency.
type Service struct {
	channels []channel
	repo     DeliveryRepository
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

type channel struct {
	name      string
	publisher verification.Publisher
	// recorded channels are written to the delivery log
	recorded bool
}

// NewService creates a new notification service. repo may be nil.
func NewService(repo DeliveryRepository, logger *zap.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{repo: repo, logger: logger, timeout: timeout}
}

// AddChannel registers a channel. Call before the first Publish.
func (s *Service) AddChannel(name string, p verification.Publisher, recorded bool) *Service {
	s.channels = append(s.channels, channel{name: name, publisher: p, recorded: recorded})
	return s
}

// Publish implements verification.Publisher
func (s *Service) Publish(ctx context.Context, evt verification.Event) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		for _, ch := range s.channels {
			s.deliver(deliverCtx, ch, evt)
		}
	}()
	return nil
}

func (s *Service) deliver(ctx context.Context, ch channel, evt verification.Event) {
	err := ch.publisher.Publish(ctx, evt)
	status := DeliverySent
	switch {
	case errors.Is(err, ErrNothingToSend):
		status = DeliverySkipped
	case err != nil:
		status = DeliveryFailed
		s.logger.Warn("notification delivery failed",
			zap.String("channel", ch.name),
			zap.String("property_id", evt.PropertyID.String()),
			zap.String("status", string(evt.To)),
			zap.Error(err))
	}
	if !ch.recorded || s.repo == nil || status == DeliverySkipped {
		return
	}

	entry := &DeliveryLog{
		PropertyID: evt.PropertyID,
		Channel:    ch.name,
		Event:      string(evt.From) + "->" + string(evt.To),
		Status:     status,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if detail, mErr := json.Marshal(map[string]string{"action": string(evt.Action), "performed_by": evt.PerformedBy}); mErr == nil {
		entry.Detail = datatypes.JSON(detail)
	}
	if rErr := s.repo.Record(ctx, entry); rErr != nil {
		s.logger.Error("failed to record delivery", zap.Error(rErr))
	}
}

// Close waits for in-flight deliveries
func (s *Service) Close() error {
	s.wg.Wait()
	return nil
}
