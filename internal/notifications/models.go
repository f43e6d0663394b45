package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChannelWebSocket   = "websocket"
	ChannelEmail       = "email"
	ChannelSNS         = "sns"
	ChannelCertificate = "certificate"
)

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// DeliveryLog records one attempt to deliver a transition event on a channel
type DeliveryLog struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	PropertyID uuid.UUID      `json:"property_id" gorm:"type:uuid;not null;index"`
	Channel    string         `json:"channel" gorm:"not null"`
	Event      string         `json:"event" gorm:"not null"`
	Status     string         `json:"status" gorm:"not null"`
	Error      string         `json:"error,omitempty"`
	Detail     datatypes.JSON `json:"detail,omitempty" gorm:"type:jsonb"`
	Timestamp  time.Time      `json:"timestamp" gorm:"autoCreateTime"`
}

func (DeliveryLog) TableName() string { return "notification_deliveries" }

// WebSocketMessage represents WebSocket message format
type WebSocketMessage struct {
	Type       string         `json:"type"`
	PropertyID string         `json:"property_id,omitempty"`
	Data       datatypes.JSON `json:"data"`
	Timestamp  time.Time      `json:"timestamp"`
}

// WebSocket message types
const (
	WSMessageTypeTimeline = "timeline"
	WSMessageTypeStatus   = "status"
	WSMessageTypePing     = "ping"
)
