package model

import "time"

type DeliveryStatus string

const (
	DeliveryCompleted DeliveryStatus = "COMPLETED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

func (s DeliveryStatus) String() string { return string(s) }

// CommunicationLog is one delivered (or failed) campaign message for one
// customer. Append-only; stored in ClickHouse.
type CommunicationLog struct {
	CustomerID   int64          `db:"customer_id" json:"customer_id"`
	CampaignID   int64          `db:"campaign_id" json:"campaign_id"`
	Message      string         `db:"message" json:"message"`
	Status       DeliveryStatus `db:"status" json:"status"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty"`
	SentAt       time.Time      `db:"sent_at" json:"sent_at"`
}
