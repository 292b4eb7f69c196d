package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderWorkItem is the payload published to orderQueue. OrderID is only
// set for UPDATE/DELETE; Revenue/Cost/OrderDate only for INSERT/UPDATE.
type OrderWorkItem struct {
	OrderID     int64           `json:"order_id,omitempty"`
	CustomerID  int64           `json:"customer_id"`
	OperationID string          `json:"operation_id"`
	Operation   OperationKind   `json:"operation"`
	OrderDate   time.Time       `json:"order_date,omitempty"`
	Revenue     decimal.Decimal `json:"revenue,omitempty"`
	Cost        decimal.Decimal `json:"cost,omitempty"`
}

// DeliveryWorkItem is the payload published to deliveryQueue, one per
// customer in the segment snapshot, message already personalized.
type DeliveryWorkItem struct {
	CustomerID int64  `json:"customer_id"`
	CampaignID int64  `json:"campaign_id"`
	Message    string `json:"message"`
}

// CampaignEvent is the summary published to campaignQueue once a fan-out
// has been fully acknowledged by the broker.
type CampaignEvent struct {
	CampaignID    int64 `json:"campaign_id"`
	SegmentID     int64 `json:"segment_id"`
	CustomerCount int   `json:"customer_count"`
}
