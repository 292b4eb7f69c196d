package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order rows are owned by the materializer: the HTTP API never writes
// them directly, it only requests mutations through the order queue.
type Order struct {
	ID         int64           `db:"id" json:"id"`
	CustomerID int64           `db:"customer_id" json:"customer_id"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
	Cost       decimal.Decimal `db:"cost" json:"cost"`
	OrderDate  time.Time       `db:"order_date" json:"order_date"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
