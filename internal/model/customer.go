package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the DB entity persisted in the customers table.
// TotalSpending is an aggregate maintained by the order materializer:
// it equals the sum of cost over the customer's existing orders once
// every queued mutation has been applied.
type Customer struct {
	ID            int64           `db:"id" json:"id"`
	Email         string          `db:"email" json:"email"`
	Name          string          `db:"name" json:"name"`
	TotalSpending decimal.Decimal `db:"total_spending" json:"total_spending"`
	Visits        int             `db:"visits" json:"visits"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
