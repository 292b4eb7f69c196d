package model

import (
	"strings"
	"time"
)

type OperationKind string

const (
	OpInsert OperationKind = "INSERT"
	OpUpdate OperationKind = "UPDATE"
	OpDelete OperationKind = "DELETE"
)

func (k OperationKind) String() string { return string(k) }

func (k OperationKind) Valid() bool {
	return k == OpInsert || k == OpUpdate || k == OpDelete
}

// ParseOperationKind normalizes input. Returns (value, true) if valid.
func ParseOperationKind(s string) (OperationKind, bool) {
	k := OperationKind(strings.ToUpper(strings.TrimSpace(s)))
	return k, k.Valid()
}

type OperationState string

const (
	StatePending   OperationState = "PENDING"
	StateCompleted OperationState = "COMPLETED"
	StateFailed    OperationState = "FAILED"
)

func (s OperationState) String() string { return string(s) }

// Terminal reports whether no further transition is allowed.
func (s OperationState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// OperationStatus is the durable ledger entry for one queued mutation.
// Opened PENDING before the work item is published, transitioned exactly
// once to COMPLETED or FAILED by the consumer. Entries are never deleted.
type OperationStatus struct {
	ID           string         `db:"id" json:"id"`
	Operation    OperationKind  `db:"operation" json:"operation"`
	DataType     string         `db:"data_type" json:"data_type"`
	Status       OperationState `db:"status" json:"status"`
	CustomerID   int64          `db:"customer_id" json:"customer_id"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
