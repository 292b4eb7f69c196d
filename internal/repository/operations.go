package repository

import (
	"context"
	"time"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// OperationsRepository is the status ledger. Open must be durable before
// the corresponding work item is published; Complete/Fail are idempotent
// terminal transitions (a second call on a terminal entry is a no-op).
type OperationsRepository interface {
	Open(ctx context.Context, entry model.OperationStatus) error
	Complete(ctx context.Context, operationID string) error
	Fail(ctx context.Context, operationID string, errorMessage string) error
	ByCustomer(ctx context.Context, customerID int64) ([]model.OperationStatus, error)
	MarkStalled(ctx context.Context, pendingBefore time.Time, errorMessage string) (int64, error)
}

type OperationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewOperationsRepository(db *sqlx.DB) *OperationsRepositoryImpl {
	return &OperationsRepositoryImpl{db: db}
}

var _ OperationsRepository = (*OperationsRepositoryImpl)(nil)

func (r *OperationsRepositoryImpl) Open(ctx context.Context, entry model.OperationStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operation_status
		    (id, operation, data_type, status, customer_id, created_at, updated_at)
		VALUES
		    (?,  ?,         ?,         'PENDING', ?,         NOW(),      NOW())
	`, entry.ID, entry.Operation.String(), entry.DataType, entry.CustomerID)
	return err
}

// Complete is idempotent: the guard on status makes a repeat transition a
// zero-row update, and never overwrites a FAILED entry.
func (r *OperationsRepositoryImpl) Complete(ctx context.Context, operationID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE operation_status
		   SET status = 'COMPLETED', error_message = NULL, updated_at = NOW()
		 WHERE id = ? AND status = 'PENDING'
	`, operationID)
	return err
}

func (r *OperationsRepositoryImpl) Fail(ctx context.Context, operationID string, errorMessage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE operation_status
		   SET status = 'FAILED', error_message = ?, updated_at = NOW()
		 WHERE id = ? AND status = 'PENDING'
	`, errorMessage, operationID)
	return err
}

func (r *OperationsRepositoryImpl) ByCustomer(ctx context.Context, customerID int64) ([]model.OperationStatus, error) {
	var out []model.OperationStatus
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, operation, data_type, status, customer_id, error_message, created_at, updated_at
		  FROM operation_status
		 WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC
	`, customerID)
	return out, err
}

// MarkStalled fails every entry stuck PENDING since before the cutoff and
// returns how many it moved.
func (r *OperationsRepositoryImpl) MarkStalled(ctx context.Context, pendingBefore time.Time, errorMessage string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE operation_status
		   SET status = 'FAILED', error_message = ?, updated_at = NOW()
		 WHERE status = 'PENDING' AND created_at < ?
	`, errorMessage, pendingBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
