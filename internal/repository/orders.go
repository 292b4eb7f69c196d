package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// OrdersRepository is the read side of the orders table.
type OrdersRepository interface {
	ByID(ctx context.Context, id int64) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
}

// OrdersStore is the materializer's write side. Every Apply* runs one
// all-or-nothing transaction covering the order row and the owning
// customer's total_spending adjustment; the aggregate is moved with an
// atomic column update, never read-modify-write of a cached value.
type OrdersStore interface {
	ApplyInsert(ctx context.Context, item model.OrderWorkItem) (int64, error)
	ApplyUpdate(ctx context.Context, item model.OrderWorkItem) error
	ApplyDelete(ctx context.Context, orderID int64) error
}

type OrdersRepositoryImpl struct {
	db *sqlx.DB
}

func NewOrdersRepository(db *sqlx.DB) *OrdersRepositoryImpl {
	return &OrdersRepositoryImpl{db: db}
}

var (
	_ OrdersRepository = (*OrdersRepositoryImpl)(nil)
	_ OrdersStore      = (*OrdersRepositoryImpl)(nil)
)

func (r *OrdersRepositoryImpl) ByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := r.db.GetContext(ctx, &o, `
		SELECT id, customer_id, revenue, cost, order_date, created_at, updated_at
		  FROM orders
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrdersRepositoryImpl) ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	var out []model.Order
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, customer_id, revenue, cost, order_date, created_at, updated_at
		  FROM orders
		 WHERE customer_id = ?
		 ORDER BY order_date DESC, id DESC
	`, customerID)
	return out, err
}

func (r *OrdersRepositoryImpl) ApplyInsert(ctx context.Context, item model.OrderWorkItem) (int64, error) {
	var orderID int64
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (customer_id, revenue, cost, order_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, NOW(), NOW())
		`, item.CustomerID, item.Revenue, item.Cost, item.OrderDate)
		if err != nil {
			if isFKViolation(err) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("insert order: %w", err)
		}
		orderID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			   SET total_spending = total_spending + ?, updated_at = NOW()
			 WHERE id = ?
		`, item.Cost, item.CustomerID)
		return err
	})
	return orderID, err
}

func (r *OrdersRepositoryImpl) ApplyUpdate(ctx context.Context, item model.OrderWorkItem) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		// Read the prior row under lock so the spending delta is
		// computed against what this transaction will replace.
		var prior model.Order
		err := tx.GetContext(ctx, &prior, `
			SELECT id, customer_id, revenue, cost, order_date, created_at, updated_at
			  FROM orders
			 WHERE id = ?
			 FOR UPDATE
		`, item.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			   SET revenue = ?, cost = ?, order_date = ?, updated_at = NOW()
			 WHERE id = ?
		`, item.Revenue, item.Cost, item.OrderDate, item.OrderID)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		delta := item.Cost.Sub(prior.Cost)
		if delta.IsZero() {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			   SET total_spending = total_spending + ?, updated_at = NOW()
			 WHERE id = ?
		`, delta, prior.CustomerID)
		return err
	})
}

func (r *OrdersRepositoryImpl) ApplyDelete(ctx context.Context, orderID int64) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		var prior model.Order
		err := tx.GetContext(ctx, &prior, `
			SELECT id, customer_id, revenue, cost, order_date, created_at, updated_at
			  FROM orders
			 WHERE id = ?
			 FOR UPDATE
		`, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			   SET total_spending = total_spending - ?, updated_at = NOW()
			 WHERE id = ?
		`, prior.Cost, prior.CustomerID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
		return err
	})
}
