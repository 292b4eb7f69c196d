package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// CustomersRepository owns the customers table. TotalSpending is never
// written here except through the materializer's order transactions.
type CustomersRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	ByID(ctx context.Context, id int64) (*model.Customer, error)
	List(ctx context.Context) ([]model.Customer, error)
	ByIDs(ctx context.Context, ids []int64) ([]model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id int64) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

func (r *CustomersRepositoryImpl) Create(ctx context.Context, c *model.Customer) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (email, name, total_spending, visits, created_at, updated_at)
		VALUES (?, ?, 0, ?, NOW(), NOW())
	`, c.Email, c.Name, c.Visits)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *CustomersRepositoryImpl) ByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, email, name, total_spending, visits, created_at, updated_at
		  FROM customers
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the full population; segmentation evaluates against it.
func (r *CustomersRepositoryImpl) List(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, email, name, total_spending, visits, created_at, updated_at
		  FROM customers
		 ORDER BY id
	`)
	return out, err
}

func (r *CustomersRepositoryImpl) ByIDs(ctx context.Context, ids []int64) ([]model.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, email, name, total_spending, visits, created_at, updated_at
		  FROM customers
		 WHERE id IN (?)
		 ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}

	var out []model.Customer
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

func (r *CustomersRepositoryImpl) Update(ctx context.Context, c *model.Customer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		   SET email = ?, name = ?, visits = ?, updated_at = NOW()
		 WHERE id = ?
	`, c.Email, c.Name, c.Visits, c.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		// RowsAffected is 0 both for a missing row and a no-op update;
		// distinguish with a lookup.
		existing, lerr := r.ByID(ctx, c.ID)
		if lerr == nil && existing == nil {
			return ErrCustomerNotFound
		}
	}
	return err
}

func (r *CustomersRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
