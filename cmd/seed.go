package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/engagekit/crm/internal/config"
	"github.com/engagekit/crm/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo customers and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQL(cfg.MySQL.DSN, db.SQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo customers...")
		if err := seedCustomers(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

type seedCustomer struct {
	Email  string
	Name   string
	Visits int
	Orders []decimal.Decimal // cost per order; total_spending follows
}

// seedCustomers inserts deterministic demo customers keyed by email
// (idempotent) plus a few orders so segmentation has data to chew on.
func seedCustomers(dbx *sqlx.DB) error {
	customers := []seedCustomer{
		{
			Email:  "ana@example.com",
			Name:   "Ana",
			Visits: 12,
			Orders: []decimal.Decimal{decimal.NewFromInt(400), decimal.NewFromInt(350)},
		},
		{
			Email:  "bruno@example.com",
			Name:   "Bruno",
			Visits: 2,
			Orders: []decimal.Decimal{decimal.NewFromInt(90)},
		},
		{
			Email:  "carla@example.com",
			Name:   "Carla",
			Visits: 7,
			Orders: []decimal.Decimal{decimal.NewFromInt(1200)},
		},
		{
			Email:  "diego@example.com",
			Name:   "Diego",
			Visits: 0,
			Orders: nil,
		},
		{
			Email:  "eva@example.com",
			Name:   "Eva",
			Visits: 25,
			Orders: []decimal.Decimal{decimal.NewFromInt(60), decimal.NewFromInt(45), decimal.NewFromInt(30)},
		},
	}

	const insCustomer = `
INSERT INTO customers
    (email, name, total_spending, visits, created_at, updated_at)
VALUES
    (?, ?, 0, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    visits     = VALUES(visits),
    updated_at = VALUES(updated_at)
`

	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, c := range customers {
		res, err := tx.Exec(insCustomer, c.Email, c.Name, c.Visits, now, now)
		if err != nil {
			return fmt.Errorf("insert customer %q: %w", c.Email, err)
		}

		customerID, err := res.LastInsertId()
		if err != nil || customerID == 0 {
			// upsert of an existing row; resolve the id
			if err := tx.Get(&customerID, `SELECT id FROM customers WHERE email = ?`, c.Email); err != nil {
				return fmt.Errorf("resolve customer %q: %w", c.Email, err)
			}
		}

		// skip orders if the customer already has any (idempotent-ish)
		var n int
		if err := tx.Get(&n, `SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID); err != nil {
			return fmt.Errorf("count orders for %q: %w", c.Email, err)
		}
		if n > 0 {
			continue
		}

		total := decimal.Zero
		for i, cost := range c.Orders {
			revenue := cost.Mul(decimal.NewFromFloat(1.4)).Round(2)
			orderDate := now.AddDate(0, 0, -(i + 1))
			if _, err := tx.Exec(`
				INSERT INTO orders (customer_id, revenue, cost, order_date, created_at, updated_at)
				VALUES (?, ?, ?, ?, NOW(), NOW())
			`, customerID, revenue, cost, orderDate); err != nil {
				return fmt.Errorf("insert order for %q: %w", c.Email, err)
			}
			total = total.Add(cost)
		}

		if !total.IsZero() {
			if _, err := tx.Exec(`
				UPDATE customers SET total_spending = ?, updated_at = NOW() WHERE id = ?
			`, total, customerID); err != nil {
				return fmt.Errorf("set spending for %q: %w", c.Email, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
