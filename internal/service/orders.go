package service

import (
	"context"
	"fmt"
	"time"

	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/util"
	"github.com/shopspring/decimal"
)

const orderDataType = "order"

// OrderProducer stages a ledger entry and publishes the order work item.
// It returns as soon as the broker confirms the publish; materialization
// happens asynchronously and the caller polls the ledger for the outcome.
type OrderProducer struct {
	ops    repository.OperationsRepository
	orders repository.OrdersRepository
	pub    rabbit.Publisher
	queue  string
}

func NewOrderProducer(
	ops repository.OperationsRepository,
	orders repository.OrdersRepository,
	pub rabbit.Publisher,
	queue string,
) *OrderProducer {
	return &OrderProducer{ops: ops, orders: orders, pub: pub, queue: queue}
}

// CreateOrder queues an INSERT. The customer reference is not verified
// here; a missing customer is a referential failure the materializer
// records on the ledger.
func (p *OrderProducer) CreateOrder(ctx context.Context, customerID int64, revenue, cost decimal.Decimal, orderDate time.Time) (string, error) {
	if customerID <= 0 {
		return "", validationf("customer_id is required")
	}
	if revenue.IsNegative() || cost.IsNegative() {
		return "", validationf("revenue and cost must not be negative")
	}
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	return p.stageAndPublish(ctx, model.OrderWorkItem{
		CustomerID: customerID,
		Operation:  model.OpInsert,
		OrderDate:  orderDate,
		Revenue:    revenue,
		Cost:       cost,
	})
}

// UpdateOrder queues an UPDATE. The order is resolved synchronously to
// obtain the owning customer for the ledger entry; a missing order is a
// 404 to the caller, nothing is enqueued.
func (p *OrderProducer) UpdateOrder(ctx context.Context, orderID int64, revenue, cost decimal.Decimal, orderDate time.Time) (string, error) {
	if revenue.IsNegative() || cost.IsNegative() {
		return "", validationf("revenue and cost must not be negative")
	}

	existing, err := p.orders.ByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("resolve order: %w", err)
	}
	if existing == nil {
		return "", repository.ErrOrderNotFound
	}
	if orderDate.IsZero() {
		orderDate = existing.OrderDate
	}

	return p.stageAndPublish(ctx, model.OrderWorkItem{
		OrderID:    orderID,
		CustomerID: existing.CustomerID,
		Operation:  model.OpUpdate,
		OrderDate:  orderDate,
		Revenue:    revenue,
		Cost:       cost,
	})
}

// DeleteOrder queues a DELETE.
func (p *OrderProducer) DeleteOrder(ctx context.Context, orderID int64) (string, error) {
	existing, err := p.orders.ByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("resolve order: %w", err)
	}
	if existing == nil {
		return "", repository.ErrOrderNotFound
	}

	return p.stageAndPublish(ctx, model.OrderWorkItem{
		OrderID:    orderID,
		CustomerID: existing.CustomerID,
		Operation:  model.OpDelete,
	})
}

// stageAndPublish opens the PENDING ledger entry, then publishes. The
// ledger write is durable before the publish so an operation can never
// be in flight without a discoverable entry. A failed publish surfaces
// synchronously and leaves the entry PENDING for the reconciler.
func (p *OrderProducer) stageAndPublish(ctx context.Context, item model.OrderWorkItem) (string, error) {
	item.OperationID = util.NewULID()

	err := p.ops.Open(ctx, model.OperationStatus{
		ID:         item.OperationID,
		Operation:  item.Operation,
		DataType:   orderDataType,
		Status:     model.StatePending,
		CustomerID: item.CustomerID,
	})
	if err != nil {
		return "", fmt.Errorf("open ledger entry: %w", err)
	}
	metrics.OperationsTotal.WithLabelValues(item.Operation.String(), "opened").Inc()

	if err := p.pub.PublishJSON(ctx, p.queue, item); err != nil {
		return "", fmt.Errorf("publish order work item: %w", err)
	}
	metrics.PublishedTotal.WithLabelValues(p.queue).Inc()

	return item.OperationID, nil
}
