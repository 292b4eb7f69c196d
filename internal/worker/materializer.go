package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"go.uber.org/zap"
)

// Consumer is the receive side the workers run on.
type Consumer interface {
	Consume(ctx context.Context, queue string, h rabbit.Handler) error
}

// Materializer drains orderQueue and applies each staged mutation to the
// primary store, then settles the ledger entry. Processing is
// at-most-once effective: a failed apply is recorded FAILED and the
// message is still acked, never redelivered for another attempt.
type Materializer struct {
	Store repository.OrdersStore
	Ops   repository.OperationsRepository
	Queue string
}

func NewMaterializer(store repository.OrdersStore, ops repository.OperationsRepository, queue string) *Materializer {
	return &Materializer{Store: store, Ops: ops, Queue: queue}
}

func (m *Materializer) Run(ctx context.Context, c Consumer) error {
	return c.Consume(ctx, m.Queue, m.Handle)
}

// Handle processes one work item. A body that does not decode is a
// poison message: logged and dropped, the queue keeps moving. Apply
// failures settle the ledger FAILED and return nil so the loop acks.
func (m *Materializer) Handle(ctx context.Context, body []byte) error {
	var item model.OrderWorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		logger.Log.Error("undecodable order work item",
			zap.ByteString("body", body), zap.Error(err))
		return nil
	}

	if err := m.apply(ctx, item); err != nil {
		metrics.OperationsTotal.WithLabelValues(item.Operation.String(), "failed").Inc()
		logger.Log.Warn("order operation failed",
			zap.String("operation_id", item.OperationID),
			zap.String("operation", item.Operation.String()),
			zap.Int64("customer_id", item.CustomerID),
			zap.Error(err))
		if ferr := m.Ops.Fail(ctx, item.OperationID, err.Error()); ferr != nil {
			return fmt.Errorf("record failure for %s: %w", item.OperationID, ferr)
		}
		return nil
	}

	if err := m.Ops.Complete(ctx, item.OperationID); err != nil {
		return fmt.Errorf("record completion for %s: %w", item.OperationID, err)
	}
	metrics.OperationsTotal.WithLabelValues(item.Operation.String(), "completed").Inc()
	logger.Log.Info("order operation completed",
		zap.String("operation_id", item.OperationID),
		zap.String("operation", item.Operation.String()),
		zap.Int64("customer_id", item.CustomerID))
	return nil
}

func (m *Materializer) apply(ctx context.Context, item model.OrderWorkItem) error {
	switch item.Operation {
	case model.OpInsert:
		_, err := m.Store.ApplyInsert(ctx, item)
		return err
	case model.OpUpdate:
		return m.Store.ApplyUpdate(ctx, item)
	case model.OpDelete:
		return m.Store.ApplyDelete(ctx, item.OrderID)
	default:
		return fmt.Errorf("unknown operation %q", item.Operation)
	}
}
