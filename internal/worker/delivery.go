package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"go.uber.org/zap"
)

// DeliverFunc hands one personalized message to the vendor side.
type DeliverFunc func(ctx context.Context, item model.DeliveryWorkItem) error

// DeliveryWorker drains deliveryQueue: each work item goes through the
// gateway and the outcome is appended to the communication log. Rows are
// buffered and flushed in batches; ClickHouse wants few large inserts,
// not one per message.
type DeliveryWorker struct {
	Deliver DeliverFunc
	Log     repository.CommLogRepository
	Queue   string

	Workers   int
	BatchSize int
	BatchWait time.Duration

	rows chan model.CommunicationLog
}

func NewDeliveryWorker(deliver DeliverFunc, log repository.CommLogRepository, queue string, workers, batchSize int, batchWait time.Duration) *DeliveryWorker {
	if workers <= 0 {
		workers = 16
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if batchWait <= 0 {
		batchWait = 300 * time.Millisecond
	}
	return &DeliveryWorker{
		Deliver:   deliver,
		Log:       log,
		Queue:     queue,
		Workers:   workers,
		BatchSize: batchSize,
		BatchWait: batchWait,
		rows:      make(chan model.CommunicationLog, batchSize*2),
	}
}

// Run starts the consumer goroutines and the batch writer and blocks
// until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context, c Consumer) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runBatchWriter(ctx)
	}()

	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Consume(ctx, w.Queue, w.Handle); err != nil && ctx.Err() == nil {
				logger.Log.Error("delivery consumer stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Handle processes one delivery work item. The outcome row is enqueued
// for the batch writer either way; a gateway error is terminal for this
// message, there is no redelivery.
func (w *DeliveryWorker) Handle(ctx context.Context, body []byte) error {
	var item model.DeliveryWorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		logger.Log.Error("undecodable delivery work item",
			zap.ByteString("body", body), zap.Error(err))
		return nil
	}

	row := model.CommunicationLog{
		CustomerID: item.CustomerID,
		CampaignID: item.CampaignID,
		Message:    item.Message,
		Status:     model.DeliveryCompleted,
		SentAt:     time.Now(),
	}

	if err := w.Deliver(ctx, item); err != nil {
		row.Status = model.DeliveryFailed
		row.ErrorMessage = err.Error()
		logger.Log.Warn("delivery failed",
			zap.Int64("customer_id", item.CustomerID),
			zap.Int64("campaign_id", item.CampaignID),
			zap.Error(err))
	}
	metrics.DeliveriesTotal.WithLabelValues(row.Status.String()).Inc()

	select {
	case w.rows <- row:
	case <-ctx.Done():
	}
	return nil
}

// runBatchWriter flushes buffered rows when the batch fills or the wait
// timer fires, and drains whatever is left on shutdown.
func (w *DeliveryWorker) runBatchWriter(ctx context.Context) {
	buf := make([]model.CommunicationLog, 0, w.BatchSize)
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	flush := func() {
		if len(buf) == 0 {
			return
		}
		// detached context so a shutdown flush still lands
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.Log.InsertBatch(fctx, buf); err != nil {
			logger.Log.Error("communication log batch insert failed",
				zap.Int("rows", len(buf)), zap.Error(err))
		}
		cancel()
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case row := <-w.rows:
					buf = append(buf, row)
				default:
					flush()
					return
				}
			}
		case row := <-w.rows:
			buf = append(buf, row)
			if len(buf) >= w.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}
