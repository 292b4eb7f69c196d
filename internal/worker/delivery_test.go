package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCommLog struct {
	batches [][]model.CommunicationLog
}

func (m *memCommLog) InsertBatch(_ context.Context, rows []model.CommunicationLog) error {
	cp := make([]model.CommunicationLog, len(rows))
	copy(cp, rows)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memCommLog) ListByCustomer(_ context.Context, customerID int64, _, _ int) ([]model.CommunicationLog, error) {
	var out []model.CommunicationLog
	for _, b := range m.batches {
		for _, row := range b {
			if row.CustomerID == customerID {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

var _ repository.CommLogRepository = (*memCommLog)(nil)

func deliveryBody(t *testing.T, item model.DeliveryWorkItem) []byte {
	t.Helper()
	b, err := json.Marshal(item)
	require.NoError(t, err)
	return b
}

func TestDeliveryHandleRecordsCompleted(t *testing.T) {
	deliver := func(context.Context, model.DeliveryWorkItem) error { return nil }
	w := NewDeliveryWorker(deliver, &memCommLog{}, "deliveryQueue", 1, 10, time.Second)

	err := w.Handle(context.Background(), deliveryBody(t, model.DeliveryWorkItem{
		CustomerID: 10, CampaignID: 3, Message: "Hi Ana, thanks!",
	}))
	require.NoError(t, err)

	row := <-w.rows
	assert.Equal(t, model.DeliveryCompleted, row.Status)
	assert.Equal(t, int64(10), row.CustomerID)
	assert.Equal(t, int64(3), row.CampaignID)
	assert.Equal(t, "Hi Ana, thanks!", row.Message)
	assert.Empty(t, row.ErrorMessage)
	assert.False(t, row.SentAt.IsZero())
}

func TestDeliveryHandleRecordsFailed(t *testing.T) {
	deliver := func(context.Context, model.DeliveryWorkItem) error {
		return errors.New("vendor unreachable")
	}
	w := NewDeliveryWorker(deliver, &memCommLog{}, "deliveryQueue", 1, 10, time.Second)

	err := w.Handle(context.Background(), deliveryBody(t, model.DeliveryWorkItem{
		CustomerID: 11, CampaignID: 3, Message: "Hi Bruno, thanks!",
	}))
	require.NoError(t, err)

	row := <-w.rows
	assert.Equal(t, model.DeliveryFailed, row.Status)
	assert.Equal(t, "vendor unreachable", row.ErrorMessage)
}

func TestDeliveryHandlePoisonMessage(t *testing.T) {
	deliver := func(context.Context, model.DeliveryWorkItem) error { return nil }
	w := NewDeliveryWorker(deliver, &memCommLog{}, "deliveryQueue", 1, 10, time.Second)

	require.NoError(t, w.Handle(context.Background(), []byte("{broken")))
	select {
	case row := <-w.rows:
		t.Fatalf("unexpected row for poison message: %+v", row)
	default:
	}
}

func TestBatchWriterFlushesOnSizeAndShutdown(t *testing.T) {
	log := &memCommLog{}
	deliver := func(context.Context, model.DeliveryWorkItem) error { return nil }
	w := NewDeliveryWorker(deliver, log, "deliveryQueue", 1, 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.runBatchWriter(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Handle(ctx, deliveryBody(t, model.DeliveryWorkItem{
			CustomerID: int64(i), CampaignID: 1, Message: "m",
		})))
	}

	// batch size 2: the first flush happens without waiting for the timer
	require.Eventually(t, func() bool { return len(log.batches) >= 1 }, time.Second, 10*time.Millisecond)
	assert.Len(t, log.batches[0], 2)

	// shutdown drains the remaining row
	cancel()
	<-done
	total := 0
	for _, b := range log.batches {
		total += len(b)
	}
	assert.Equal(t, 3, total)
}
