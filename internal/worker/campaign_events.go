package worker

import (
	"context"
	"encoding/json"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/model"
	"go.uber.org/zap"
)

// CampaignEventConsumer drains campaignQueue. Events are dispatch
// summaries produced after a fan-out is fully confirmed; today they are
// logged for campaign accounting.
type CampaignEventConsumer struct {
	Queue string
}

func NewCampaignEventConsumer(queue string) *CampaignEventConsumer {
	return &CampaignEventConsumer{Queue: queue}
}

func (c *CampaignEventConsumer) Run(ctx context.Context, consumer Consumer) error {
	return consumer.Consume(ctx, c.Queue, c.Handle)
}

func (c *CampaignEventConsumer) Handle(_ context.Context, body []byte) error {
	var ev model.CampaignEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Log.Error("undecodable campaign event",
			zap.ByteString("body", body), zap.Error(err))
		return nil
	}

	logger.Log.Info("campaign dispatched",
		zap.Int64("campaign_id", ev.CampaignID),
		zap.Int64("segment_id", ev.SegmentID),
		zap.Int("customer_count", ev.CustomerCount))
	return nil
}
