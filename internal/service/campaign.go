package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"go.uber.org/zap"
)

// CampaignService persists campaigns and fans them out: one persistent
// delivery work item per customer in the segment snapshot, message
// personalized per recipient. The fan-out runs outside any transaction
// with the campaign write; it succeeds once every publish is confirmed
// by the broker, without waiting for actual delivery processing.
type CampaignService struct {
	campaigns repository.CampaignsRepository
	segments  repository.SegmentsRepository
	customers repository.CustomersRepository
	pub       rabbit.Publisher

	deliveryQueue string
	campaignQueue string
}

func NewCampaignService(
	campaigns repository.CampaignsRepository,
	segments repository.SegmentsRepository,
	customers repository.CustomersRepository,
	pub rabbit.Publisher,
	deliveryQueue, campaignQueue string,
) *CampaignService {
	return &CampaignService{
		campaigns:     campaigns,
		segments:      segments,
		customers:     customers,
		pub:           pub,
		deliveryQueue: deliveryQueue,
		campaignQueue: campaignQueue,
	}
}

// CreateAndSend validates the template, persists the campaign, and fans
// out to the segment's membership snapshot. Returns the campaign and the
// number of delivery work items published.
func (s *CampaignService) CreateAndSend(ctx context.Context, segmentID int64, message string) (*model.Campaign, int, error) {
	if !strings.Contains(message, model.NamePlaceholder) {
		return nil, 0, validationf("message must contain the placeholder %q", model.NamePlaceholder)
	}

	seg, err := s.segments.ByID(ctx, segmentID)
	if err != nil {
		return nil, 0, err
	}
	if seg == nil {
		return nil, 0, repository.ErrSegmentNotFound
	}

	campaign := &model.Campaign{
		AudienceSegmentID: segmentID,
		Message:           message,
		ScheduledAt:       time.Now(),
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, 0, err
	}

	memberIDs, err := s.segments.MemberIDs(ctx, segmentID)
	if err != nil {
		return nil, 0, err
	}
	members, err := s.customers.ByIDs(ctx, memberIDs)
	if err != nil {
		return nil, 0, err
	}

	if err := s.fanOut(ctx, campaign, members); err != nil {
		return nil, 0, err
	}

	metrics.FanoutSize.Observe(float64(len(members)))

	// Dispatch summary; the fan-out itself already succeeded, so a
	// failure here is only logged.
	event := model.CampaignEvent{
		CampaignID:    campaign.ID,
		SegmentID:     segmentID,
		CustomerCount: len(members),
	}
	if err := s.pub.PublishJSON(ctx, s.campaignQueue, event); err != nil {
		logger.Log.Warn("campaign event publish failed",
			zap.Int64("campaign_id", campaign.ID), zap.Error(err))
	} else {
		metrics.PublishedTotal.WithLabelValues(s.campaignQueue).Inc()
	}

	return campaign, len(members), nil
}

// fanOut publishes every per-customer item concurrently and waits for
// all confirms; the first publish error fails the operation.
func (s *CampaignService) fanOut(ctx context.Context, campaign *model.Campaign, members []model.Customer) error {
	errs := make(chan error, len(members))
	var wg sync.WaitGroup

	for _, m := range members {
		item := model.DeliveryWorkItem{
			CustomerID: m.ID,
			CampaignID: campaign.ID,
			Message:    strings.ReplaceAll(campaign.Message, model.NamePlaceholder, m.Name),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.pub.PublishJSON(ctx, s.deliveryQueue, item); err != nil {
				errs <- err
				return
			}
			metrics.PublishedTotal.WithLabelValues(s.deliveryQueue).Inc()
		}()
	}

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return fmt.Errorf("campaign fan-out: %w", err)
	}
	return nil
}

// ListBySegment returns the campaigns sent to one segment.
func (s *CampaignService) ListBySegment(ctx context.Context, segmentID int64) ([]model.Campaign, error) {
	seg, err := s.segments.ByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, repository.ErrSegmentNotFound
	}
	return s.campaigns.ListBySegment(ctx, segmentID)
}
