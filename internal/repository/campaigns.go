package repository

import (
	"context"
	"fmt"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

type CampaignsRepository interface {
	Create(ctx context.Context, c *model.Campaign) error
	ListBySegment(ctx context.Context, segmentID int64) ([]model.Campaign, error)
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) Create(ctx context.Context, c *model.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (audience_segment_id, message, scheduled_at, created_at)
		VALUES (?, ?, ?, NOW())
	`, c.AudienceSegmentID, c.Message, c.ScheduledAt)
	if err != nil {
		if isFKViolation(err) {
			return ErrSegmentNotFound
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *CampaignsRepositoryImpl) ListBySegment(ctx context.Context, segmentID int64) ([]model.Campaign, error) {
	var out []model.Campaign
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, audience_segment_id, message, scheduled_at, created_at
		  FROM campaigns
		 WHERE audience_segment_id = ?
		 ORDER BY created_at DESC, id DESC
	`, segmentID)
	return out, err
}
