package repository

import (
	"context"
	"strings"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// CommLogRepository is the append-only communication log in ClickHouse.
// The delivery consumer writes in batches; the reports endpoint reads.
type CommLogRepository interface {
	InsertBatch(ctx context.Context, rows []model.CommunicationLog) error
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.CommunicationLog, error)
}

type commLogRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCommLogRepository(ch *sqlx.DB) CommLogRepository {
	return &commLogRepository{ch: ch}
}

func (r *commLogRepository) InsertBatch(ctx context.Context, rows []model.CommunicationLog) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*6)

	sb.WriteString(`INSERT INTO communication_log (customer_id, campaign_id, message, status, error_message, sent_at) VALUES `)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, row.CustomerID, row.CampaignID, row.Message, row.Status.String(), row.ErrorMessage, row.SentAt)
	}

	_, err := r.ch.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *commLogRepository) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]model.CommunicationLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []model.CommunicationLog
	err := r.ch.SelectContext(ctx, &out, `
		SELECT customer_id, campaign_id, message, status, error_message, sent_at
		  FROM communication_log
		 WHERE customer_id = ?
		 ORDER BY sent_at DESC
		 LIMIT ? OFFSET ?
	`, customerID, limit, offset)
	return out, err
}
