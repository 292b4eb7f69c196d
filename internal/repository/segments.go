package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/engagekit/crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// SegmentsRepository owns audience_segments and the segment_customers
// membership snapshot. The snapshot is replaced wholesale in the same
// transaction as the segment row, never updated incrementally.
type SegmentsRepository interface {
	CreateWithMembers(ctx context.Context, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error)
	UpdateWithMembers(ctx context.Context, id int64, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error)
	Delete(ctx context.Context, id int64) error
	ByID(ctx context.Context, id int64) (*model.AudienceSegment, error)
	MemberIDs(ctx context.Context, segmentID int64) ([]int64, error)
}

type SegmentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSegmentsRepository(db *sqlx.DB) *SegmentsRepositoryImpl {
	return &SegmentsRepositoryImpl{db: db}
}

var _ SegmentsRepository = (*SegmentsRepositoryImpl)(nil)

func (r *SegmentsRepositoryImpl) CreateWithMembers(ctx context.Context, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error) {
	var id int64
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO audience_segments (name, conditions, created_at, updated_at)
			VALUES (?, ?, NOW(), NOW())
		`, name, conditions)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertMembers(ctx, tx, id, memberIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r *SegmentsRepositoryImpl) UpdateWithMembers(ctx context.Context, id int64, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error) {
	err := withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE audience_segments
			   SET name = ?, conditions = ?, updated_at = NOW()
			 WHERE id = ?
		`, name, conditions, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var one int
			if err := tx.GetContext(ctx, &one, `SELECT 1 FROM audience_segments WHERE id = ?`, id); errors.Is(err, sql.ErrNoRows) {
				return ErrSegmentNotFound
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM segment_customers WHERE segment_id = ?`, id); err != nil {
			return err
		}
		return insertMembers(ctx, tx, id, memberIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r *SegmentsRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM segment_customers WHERE segment_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM audience_segments WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrSegmentNotFound
		}
		return nil
	})
}

func (r *SegmentsRepositoryImpl) ByID(ctx context.Context, id int64) (*model.AudienceSegment, error) {
	var s model.AudienceSegment
	err := r.db.GetContext(ctx, &s, `
		SELECT id, name, conditions, created_at, updated_at
		  FROM audience_segments
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SegmentsRepositoryImpl) MemberIDs(ctx context.Context, segmentID int64) ([]int64, error) {
	var out []int64
	err := r.db.SelectContext(ctx, &out, `
		SELECT customer_id
		  FROM segment_customers
		 WHERE segment_id = ?
		 ORDER BY customer_id
	`, segmentID)
	return out, err
}

// insertMembers writes the snapshot with one multi-row statement.
func insertMembers(ctx context.Context, tx *sqlx.Tx, segmentID int64, memberIDs []int64) error {
	if len(memberIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(memberIDs)*2)

	sb.WriteString(`INSERT INTO segment_customers (segment_id, customer_id) VALUES `)
	for i, cid := range memberIDs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, segmentID, cid)
	}

	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}
