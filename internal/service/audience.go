package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/segment"
)

// AudienceService evaluates predicate trees over the customer population
// and manages segment membership snapshots. Membership is point-in-time:
// it changes only when the segment is created or explicitly re-evaluated.
type AudienceService struct {
	customers repository.CustomersRepository
	segments  repository.SegmentsRepository
	eval      *segment.Evaluator
}

func NewAudienceService(
	customers repository.CustomersRepository,
	segments repository.SegmentsRepository,
	eval *segment.Evaluator,
) *AudienceService {
	return &AudienceService{customers: customers, segments: segments, eval: eval}
}

// evaluate compiles the tree and returns matching customer ids.
func (s *AudienceService) evaluate(ctx context.Context, tree segment.Conditions) ([]int64, error) {
	pred, err := s.eval.Compile(tree)
	if err != nil {
		return nil, validationf("invalid conditions: %v", err)
	}

	population, err := s.customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	matched := segment.Filter(population, pred)
	ids := make([]int64, 0, len(matched))
	for _, c := range matched {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// Create evaluates the tree, persists the segment with its serialized
// conditions, and snapshots the matching set as membership. Returns the
// segment and the audience size.
func (s *AudienceService) Create(ctx context.Context, name string, tree segment.Conditions) (*model.AudienceSegment, int, error) {
	if strings.TrimSpace(name) == "" {
		return nil, 0, validationf("segment name is required")
	}

	ids, err := s.evaluate(ctx, tree)
	if err != nil {
		return nil, 0, err
	}

	raw, err := tree.Serialize()
	if err != nil {
		return nil, 0, err
	}

	seg, err := s.segments.CreateWithMembers(ctx, name, raw, ids)
	if err != nil {
		return nil, 0, err
	}
	return seg, len(ids), nil
}

// Update re-evaluates and replaces the membership snapshot.
func (s *AudienceService) Update(ctx context.Context, id int64, name string, tree segment.Conditions) (*model.AudienceSegment, int, error) {
	if strings.TrimSpace(name) == "" {
		return nil, 0, validationf("segment name is required")
	}

	ids, err := s.evaluate(ctx, tree)
	if err != nil {
		return nil, 0, err
	}

	raw, err := tree.Serialize()
	if err != nil {
		return nil, 0, err
	}

	seg, err := s.segments.UpdateWithMembers(ctx, id, name, raw, ids)
	if err != nil {
		return nil, 0, err
	}
	return seg, len(ids), nil
}

func (s *AudienceService) Delete(ctx context.Context, id int64) error {
	return s.segments.Delete(ctx, id)
}

// Get returns the segment and its current snapshot size.
func (s *AudienceService) Get(ctx context.Context, id int64) (*model.AudienceSegment, int, error) {
	seg, err := s.segments.ByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if seg == nil {
		return nil, 0, repository.ErrSegmentNotFound
	}
	ids, err := s.segments.MemberIDs(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return seg, len(ids), nil
}

// Size evaluates without persisting, for previews.
func (s *AudienceService) Size(ctx context.Context, tree segment.Conditions) (int, error) {
	ids, err := s.evaluate(ctx, tree)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
