package service

import (
	"context"
	"testing"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/segment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audienceFixture() (*fakeSegments, *fakeCustomers, *AudienceService) {
	segments := &fakeSegments{
		segments: map[int64]model.AudienceSegment{},
		members:  map[int64][]int64{},
	}
	customers := &fakeCustomers{customers: map[int64]model.Customer{
		1: {ID: 1, Name: "Ana", TotalSpending: decimal.NewFromInt(750), Visits: 12},
		2: {ID: 2, Name: "Bruno", TotalSpending: decimal.NewFromInt(90), Visits: 2},
		3: {ID: 3, Name: "Carla", TotalSpending: decimal.NewFromInt(1200), Visits: 7},
	}}
	eval := segment.NewEvaluator(segment.DefaultFields(), true)
	return segments, customers, NewAudienceService(customers, segments, eval)
}

func spendingOver(v string) segment.Conditions {
	return segment.Conditions{
		Operator:   segment.OpAnd,
		Conditions: []segment.Condition{{Field: "totalSpending", Operator: ">", Value: v}},
	}
}

func TestCreateSegmentSnapshotsMembership(t *testing.T) {
	segments, customers, svc := audienceFixture()

	seg, size, err := svc.Create(context.Background(), "big spenders", spendingOver("500"))
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.ElementsMatch(t, []int64{1, 3}, segments.members[seg.ID])
	assert.NotEmpty(t, seg.Conditions)

	// later population changes do not move the snapshot
	customers.customers[2] = model.Customer{ID: 2, Name: "Bruno", TotalSpending: decimal.NewFromInt(9000)}
	_, size, err = svc.Get(context.Background(), seg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestUpdateSegmentReplacesSnapshot(t *testing.T) {
	segments, customers, svc := audienceFixture()

	seg, _, err := svc.Create(context.Background(), "big spenders", spendingOver("500"))
	require.NoError(t, err)

	customers.customers[2] = model.Customer{ID: 2, Name: "Bruno", TotalSpending: decimal.NewFromInt(9000)}

	_, size, err := svc.Update(context.Background(), seg.ID, "big spenders", spendingOver("500"))
	require.NoError(t, err)
	assert.Equal(t, 3, size)
	assert.ElementsMatch(t, []int64{1, 2, 3}, segments.members[seg.ID])
}

func TestCreateSegmentRejectsInvalidTree(t *testing.T) {
	_, _, svc := audienceFixture()

	bad := segment.Conditions{
		Operator:   segment.OpAnd,
		Conditions: []segment.Condition{{Field: "shoeSize", Operator: ">", Value: "40"}},
	}
	_, _, err := svc.Create(context.Background(), "odd", bad)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(context.Background(), "", spendingOver("1"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSizePreviewPersistsNothing(t *testing.T) {
	segments, _, svc := audienceFixture()

	size, err := svc.Size(context.Background(), spendingOver("100"))
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.Empty(t, segments.segments)
}

func TestGetUnknownSegment(t *testing.T) {
	_, _, svc := audienceFixture()

	_, _, err := svc.Get(context.Background(), 123)
	assert.ErrorIs(t, err, repository.ErrSegmentNotFound)
}
