package service

import (
	"context"
	"errors"
	"testing"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSegments struct {
	segments map[int64]model.AudienceSegment
	members  map[int64][]int64
}

func (f *fakeSegments) CreateWithMembers(_ context.Context, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error) {
	id := int64(len(f.segments) + 1)
	seg := model.AudienceSegment{ID: id, Name: name, Conditions: conditions}
	f.segments[id] = seg
	f.members[id] = memberIDs
	return &seg, nil
}

func (f *fakeSegments) UpdateWithMembers(_ context.Context, id int64, name, conditions string, memberIDs []int64) (*model.AudienceSegment, error) {
	seg, ok := f.segments[id]
	if !ok {
		return nil, repository.ErrSegmentNotFound
	}
	seg.Name, seg.Conditions = name, conditions
	f.segments[id] = seg
	f.members[id] = memberIDs
	return &seg, nil
}

func (f *fakeSegments) Delete(_ context.Context, id int64) error {
	if _, ok := f.segments[id]; !ok {
		return repository.ErrSegmentNotFound
	}
	delete(f.segments, id)
	delete(f.members, id)
	return nil
}

func (f *fakeSegments) ByID(_ context.Context, id int64) (*model.AudienceSegment, error) {
	if seg, ok := f.segments[id]; ok {
		return &seg, nil
	}
	return nil, nil
}

func (f *fakeSegments) MemberIDs(_ context.Context, id int64) ([]int64, error) {
	return f.members[id], nil
}

type fakeCustomers struct {
	customers map[int64]model.Customer
}

func (f *fakeCustomers) Create(_ context.Context, c *model.Customer) error {
	c.ID = int64(len(f.customers) + 1)
	f.customers[c.ID] = *c
	return nil
}

func (f *fakeCustomers) ByID(_ context.Context, id int64) (*model.Customer, error) {
	if c, ok := f.customers[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeCustomers) List(_ context.Context) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCustomers) ByIDs(_ context.Context, ids []int64) ([]model.Customer, error) {
	var out []model.Customer
	for _, id := range ids {
		if c, ok := f.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCustomers) Update(_ context.Context, c *model.Customer) error {
	f.customers[c.ID] = *c
	return nil
}

func (f *fakeCustomers) Delete(_ context.Context, id int64) error {
	delete(f.customers, id)
	return nil
}

type fakeCampaigns struct {
	created []model.Campaign
}

func (f *fakeCampaigns) Create(_ context.Context, c *model.Campaign) error {
	c.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *c)
	return nil
}

func (f *fakeCampaigns) ListBySegment(_ context.Context, segmentID int64) ([]model.Campaign, error) {
	var out []model.Campaign
	for _, c := range f.created {
		if c.AudienceSegmentID == segmentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func campaignFixture() (*fakeCampaigns, *fakeSegments, *fakeCustomers, *fakePublisher, *CampaignService) {
	campaigns := &fakeCampaigns{}
	segments := &fakeSegments{
		segments: map[int64]model.AudienceSegment{1: {ID: 1, Name: "big spenders"}},
		members:  map[int64][]int64{1: {10, 11, 12}},
	}
	customers := &fakeCustomers{customers: map[int64]model.Customer{
		10: {ID: 10, Name: "Ana"},
		11: {ID: 11, Name: "Bruno"},
		12: {ID: 12, Name: "Carla"},
	}}
	pub := newFakePublisher()
	svc := NewCampaignService(campaigns, segments, customers, pub, "deliveryQueue", "campaignQueue")
	return campaigns, segments, customers, pub, svc
}

func TestCreateAndSendFansOutPerMember(t *testing.T) {
	campaigns, _, _, pub, svc := campaignFixture()

	campaign, sent, err := svc.CreateAndSend(context.Background(), 1, "Hi [Name], thanks!")
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	require.Len(t, campaigns.created, 1)

	items := pub.published["deliveryQueue"]
	require.Len(t, items, 3)

	messages := map[int64]string{}
	for _, v := range items {
		item := v.(model.DeliveryWorkItem)
		assert.Equal(t, campaign.ID, item.CampaignID)
		messages[item.CustomerID] = item.Message
	}
	assert.Equal(t, "Hi Ana, thanks!", messages[10])
	assert.Equal(t, "Hi Bruno, thanks!", messages[11])
	assert.Equal(t, "Hi Carla, thanks!", messages[12])

	// dispatch summary on campaignQueue
	events := pub.published["campaignQueue"]
	require.Len(t, events, 1)
	ev := events[0].(model.CampaignEvent)
	assert.Equal(t, campaign.ID, ev.CampaignID)
	assert.Equal(t, 3, ev.CustomerCount)
}

func TestCreateAndSendRejectsMissingPlaceholder(t *testing.T) {
	_, _, _, pub, svc := campaignFixture()

	_, _, err := svc.CreateAndSend(context.Background(), 1, "Hi friend, thanks!")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, pub.published)
}

func TestCreateAndSendUnknownSegment(t *testing.T) {
	_, _, _, _, svc := campaignFixture()

	_, _, err := svc.CreateAndSend(context.Background(), 99, "Hi [Name]!")
	assert.ErrorIs(t, err, repository.ErrSegmentNotFound)
}

func TestCreateAndSendPublishFailureSurfaces(t *testing.T) {
	_, _, _, pub, svc := campaignFixture()
	pub.err = errors.New("broker down")

	_, _, err := svc.CreateAndSend(context.Background(), 1, "Hi [Name]!")
	require.Error(t, err)
}

func TestCreateAndSendEmptySegment(t *testing.T) {
	_, segments, _, pub, svc := campaignFixture()
	segments.members[1] = nil

	_, sent, err := svc.CreateAndSend(context.Background(), 1, "Hi [Name]!")
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, pub.published["deliveryQueue"])
}

func TestListBySegment(t *testing.T) {
	_, _, _, _, svc := campaignFixture()

	_, _, err := svc.CreateAndSend(context.Background(), 1, "Hi [Name]!")
	require.NoError(t, err)

	out, err := svc.ListBySegment(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.ListBySegment(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrSegmentNotFound)
}
