package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the transactional semantics of the orders store: the
// order row and the owner's total_spending move together or not at all.
type memStore struct {
	nextID    int64
	orders    map[int64]model.Order
	customers map[int64]decimal.Decimal // id -> total_spending
}

func newMemStore(customerIDs ...int64) *memStore {
	s := &memStore{
		nextID:    1,
		orders:    map[int64]model.Order{},
		customers: map[int64]decimal.Decimal{},
	}
	for _, id := range customerIDs {
		s.customers[id] = decimal.Zero
	}
	return s
}

func (s *memStore) ApplyInsert(_ context.Context, item model.OrderWorkItem) (int64, error) {
	if _, ok := s.customers[item.CustomerID]; !ok {
		return 0, repository.ErrCustomerNotFound
	}
	id := s.nextID
	s.nextID++
	s.orders[id] = model.Order{
		ID: id, CustomerID: item.CustomerID,
		Revenue: item.Revenue, Cost: item.Cost, OrderDate: item.OrderDate,
	}
	s.customers[item.CustomerID] = s.customers[item.CustomerID].Add(item.Cost)
	return id, nil
}

func (s *memStore) ApplyUpdate(_ context.Context, item model.OrderWorkItem) error {
	prior, ok := s.orders[item.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	s.orders[item.OrderID] = model.Order{
		ID: item.OrderID, CustomerID: prior.CustomerID,
		Revenue: item.Revenue, Cost: item.Cost, OrderDate: item.OrderDate,
	}
	s.customers[prior.CustomerID] = s.customers[prior.CustomerID].Add(item.Cost.Sub(prior.Cost))
	return nil
}

func (s *memStore) ApplyDelete(_ context.Context, orderID int64) error {
	prior, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	s.customers[prior.CustomerID] = s.customers[prior.CustomerID].Sub(prior.Cost)
	delete(s.orders, orderID)
	return nil
}

// memOps is a ledger with the PENDING-guarded terminal transitions.
type memOps struct {
	entries map[string]model.OperationStatus
}

func newMemOps(pendingIDs ...string) *memOps {
	ops := &memOps{entries: map[string]model.OperationStatus{}}
	for _, id := range pendingIDs {
		ops.entries[id] = model.OperationStatus{ID: id, Status: model.StatePending}
	}
	return ops
}

func (f *memOps) Open(_ context.Context, entry model.OperationStatus) error {
	f.entries[entry.ID] = entry
	return nil
}

func (f *memOps) Complete(_ context.Context, id string) error {
	if e, ok := f.entries[id]; ok && e.Status == model.StatePending {
		e.Status = model.StateCompleted
		f.entries[id] = e
	}
	return nil
}

func (f *memOps) Fail(_ context.Context, id string, msg string) error {
	if e, ok := f.entries[id]; ok && e.Status == model.StatePending {
		e.Status = model.StateFailed
		e.ErrorMessage = &msg
		f.entries[id] = e
	}
	return nil
}

func (f *memOps) ByCustomer(_ context.Context, _ int64) ([]model.OperationStatus, error) {
	return nil, nil
}

func (f *memOps) MarkStalled(_ context.Context, _ time.Time, _ string) (int64, error) {
	return 0, nil
}

func body(t *testing.T, item model.OrderWorkItem) []byte {
	t.Helper()
	b, err := json.Marshal(item)
	require.NoError(t, err)
	return b
}

func TestMaterializerInsertUpdateDelete(t *testing.T) {
	store := newMemStore(7)
	ops := newMemOps("op1", "op2", "op3")
	m := NewMaterializer(store, ops, "orderQueue")
	ctx := context.Background()

	// INSERT
	err := m.Handle(ctx, body(t, model.OrderWorkItem{
		CustomerID: 7, OperationID: "op1", Operation: model.OpInsert,
		OrderDate: time.Now(), Revenue: decimal.NewFromInt(140), Cost: decimal.NewFromInt(100),
	}))
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, ops.entries["op1"].Status)
	assert.True(t, store.customers[7].Equal(decimal.NewFromInt(100)))

	// UPDATE: aggregate moves by the cost delta
	err = m.Handle(ctx, body(t, model.OrderWorkItem{
		OrderID: 1, CustomerID: 7, OperationID: "op2", Operation: model.OpUpdate,
		OrderDate: time.Now(), Revenue: decimal.NewFromInt(200), Cost: decimal.NewFromInt(150),
	}))
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, ops.entries["op2"].Status)
	assert.True(t, store.customers[7].Equal(decimal.NewFromInt(150)))

	// DELETE: aggregate returns to zero
	err = m.Handle(ctx, body(t, model.OrderWorkItem{
		OrderID: 1, CustomerID: 7, OperationID: "op3", Operation: model.OpDelete,
	}))
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, ops.entries["op3"].Status)
	assert.True(t, store.customers[7].IsZero())
	assert.Empty(t, store.orders)
}

func TestMaterializerReferentialFailureSettlesFailed(t *testing.T) {
	store := newMemStore(7)
	ops := newMemOps("op1")
	m := NewMaterializer(store, ops, "orderQueue")

	// unknown customer: FAILED on the ledger, nil back so the loop acks
	err := m.Handle(context.Background(), body(t, model.OrderWorkItem{
		CustomerID: 999, OperationID: "op1", Operation: model.OpInsert,
		OrderDate: time.Now(), Revenue: decimal.NewFromInt(10), Cost: decimal.NewFromInt(8),
	}))
	require.NoError(t, err)

	entry := ops.entries["op1"]
	assert.Equal(t, model.StateFailed, entry.Status)
	require.NotNil(t, entry.ErrorMessage)
	assert.Empty(t, store.orders)
	assert.True(t, store.customers[7].IsZero())
}

func TestMaterializerPoisonMessageIsDropped(t *testing.T) {
	store := newMemStore(7)
	ops := newMemOps()
	m := NewMaterializer(store, ops, "orderQueue")

	err := m.Handle(context.Background(), []byte("not json"))
	require.NoError(t, err)
	assert.Empty(t, ops.entries)
}

func TestMaterializerTerminalTransitionIsIdempotent(t *testing.T) {
	store := newMemStore(7)
	ops := newMemOps("op1")
	m := NewMaterializer(store, ops, "orderQueue")
	ctx := context.Background()

	fail := body(t, model.OrderWorkItem{
		CustomerID: 999, OperationID: "op1", Operation: model.OpInsert,
		OrderDate: time.Now(), Revenue: decimal.NewFromInt(10), Cost: decimal.NewFromInt(8),
	})
	require.NoError(t, m.Handle(ctx, fail))
	assert.Equal(t, model.StateFailed, ops.entries["op1"].Status)

	// a redelivered duplicate cannot flip the terminal state
	ok := body(t, model.OrderWorkItem{
		CustomerID: 7, OperationID: "op1", Operation: model.OpInsert,
		OrderDate: time.Now(), Revenue: decimal.NewFromInt(10), Cost: decimal.NewFromInt(8),
	})
	require.NoError(t, m.Handle(ctx, ok))
	assert.Equal(t, model.StateFailed, ops.entries["op1"].Status)
}

func TestMaterializerUnknownOperation(t *testing.T) {
	store := newMemStore(7)
	ops := newMemOps("op1")
	m := NewMaterializer(store, ops, "orderQueue")

	err := m.Handle(context.Background(), body(t, model.OrderWorkItem{
		CustomerID: 7, OperationID: "op1", Operation: "TRUNCATE",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, ops.entries["op1"].Status)
}
