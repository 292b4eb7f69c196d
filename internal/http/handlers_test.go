package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/service"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCustomers struct {
	byID map[int64]model.Customer
}

func (s *stubCustomers) Create(_ context.Context, c *model.Customer) error {
	for _, e := range s.byID {
		if e.Email == c.Email {
			return repository.ErrDuplicateEmail
		}
	}
	c.ID = int64(len(s.byID) + 1)
	s.byID[c.ID] = *c
	return nil
}

func (s *stubCustomers) ByID(_ context.Context, id int64) (*model.Customer, error) {
	if c, ok := s.byID[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *stubCustomers) List(_ context.Context) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCustomers) ByIDs(_ context.Context, ids []int64) ([]model.Customer, error) {
	var out []model.Customer
	for _, id := range ids {
		if c, ok := s.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCustomers) Update(_ context.Context, c *model.Customer) error {
	s.byID[c.ID] = *c
	return nil
}

func (s *stubCustomers) Delete(_ context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	delete(s.byID, id)
	return nil
}

type stubOps struct{ opened []model.OperationStatus }

func (s *stubOps) Open(_ context.Context, e model.OperationStatus) error {
	s.opened = append(s.opened, e)
	return nil
}
func (s *stubOps) Complete(context.Context, string) error     { return nil }
func (s *stubOps) Fail(context.Context, string, string) error { return nil }
func (s *stubOps) ByCustomer(_ context.Context, id int64) ([]model.OperationStatus, error) {
	var out []model.OperationStatus
	for _, e := range s.opened {
		if e.CustomerID == id {
			out = append(out, e)
		}
	}
	return out, nil
}
func (s *stubOps) MarkStalled(context.Context, time.Time, string) (int64, error) { return 0, nil }

type stubOrders struct{}

func (stubOrders) ByID(context.Context, int64) (*model.Order, error)            { return nil, nil }
func (stubOrders) ListByCustomer(context.Context, int64) ([]model.Order, error) { return nil, nil }

type stubPub struct{}

func (stubPub) PublishJSON(context.Context, string, any) error { return nil }

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func TestCreateCustomerHandler(t *testing.T) {
	repo := &stubCustomers{byID: map[int64]model.Customer{}}
	h := createCustomerHandler(repo)

	rec := doJSON(t, h, http.MethodPost, "/v1/customers",
		`{"email":"Ana@Example.com","name":"Ana","visits":3}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got model.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ana@example.com", got.Email)
	assert.NotZero(t, got.ID)

	// duplicate email maps to 409
	rec = doJSON(t, h, http.MethodPost, "/v1/customers",
		`{"email":"ana@example.com","name":"Ana Again"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// missing name maps to 400
	rec = doJSON(t, h, http.MethodPost, "/v1/customers",
		`{"email":"x@example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCustomerHandlerNotFound(t *testing.T) {
	h := getCustomerHandler(&stubCustomers{byID: map[int64]model.Customer{}})
	rec := doJSON(t, h, http.MethodGet, "/v1/customers/5", "", map[string]string{"id": "5"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/customers/abc", "", map[string]string{"id": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderHandlerAccepted(t *testing.T) {
	ops := &stubOps{}
	producer := service.NewOrderProducer(ops, stubOrders{}, stubPub{}, "orderQueue")
	h := createOrderHandler(producer)

	rec := doJSON(t, h, http.MethodPost, "/v1/orders",
		`{"customer_id":7,"revenue":"140","cost":"100","order_date":"2026-08-01T10:00:00Z"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Accepted    bool   `json:"accepted"`
		OperationID string `json:"operation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.NotEmpty(t, resp.OperationID)
	require.Len(t, ops.opened, 1)
	assert.Equal(t, resp.OperationID, ops.opened[0].ID)
}

func TestCreateOrderHandlerValidation(t *testing.T) {
	producer := service.NewOrderProducer(&stubOps{}, stubOrders{}, stubPub{}, "orderQueue")
	h := createOrderHandler(producer)

	rec := doJSON(t, h, http.MethodPost, "/v1/orders", `{"customer_id":0}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteOrderHandlerUnknownOrder(t *testing.T) {
	producer := service.NewOrderProducer(&stubOps{}, stubOrders{}, stubPub{}, "orderQueue")
	h := deleteOrderHandler(producer)

	rec := doJSON(t, h, http.MethodDelete, "/v1/orders/9", "", map[string]string{"id": "9"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOperationsHandler(t *testing.T) {
	customers := &stubCustomers{byID: map[int64]model.Customer{7: {ID: 7, Email: "a@b.c", Name: "Ana"}}}
	ops := &stubOps{opened: []model.OperationStatus{
		{ID: "01A", CustomerID: 7, Status: model.StatePending, Operation: model.OpInsert},
	}}
	h := listOperationsHandler(ops, customers)

	rec := doJSON(t, h, http.MethodGet, "/v1/customers/7/operations", "", map[string]string{"id": "7"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out []model.OperationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "01A", out[0].ID)

	rec = doJSON(t, h, http.MethodGet, "/v1/customers/8/operations", "", map[string]string{"id": "8"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
