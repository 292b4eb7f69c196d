package http

import (
	"net/http"
	"time"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/service"
	echo "github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type orderReq struct {
	CustomerID int64           `json:"customer_id"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	OrderDate  time.Time       `json:"order_date"`
}

// accepted is the 202 body for every queued mutation: the caller polls
// the ledger with the operation id for the outcome.
func accepted(c echo.Context, operationID string) error {
	return c.JSON(http.StatusAccepted, map[string]any{
		"accepted":     true,
		"operation_id": operationID,
	})
}

func createOrderHandler(producer *service.OrderProducer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req orderReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		opID, err := producer.CreateOrder(c.Request().Context(), req.CustomerID, req.Revenue, req.Cost, req.OrderDate)
		if err != nil {
			return writeError(c, err)
		}
		return accepted(c, opID)
	}
}

func updateOrderHandler(producer *service.OrderProducer) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		var req orderReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		opID, err := producer.UpdateOrder(c.Request().Context(), id, req.Revenue, req.Cost, req.OrderDate)
		if err != nil {
			return writeError(c, err)
		}
		return accepted(c, opID)
	}
}

func deleteOrderHandler(producer *service.OrderProducer) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		opID, err := producer.DeleteOrder(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return accepted(c, opID)
	}
}

func getOrderHandler(orders repository.OrdersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		o, err := orders.ByID(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if o == nil {
			return writeError(c, repository.ErrOrderNotFound)
		}
		return c.JSON(http.StatusOK, o)
	}
}

func listCustomerOrdersHandler(orders repository.OrdersRepository, customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		cust, err := customers.ByID(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if cust == nil {
			return writeError(c, repository.ErrCustomerNotFound)
		}

		out, err := orders.ListByCustomer(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if out == nil {
			out = []model.Order{}
		}
		return c.JSON(http.StatusOK, out)
	}
}
