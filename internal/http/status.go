package http

import (
	"net/http"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// listOperationsHandler is the ledger poll: all queued mutations for a
// customer, newest first.
func listOperationsHandler(ops repository.OperationsRepository, customers repository.CustomersRepository) echo.HandlerFunc {
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

		out, err := ops.ByCustomer(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if out == nil {
			out = []model.OperationStatus{}
		}
		return c.JSON(http.StatusOK, out)
	}
}
