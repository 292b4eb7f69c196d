package http

import (
	"net/http"
	"strconv"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// listCommunicationsHandler reads a customer's delivery history from the
// communication log, newest first.
func listCommunicationsHandler(commLog repository.CommLogRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}

		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		offset, _ := strconv.Atoi(c.QueryParam("offset"))

		out, err := commLog.ListByCustomer(c.Request().Context(), id, limit, offset)
		if err != nil {
			return writeError(c, err)
		}
		if out == nil {
			out = []model.CommunicationLog{}
		}
		return c.JSON(http.StatusOK, out)
	}
}
