package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/service"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// writeError maps service and repository errors onto the wire. Unknown
// errors are logged and returned as opaque 500s.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	case errors.Is(err, repository.ErrCustomerNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
	case errors.Is(err, repository.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, repository.ErrSegmentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "segment not found"})
	case errors.Is(err, repository.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, map[string]string{"error": "email already registered"})
	default:
		log.Errorf("request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
}
