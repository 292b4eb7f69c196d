package http

import (
	"net/http"
	"strings"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/repository"
	echo "github.com/labstack/echo/v4"
)

type customerReq struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Visits int    `json:"visits"`
}

func (r *customerReq) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
}

func (r customerReq) validate() string {
	switch {
	case r.Email == "" || !strings.Contains(r.Email, "@"):
		return "a valid email is required"
	case r.Name == "":
		return "name is required"
	case r.Visits < 0:
		return "visits must not be negative"
	default:
		return ""
	}
}

func createCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req customerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.normalize()
		if msg := req.validate(); msg != "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
		}

		cust := &model.Customer{Email: req.Email, Name: req.Name, Visits: req.Visits}
		if err := customers.Create(c.Request().Context(), cust); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, cust)
	}
}

func getCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
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
		return c.JSON(http.StatusOK, cust)
	}
}

func listCustomersHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := customers.List(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		if out == nil {
			out = []model.Customer{}
		}
		return c.JSON(http.StatusOK, out)
	}
}

func updateCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		var req customerReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		req.normalize()
		if msg := req.validate(); msg != "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
		}

		existing, err := customers.ByID(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if existing == nil {
			return writeError(c, repository.ErrCustomerNotFound)
		}

		existing.Email = req.Email
		existing.Name = req.Name
		existing.Visits = req.Visits
		if err := customers.Update(c.Request().Context(), existing); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, existing)
	}
}

func deleteCustomerHandler(customers repository.CustomersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		if err := customers.Delete(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
