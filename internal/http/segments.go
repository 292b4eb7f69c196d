package http

import (
	"net/http"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/segment"
	"github.com/engagekit/crm/internal/service"
	echo "github.com/labstack/echo/v4"
)

type segmentReq struct {
	Name       string             `json:"name"`
	Conditions segment.Conditions `json:"conditions"`
}

type segmentResp struct {
	*model.AudienceSegment
	AudienceSize int `json:"audience_size"`
}

func createSegmentHandler(audience *service.AudienceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req segmentReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		seg, size, err := audience.Create(c.Request().Context(), req.Name, req.Conditions)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, segmentResp{seg, size})
	}
}

func updateSegmentHandler(audience *service.AudienceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		var req segmentReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		seg, size, err := audience.Update(c.Request().Context(), id, req.Name, req.Conditions)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, segmentResp{seg, size})
	}
}

func getSegmentHandler(audience *service.AudienceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		seg, size, err := audience.Get(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, segmentResp{seg, size})
	}
}

func deleteSegmentHandler(audience *service.AudienceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		if err := audience.Delete(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// previewSegmentHandler evaluates a predicate tree without persisting
// anything, returning only the audience size.
func previewSegmentHandler(audience *service.AudienceService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req segmentReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		size, err := audience.Size(c.Request().Context(), req.Conditions)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int{"audience_size": size})
	}
}
