package http

import (
	"net/http"

	"github.com/engagekit/crm/internal/model"
	"github.com/engagekit/crm/internal/service"
	echo "github.com/labstack/echo/v4"
)

type campaignReq struct {
	Message string `json:"message"`
}

func sendCampaignHandler(campaigns *service.CampaignService) echo.HandlerFunc {
	return func(c echo.Context) error {
		segID, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		var req campaignReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		campaign, sent, err := campaigns.CreateAndSend(c.Request().Context(), segID, req.Message)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]any{
			"campaign": campaign,
			"enqueued": sent,
		})
	}
}

func listCampaignsHandler(campaigns *service.CampaignService) echo.HandlerFunc {
	return func(c echo.Context) error {
		segID, ok := pathID(c, "id")
		if !ok {
			return badID(c)
		}
		out, err := campaigns.ListBySegment(c.Request().Context(), segID)
		if err != nil {
			return writeError(c, err)
		}
		if out == nil {
			out = []model.Campaign{}
		}
		return c.JSON(http.StatusOK, out)
	}
}
