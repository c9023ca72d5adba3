package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/network"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// GetCompanyNetworkHandler returns the 2-hop relationship network around a
// company without running the detectors.
func GetCompanyNetworkHandler(c echo.Context) error {
	type getNetworkParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getNetworkResponse struct {
		Message string         `json:"message"`
		Network *network.Graph `json:"network,omitempty"`
	}

	params := new(getNetworkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getNetworkResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getNetworkResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	neighborhood, err := app.Store.Neighborhood(ctx, params.ID, neighborhoodHops)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getNetworkResponse{
			Message: "Company not found",
		})
	}
	if err != nil {
		logger.Error("[API] Neighborhood lookup failed", "company", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getNetworkResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getNetworkResponse{
		Message: "OK",
		Network: network.Build(neighborhood),
	})
}
