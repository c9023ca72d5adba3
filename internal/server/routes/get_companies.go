package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/pkg/detect"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/network"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

const neighborhoodHops = 2

// GetCompanyHandler runs the full fraud analysis for one company and returns
// it together with the surrounding network visualization.
func GetCompanyHandler(c echo.Context) error {
	type getCompanyParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getCompanyResponse struct {
		Message  string         `json:"message"`
		Analysis *detect.Result `json:"analysis,omitempty"`
		Network  *network.Graph `json:"network,omitempty"`
	}

	params := new(getCompanyParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getCompanyResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getCompanyResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	result, err := app.Analyzer.Analyze(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getCompanyResponse{
			Message: "Company not found",
		})
	}
	if err != nil {
		logger.Error("[API] Analysis failed", "company", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getCompanyResponse{
			Message: "Internal server error",
		})
	}

	neighborhood, err := app.Store.Neighborhood(ctx, result.Company.ID, neighborhoodHops)
	if err != nil {
		logger.Error("[API] Neighborhood lookup failed", "company", result.Company.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getCompanyResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getCompanyResponse{
		Message:  "Analysis complete",
		Analysis: result,
		Network:  network.Build(neighborhood),
	})
}
