package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/internal/storage"
	"github.com/gridline/fraudgraph/backend/internal/util"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// CreateReportHandler runs the analysis, uploads the rendered report and
// returns a presigned download link.
func CreateReportHandler(c echo.Context) error {
	type reportParams struct {
		ID string `param:"id" validate:"required"`
	}

	type reportResponse struct {
		Message     string `json:"message"`
		ReportKey   string `json:"report_key,omitempty"`
		DownloadURL string `json:"download_url,omitempty"`
	}

	params := new(reportParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, reportResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, reportResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	result, err := app.Analyzer.Analyze(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, reportResponse{
			Message: "Company not found",
		})
	}
	if err != nil {
		logger.Error("[API] Analysis failed", "company", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, reportResponse{
			Message: "Internal server error",
		})
	}

	reportID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, reportResponse{
			Message: "Internal server error",
		})
	}

	key, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (string, error) {
		return storage.PutReport(ctx, app.S3, reportID, result)
	})
	if err != nil {
		logger.Error("[API] Report upload failed", "company", result.Company.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, reportResponse{
			Message: "Internal server error",
		})
	}

	link, err := storage.GenerateDownloadLink(ctx, app.S3, key)
	if err != nil {
		logger.Error("[API] Report link generation failed", "key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, reportResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, reportResponse{
		Message:     "Report created",
		ReportKey:   key,
		DownloadURL: link,
	})
}
