package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/gridline/fraudgraph/backend/internal/queue"
	"github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/pkg/logger"
	"github.com/gridline/fraudgraph/backend/pkg/store"
)

// EnqueueAnalysisHandler queues an asynchronous analysis job. The result is
// published to the analysis result topic, not stored.
func EnqueueAnalysisHandler(c echo.Context) error {
	type enqueueParams struct {
		ID string `param:"id" validate:"required"`
	}

	type enqueueResponse struct {
		Message string `json:"message"`
		JobID   string `json:"job_id,omitempty"`
		Topic   string `json:"topic,omitempty"`
	}

	params := new(enqueueParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, enqueueResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, enqueueResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	// Resolve before queueing so an unknown company fails fast instead of
	// dead-lettering in the worker.
	company, err := app.Store.ResolveCompany(ctx, params.ID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, enqueueResponse{
			Message: "Company not found",
		})
	}
	if err != nil {
		logger.Error("[API] Company resolution failed", "company", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	payload, err := json.Marshal(queue.AnalysisJobMsg{
		JobID:   jobID,
		Company: company.ID,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.AnalysisQueue, payload); err != nil {
		logger.Error("[API] Failed to publish analysis job", "company", company.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	logger.Info("[API] Analysis job queued", "job_id", jobID, "company", company.ID)
	return c.JSON(http.StatusAccepted, enqueueResponse{
		Message: "Analysis queued",
		JobID:   jobID,
		Topic:   queue.ResultTopic(company.ID),
	})
}
