package server

import (
	"github.com/gridline/fraudgraph/backend/internal/server/middleware"
	"github.com/gridline/fraudgraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Company analysis routes
	apiRoutes.GET("/companies/:id", routes.GetCompanyHandler, middleware.RequirePermission("analysis.view"))
	apiRoutes.GET("/companies/:id/network", routes.GetCompanyNetworkHandler, middleware.RequirePermission("network.view"))
	apiRoutes.POST("/companies/:id/analysis", routes.EnqueueAnalysisHandler, middleware.RequirePermission("analysis.run"))
	apiRoutes.GET("/companies/:id/report", routes.CreateReportHandler, middleware.RequirePermission("report.create"))
}
