package routes

import (
	"net/http"

	"cadbridge/commons/routes"
	"cadbridge/internal/dto"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitIncidentRoutes(
	router *gin.Engine,
	incidentHandler *handler.IncidentHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ExportIncidentRequest, dto.ExportIncidentResponse]{
			Path:        "/incidents/:incident_id/export",
			Method:      http.MethodPost,
			ServiceFunc: incidentHandler.ExportService,
			RequireAuth: false,
		},
	)

	// Preview never delivers or writes the sheet
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.PreviewIncidentRequest, dto.PreviewIncidentResponse]{
			Path:        "/incidents/:incident_id/preview",
			Method:      http.MethodGet,
			ServiceFunc: incidentHandler.PreviewService,
			RequireAuth: false,
		},
	)
}
