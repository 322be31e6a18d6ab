package routes

import (
	"net/http"

	"cadbridge/commons/routes"
	"cadbridge/internal/dto"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitRunRoutes(
	router *gin.Engine,
	runHandler *handler.RunHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// Batch history, newest first
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ListRunsRequest, dto.ListRunsResponse]{
			Path:        "/sync/runs",
			Method:      http.MethodGet,
			ServiceFunc: runHandler.ListRunsService,
			RequireAuth: false,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.GetRunRequest, dto.GetRunResponse]{
			Path:        "/sync/runs/:run_id",
			Method:      http.MethodGet,
			ServiceFunc: runHandler.GetRunService,
			RequireAuth: false,
		},
	)
}
