package routes

import (
	"net/http"

	"cadbridge/commons/routes"
	"cadbridge/internal/dto"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitHealthRoutes(
	router *gin.Engine,
	healthHandler *handler.HealthHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.HealthCheckRequest, dto.HealthCheckResponse]{
			Path:        "/health",
			Method:      http.MethodGet,
			ServiceFunc: healthHandler.HealthService,
			RequireAuth: false,
		},
	)
}
