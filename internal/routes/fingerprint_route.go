package routes

import (
	"net/http"

	"cadbridge/commons/routes"
	"cadbridge/internal/dto"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitFingerprintRoutes(
	router *gin.Engine,
	fingerprintHandler *handler.FingerprintHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ClearFingerprintsRequest, dto.ClearFingerprintsResponse]{
			Path:        "/fingerprints",
			Method:      http.MethodDelete,
			ServiceFunc: fingerprintHandler.ClearService,
			RequireAuth: false,
		},
	)
}
