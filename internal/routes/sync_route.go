package routes

import (
	"net/http"

	"cadbridge/commons/routes"
	"cadbridge/internal/dto"
	"cadbridge/internal/handler"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitSyncRoutes(
	router *gin.Engine,
	syncHandler *handler.SyncHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// Run one batch now
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.SyncRequest, dto.SyncResponse]{
			Path:        "/sync",
			Method:      http.MethodPost,
			ServiceFunc: syncHandler.SyncService,
			RequireAuth: false,
		},
	)
}
