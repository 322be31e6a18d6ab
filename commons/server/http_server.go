package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type HTTPServer struct {
	server *http.Server
	logger logger.Logger
}

type ServerConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	// WriteTimeout must cover a full sync batch, which can take minutes.
	WriteTimeout time.Duration
}

func NewHTTPServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	config ServerConfig,
	log logger.Logger,
) *HTTPServer {
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
	}

	httpServer := &HTTPServer{
		server: srv,
		logger: log.With(logger.String("component", "http_server")),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Listen before returning so a bind failure fails OnStart.
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			httpServer.logger.Info("starting HTTP server", logger.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					httpServer.logger.Error("HTTP server stopped", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			httpServer.logger.Info("shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})

	return httpServer
}

func (s *HTTPServer) GetServer() *http.Server {
	return s.server
}
