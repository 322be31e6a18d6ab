package handler

import (
	"fmt"
	"net/http"
	"time"

	"cadbridge/commons/error_handler"
	"cadbridge/commons/response"
	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware reuses the caller's request id or assigns one, and stores it on the request
// context so loggers derived with WithContext include it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func ErrorHandlingMiddleware(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if recovered != nil {
			log.WithContext(c.Request.Context()).Error("panic recovered in middleware",
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
				logger.Any("panic", recovered))

			standardResponse := response.StandardResponse{
				Status:    response.StatusFailed,
				ErrorCode: error_handler.CodeInternalServerError,
				Message:   "Internal server error",
				Data:      nil,
				Errors: []response.Errors{
					error_handler.GetInternalServerError("An unexpected error occurred"),
				},
			}

			c.JSON(http.StatusInternalServerError, standardResponse)
			c.Abort()
		}
	})
}

func LoggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.WithContext(c.Request.Context())
		reqLog.Debug("request started",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("user_agent", c.GetHeader("User-Agent")),
			logger.String("remote_addr", c.ClientIP()))

		c.Next()

		reqLog.Info("request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status_code", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)))
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, "+RequestIDHeader)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		standardResponse := response.StandardResponse{
			Status:    response.StatusFailed,
			ErrorCode: error_handler.CodeNotFound,
			Message:   "Route not found",
			Data:      nil,
			Errors: []response.Errors{
				{
					ErrorCode: error_handler.CodeNotFound,
					Message:   fmt.Sprintf("The requested route '%s %s' was not found", c.Request.Method, c.Request.URL.Path),
					Data:      nil,
				},
			},
		}

		c.JSON(http.StatusNotFound, standardResponse)
	}
}

func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		standardResponse := response.StandardResponse{
			Status:    response.StatusFailed,
			ErrorCode: error_handler.CodeValidationError,
			Message:   "Method not allowed",
			Data:      nil,
			Errors: []response.Errors{
				{
					ErrorCode: error_handler.CodeValidationError,
					Message:   fmt.Sprintf("Method '%s' is not allowed for route '%s'", c.Request.Method, c.Request.URL.Path),
					Data:      nil,
				},
			},
		}

		c.JSON(http.StatusMethodNotAllowed, standardResponse)
	}
}
