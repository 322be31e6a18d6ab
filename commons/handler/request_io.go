package handler

import (
	"strconv"
	"strings"

	"cadbridge/internal/logger"

	"github.com/gin-gonic/gin"
)

type RequestIo[T any] struct {
	Body        T
	RawBody     []byte
	PathParams  map[string]string
	QueryParams map[string]string
	Headers     map[string]string
}

// PathParam returns the trimmed path parameter, or "" when absent.
func (r *RequestIo[T]) PathParam(name string) string {
	return strings.TrimSpace(r.PathParams[name])
}

// QueryInt parses an integer query parameter, returning def when it is absent or malformed.
func (r *RequestIo[T]) QueryInt(name string, def int) int {
	raw, ok := r.QueryParams[name]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

// QueryBool parses a boolean query parameter, returning def when it is absent or malformed.
func (r *RequestIo[T]) QueryBool(name string, def bool) bool {
	raw, ok := r.QueryParams[name]
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

type HandlerDependencies struct {
	Logger logger.Logger
}

func BuildRequestIo[T any](c *gin.Context) *RequestIo[T] {
	return &RequestIo[T]{
		PathParams:  extractPathParams(c),
		QueryParams: extractQueryParams(c),
		Headers:     extractHeaders(c),
	}
}

func extractPathParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for _, param := range c.Params {
		params[param.Key] = param.Value
	}
	return params
}

func extractQueryParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func extractHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
