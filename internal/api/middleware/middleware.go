package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/playware/inventory-service/internal/api/shared/errors"
	"github.com/playware/inventory-service/internal/logger"
	"github.com/playware/inventory-service/internal/metrics"
)

// ErrorCodeKey is the gin context key under which handlers record the error
// code of a failed response, for the monitoring middleware to pick up.
const ErrorCodeKey = "error_code"

// RequestIDHeader carries the request ID assigned by RequestID
const RequestIDHeader = "X-Request-Id"

// Logger returns a gin middleware for structured logging using zap
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("API request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.Writer.Header().Get(RequestIDHeader)),
		)
	}
}

// Recovery returns a gin middleware for panic recovery with logging
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(fmt.Errorf("panic recovered: %v", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.Set(ErrorCodeKey, string(apierrors.ErrCodeServerError))
				c.AbortWithStatusJSON(500, apierrors.NewInternalError("Internal server error"))
			}
		}()
		c.Next()
	}
}

// RequestID assigns a UUID to every request that does not already carry one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// Monitoring returns a gin middleware recording request count and latency
// into the injected metrics aggregator
func Monitoring(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		httpCode := c.Writer.Status()
		status := "ok"
		errorCode := ""
		if httpCode != 200 {
			status = "error"
			errorCode = c.GetString(ErrorCodeKey)
			if errorCode == "" {
				errorCode = "unknown_code"
			}
		}

		m.ObserveRequest(
			c.FullPath(),
			c.Request.Method,
			status,
			fmt.Sprintf("%d", httpCode),
			errorCode,
			time.Since(start),
		)
	}
}
