package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playware/inventory-service/internal/api/middleware"
	apierrors "github.com/playware/inventory-service/internal/api/shared/errors"
	"github.com/playware/inventory-service/internal/logger"
)

// respondValidationError sends a 400 with the standard error envelope
func respondValidationError(c *gin.Context, message string, context map[string]string) {
	c.Set(middleware.ErrorCodeKey, string(apierrors.ErrCodeValidationError))
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(message, context))
}

// respondInternalError sends a 500 with a generic message and logs the cause
// with full context; internal detail is never exposed to the caller
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	c.Set(middleware.ErrorCodeKey, string(apierrors.ErrCodeDBError))
	c.JSON(http.StatusInternalServerError, apierrors.NewDatabaseError(message))
}
