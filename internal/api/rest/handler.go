package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playware/inventory-service/internal/api/shared/dto"
	"github.com/playware/inventory-service/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GrantItem credits items to a player's inventory
	// POST /v1/inventory/grant
	GrantItem(c *gin.Context)

	// GetInventory returns a player's inventory
	// POST /v1/inventory/get
	GetInventory(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// GrantItem credits items to a player's inventory. Validation failures are
// reported before any transaction opens; duplicates report success.
func (h *handler) GrantItem(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "Invalid request body", map[string]string{"reason": err.Error()})
		return
	}

	if req.PlayerID == nil || req.ItemCode == nil || req.Amount == nil {
		respondValidationError(c, "Missing player_id, item_code or amount", nil)
		return
	}
	if *req.Amount <= 0 {
		respondValidationError(c, "amount must be a positive integer", nil)
		return
	}
	if req.ExtTrxID != nil && *req.ExtTrxID == "" {
		respondValidationError(c, "ext_trx_id must not be empty when present", nil)
		return
	}

	err := h.executor.GrantItem(c.Request.Context(), *req.PlayerID, *req.ItemCode, *req.Amount, req.ExtTrxID, req.InventoryType)
	if err != nil {
		respondInternalError(c, err, "Failed to grant item",
			zap.Int64("player_id", *req.PlayerID),
			zap.String("item_code", *req.ItemCode),
		)
		return
	}

	c.JSON(http.StatusOK, dto.NewOKResponse(nil))
}

// GetInventory returns a player's inventory
func (h *handler) GetInventory(c *gin.Context) {
	var req dto.InventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, "Invalid request body", map[string]string{"reason": err.Error()})
		return
	}

	if req.PlayerID == nil {
		respondValidationError(c, "Missing player_id", nil)
		return
	}

	data, err := h.executor.GetInventory(c.Request.Context(), *req.PlayerID)
	if err != nil {
		respondInternalError(c, err, "Failed to get inventory",
			zap.Int64("player_id", *req.PlayerID),
		)
		return
	}

	c.JSON(http.StatusOK, dto.NewOKResponse(data))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
